// Package ledgertx models the append-only audit trail of ledger interactions.
// Every escrow call made on behalf of a delivery produces one Transaction.
package ledgertx

import (
	"fmt"
	"strings"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"
)

// Type names the lifecycle step a ledger interaction belongs to.
type Type string

const (
	TypeCreate   Type = "create"
	TypeAccept   Type = "accept"
	TypePickup   Type = "pickup"
	TypeTransit  Type = "transit"
	TypeDeliver  Type = "deliver"
	TypeComplete Type = "complete"
	TypeRefund   Type = "refund"
)

// Status is the settlement state of a ledger interaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

func AllTypes() []Type {
	return []Type{TypeCreate, TypeAccept, TypePickup, TypeTransit, TypeDeliver, TypeComplete, TypeRefund}
}

func (t Type) Validate() error {
	for _, valid := range AllTypes() {
		if t == valid {
			return nil
		}
	}
	return errs.NewValueIsInvalidErrorWithCause("transaction type", fmt.Errorf("%q is not a valid type", string(t)))
}

func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("transaction status", fmt.Errorf("%q is not a valid status", string(s)))
	}
}

// TypeForEvent maps a lifecycle event to the audit row it produces.
func TypeForEvent(e delivery.Event) (Type, bool) {
	t, ok := map[delivery.Event]Type{
		delivery.EventAccept:  TypeAccept,
		delivery.EventPickup:  TypePickup,
		delivery.EventTransit: TypeTransit,
		delivery.EventDeliver: TypeDeliver,
		delivery.EventRelease: TypeComplete,
		delivery.EventCancel:  TypeRefund,
	}[e]
	return t, ok
}

// Draft is the caller supplied part of a new transaction.
type Draft struct {
	DeliveryID      int64
	TransactionHash string
	Type            Type
	BlockNumber     *int64
	GasUsed         *int64
	Status          Status
}

// Transaction is one row of the audit trail. DeliveryID is a weak reference:
// rows outlive the delivery they describe.
type Transaction struct {
	ID              int64
	DeliveryID      int64
	TransactionHash string
	Type            Type
	BlockNumber     *int64
	GasUsed         *int64
	Status          Status
	CreatedAt       time.Time
}

// New validates draft and builds the row with the id assigned by the store.
func New(id int64, draft Draft, now time.Time) (*Transaction, error) {
	if id <= 0 {
		return nil, errs.NewValueIsOutOfRangeError("transaction id", id, 1, "max int64")
	}
	if draft.DeliveryID <= 0 {
		return nil, errs.NewValueIsOutOfRangeError("delivery id", draft.DeliveryID, 1, "max int64")
	}
	if strings.TrimSpace(draft.TransactionHash) == "" {
		return nil, errs.NewValueIsRequiredError("transaction hash")
	}
	if err := draft.Type.Validate(); err != nil {
		return nil, err
	}
	if err := draft.Status.Validate(); err != nil {
		return nil, err
	}
	return &Transaction{
		ID:              id,
		DeliveryID:      draft.DeliveryID,
		TransactionHash: draft.TransactionHash,
		Type:            draft.Type,
		BlockNumber:     draft.BlockNumber,
		GasUsed:         draft.GasUsed,
		Status:          draft.Status,
		CreatedAt:       kernel.Millis(now),
	}, nil
}

func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.BlockNumber != nil {
		v := *t.BlockNumber
		c.BlockNumber = &v
	}
	if t.GasUsed != nil {
		v := *t.GasUsed
		c.GasUsed = &v
	}
	return &c
}
