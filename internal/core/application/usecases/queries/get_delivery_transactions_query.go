package queries

import (
	"errors"

	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrGetDeliveryTransactionsQueryIsNotConstructed = errors.New(
		"GetDeliveryTransactionsQuery must be created via NewGetDeliveryTransactionsQuery constructor",
	)
)

// GetDeliveryTransactionsQuery lists the audit trail of a delivery, newest
// first. The delivery itself need not exist any more.
type GetDeliveryTransactionsQuery struct {
	deliveryID int64

	guard guard.ConstructorGuard
}

func NewGetDeliveryTransactionsQuery(deliveryID int64) (GetDeliveryTransactionsQuery, error) {
	if deliveryID <= 0 {
		return GetDeliveryTransactionsQuery{}, errs.NewValueIsOutOfRangeError("delivery id", deliveryID, 1, "max int64")
	}
	return GetDeliveryTransactionsQuery{deliveryID: deliveryID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetDeliveryTransactionsQuery) Validate() error {
	return q.guard.Validate(ErrGetDeliveryTransactionsQueryIsNotConstructed)
}

func (q GetDeliveryTransactionsQuery) DeliveryID() int64 { return q.deliveryID }
