// Package queries contains read operations for retrieving system state.
// Implements the Query pattern for read operations in the CQRS architecture.
// Queries never change the store and never call the ledger.
package queries

import (
	"errors"

	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrGetDeliveryQueryIsNotConstructed = errors.New(
		"GetDeliveryQuery must be created via NewGetDeliveryQuery constructor",
	)
)

// GetDeliveryQuery retrieves one delivery by id.
//
// Example:
//
//	query, err := NewGetDeliveryQuery(42)
//	if err != nil {
//	    return err
//	}
//	d, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // no such delivery
//	}
type GetDeliveryQuery struct {
	deliveryID int64

	guard guard.ConstructorGuard
}

func NewGetDeliveryQuery(deliveryID int64) (GetDeliveryQuery, error) {
	if deliveryID <= 0 {
		return GetDeliveryQuery{}, errs.NewValueIsOutOfRangeError("delivery id", deliveryID, 1, "max int64")
	}
	return GetDeliveryQuery{deliveryID: deliveryID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetDeliveryQuery) Validate() error {
	return q.guard.Validate(ErrGetDeliveryQueryIsNotConstructed)
}

func (q GetDeliveryQuery) DeliveryID() int64 { return q.deliveryID }
