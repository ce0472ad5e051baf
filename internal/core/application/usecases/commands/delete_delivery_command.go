package commands

import (
	"errors"

	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrDeleteDeliveryCommandIsNotConstructed = errors.New(
		"DeleteDeliveryCommand must be created via NewDeleteDeliveryCommand constructor",
	)
)

// DeleteDeliveryCommand removes a delivery. Its audit rows are kept.
type DeleteDeliveryCommand struct { //nolint:recvcheck //using for validation
	deliveryID int64

	guard guard.ConstructorGuard
}

func NewDeleteDeliveryCommand(deliveryID int64) (DeleteDeliveryCommand, error) {
	if deliveryID <= 0 {
		return DeleteDeliveryCommand{}, errs.NewValueIsOutOfRangeError("delivery id", deliveryID, 1, "max int64")
	}
	return DeleteDeliveryCommand{deliveryID: deliveryID, guard: guard.NewConstructorGuard()}, nil
}

func (c DeleteDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrDeleteDeliveryCommandIsNotConstructed)
}

func (c DeleteDeliveryCommand) DeliveryID() int64 { return c.deliveryID }
