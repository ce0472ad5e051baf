package commands

import (
	"errors"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrUpdateDeliveryCommandIsNotConstructed = errors.New(
		"UpdateDeliveryCommand must be created via NewUpdateDeliveryCommand constructor",
	)
)

// UpdateDeliveryCommand is an administrative partial update. It bypasses the
// lifecycle and the ledger; an empty patch only refreshes updatedAt.
type UpdateDeliveryCommand struct { //nolint:recvcheck //using for validation
	deliveryID int64
	patch      delivery.Patch

	guard guard.ConstructorGuard
}

func NewUpdateDeliveryCommand(deliveryID int64, patch delivery.Patch) (UpdateDeliveryCommand, error) {
	if deliveryID <= 0 {
		return UpdateDeliveryCommand{}, errs.NewValueIsOutOfRangeError("delivery id", deliveryID, 1, "max int64")
	}
	if patch.Origin != nil && patch.Destination != nil {
		if err := delivery.ValidateRoute(*patch.Origin, *patch.Destination); err != nil {
			return UpdateDeliveryCommand{}, err
		}
	}
	return UpdateDeliveryCommand{
		deliveryID: deliveryID,
		patch:      patch,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c UpdateDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrUpdateDeliveryCommandIsNotConstructed)
}

func (c UpdateDeliveryCommand) DeliveryID() int64     { return c.deliveryID }
func (c UpdateDeliveryCommand) Patch() delivery.Patch { return c.patch }
