package commands

import (
	"context"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/pkg/errs"

	"go.uber.org/zap"
)

type UpdateDeliveryCommandHandler struct {
	deps LifecycleDeps
}

func NewUpdateDeliveryCommandHandler(deps LifecycleDeps) UpdateDeliveryCommandHandler {
	return UpdateDeliveryCommandHandler{deps: deps.withDefaults()}
}

// Handle applies the patch under the delivery lock and returns the result.
func (h *UpdateDeliveryCommandHandler) Handle(
	ctx context.Context,
	cmd UpdateDeliveryCommand,
) (*delivery.Delivery, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unlock := h.deps.Locks.Lock(cmd.DeliveryID())
	defer unlock()

	if err := h.deps.Store.UpdateDelivery(ctx, cmd.DeliveryID(), cmd.Patch()); err != nil {
		return nil, err
	}
	d, err := h.deps.Store.GetDeliveryByID(ctx, cmd.DeliveryID())
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.NewDeliveryNotFoundError(cmd.DeliveryID())
	}

	h.deps.Logger.Info("delivery updated", zap.Int64("delivery_id", d.ID()))
	return d, nil
}
