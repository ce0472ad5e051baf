package commands

import (
	"context"

	"go.uber.org/zap"
)

type DeleteDeliveryCommandHandler struct {
	deps LifecycleDeps
}

func NewDeleteDeliveryCommandHandler(deps LifecycleDeps) DeleteDeliveryCommandHandler {
	return DeleteDeliveryCommandHandler{deps: deps.withDefaults()}
}

func (h *DeleteDeliveryCommandHandler) Handle(ctx context.Context, cmd DeleteDeliveryCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	unlock := h.deps.Locks.Lock(cmd.DeliveryID())
	defer unlock()

	if err := h.deps.Store.DeleteDelivery(ctx, cmd.DeliveryID()); err != nil {
		return err
	}
	h.deps.Logger.Info("delivery deleted", zap.Int64("delivery_id", cmd.DeliveryID()))
	return nil
}
