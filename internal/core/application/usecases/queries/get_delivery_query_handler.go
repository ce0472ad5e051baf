package queries

import (
	"context"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
)

type GetDeliveryQueryHandler struct {
	store ports.Store
}

func NewGetDeliveryQueryHandler(store ports.Store) GetDeliveryQueryHandler {
	return GetDeliveryQueryHandler{store: store}
}

// Handle returns a not found error for a missing id.
func (h GetDeliveryQueryHandler) Handle(ctx context.Context, query GetDeliveryQuery) (*delivery.Delivery, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	d, err := h.store.GetDeliveryByID(ctx, query.DeliveryID())
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.NewDeliveryNotFoundError(query.DeliveryID())
	}
	return d, nil
}
