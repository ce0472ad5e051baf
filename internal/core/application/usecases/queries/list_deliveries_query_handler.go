package queries

import (
	"context"
	"slices"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/services"
	"cargotrust/internal/core/ports"
)

// ListDeliveriesQueryHandler answers a list request with one store query,
// the most selective one the filter allows, and narrows the result with the
// remaining criteria. Store order (newest first) is kept.
type ListDeliveriesQueryHandler struct {
	store ports.Store
}

func NewListDeliveriesQueryHandler(store ports.Store) ListDeliveriesQueryHandler {
	return ListDeliveriesQueryHandler{store: store}
}

func (h ListDeliveriesQueryHandler) Handle(
	ctx context.Context,
	query ListDeliveriesQuery,
) ([]*delivery.Delivery, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var (
		rest []services.DeliveryPredicate
		load func() ([]*delivery.Delivery, error)
	)
	use := func(fetch func() ([]*delivery.Delivery, error), p services.DeliveryPredicate) {
		if load == nil {
			load = fetch
			return
		}
		rest = append(rest, p)
	}

	if requester, ok := query.Requester(); ok {
		use(func() ([]*delivery.Delivery, error) {
			return h.store.GetDeliveriesByRequester(ctx, requester)
		}, services.ByRequester(requester))
	}
	if carrier, ok := query.Carrier(); ok {
		use(func() ([]*delivery.Delivery, error) {
			return h.store.GetDeliveriesByCarrier(ctx, carrier)
		}, services.ByCarrier(carrier))
	}
	if status, ok := query.Status(); ok {
		use(func() ([]*delivery.Delivery, error) {
			return h.store.GetDeliveriesByStatus(ctx, status)
		}, services.ByStatus(status))
	}
	if query.OpenOnly() {
		use(func() ([]*delivery.Delivery, error) {
			return h.store.GetOpenDeliveries(ctx)
		}, services.OpenForCarriers())
	}
	if from, to, ok := query.CreatedBetween(); ok {
		use(func() ([]*delivery.Delivery, error) {
			return h.store.GetDeliveriesByDateRange(ctx, from, to)
		}, services.CreatedBetween(from, to))
	}
	if search := query.Search(); search != "" {
		use(func() ([]*delivery.Delivery, error) {
			return h.store.SearchDeliveries(ctx, search)
		}, services.Matching(search))
	}
	if load == nil {
		load = func() ([]*delivery.Delivery, error) { return h.store.GetAllDeliveries(ctx) }
	}

	ds, err := load()
	if err != nil {
		return nil, err
	}
	match := services.AllOf(rest...)
	return slices.DeleteFunc(ds, func(d *delivery.Delivery) bool { return !match(d) }), nil
}
