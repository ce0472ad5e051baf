package flatstore

import (
	"context"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/services"
	"cargotrust/internal/pkg/errs"
)

func (s *Store) CreateDelivery(ctx context.Context, draft delivery.Draft) (*delivery.Delivery, error) {
	var created *delivery.Delivery
	err := s.mutate(ctx, func(next *state) error {
		d, err := delivery.New(next.next.DeliveryID, draft, s.clock.Now())
		if err != nil {
			return err
		}
		next.deliveries = append(next.deliveries, d)
		next.next.DeliveryID++
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (s *Store) GetDeliveryByID(_ context.Context, id int64) (*delivery.Delivery, error) {
	var found *delivery.Delivery
	err := s.read(func(st state) error {
		if i := indexOfDelivery(st.deliveries, id); i >= 0 {
			found = st.deliveries[i].Clone()
		}
		return nil
	})
	return found, err
}

func (s *Store) GetAllDeliveries(_ context.Context) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(services.AnyDelivery())
}

func (s *Store) GetDeliveriesByRequester(_ context.Context, requester kernel.Address) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(services.ByRequester(requester))
}

func (s *Store) GetDeliveriesByCarrier(_ context.Context, carrier kernel.Address) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(services.ByCarrier(carrier))
}

func (s *Store) GetOpenDeliveries(_ context.Context) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(services.OpenForCarriers())
}

func (s *Store) GetDeliveriesByStatus(_ context.Context, status delivery.Status) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(services.ByStatus(status))
}

func (s *Store) GetDeliveriesByDateRange(_ context.Context, start, end time.Time) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(services.CreatedBetween(start, end))
}

func (s *Store) SearchDeliveries(_ context.Context, query string) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(services.Matching(query))
}

func (s *Store) selectDeliveries(p services.DeliveryPredicate) ([]*delivery.Delivery, error) {
	var out []*delivery.Delivery
	err := s.read(func(st state) error {
		out = services.SelectDeliveries(st.deliveries, p)
		return nil
	})
	return out, err
}

func (s *Store) UpdateDeliveryStatus(
	ctx context.Context,
	id int64,
	status delivery.Status,
	carrier kernel.Address,
) error {
	return s.updateDelivery(ctx, id, func(d *delivery.Delivery) error {
		return d.SetStatus(status, carrier, s.clock.Now())
	})
}

func (s *Store) UpdateDelivery(ctx context.Context, id int64, patch delivery.Patch) error {
	return s.updateDelivery(ctx, id, func(d *delivery.Delivery) error {
		return d.ApplyPatch(patch, s.clock.Now())
	})
}

func (s *Store) updateDelivery(ctx context.Context, id int64, change func(d *delivery.Delivery) error) error {
	return s.mutate(ctx, func(next *state) error {
		i := indexOfDelivery(next.deliveries, id)
		if i < 0 {
			return errs.NewDeliveryNotFoundError(id)
		}
		d := next.deliveries[i].Clone()
		if err := change(d); err != nil {
			return err
		}
		next.deliveries[i] = d
		return nil
	})
}

func (s *Store) DeleteDelivery(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(next *state) error {
		i := indexOfDelivery(next.deliveries, id)
		if i < 0 {
			return errs.NewDeliveryNotFoundError(id)
		}
		next.deliveries = append(next.deliveries[:i], next.deliveries[i+1:]...)
		return nil
	})
}

func indexOfDelivery(ds []*delivery.Delivery, id int64) int {
	for i, d := range ds {
		if d.ID() == id {
			return i
		}
	}
	return -1
}
