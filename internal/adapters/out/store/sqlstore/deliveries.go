package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/services"
	"cargotrust/internal/pkg/errs"
)

func (s *Store) CreateDelivery(ctx context.Context, draft delivery.Draft) (*delivery.Delivery, error) {
	var created *delivery.Delivery
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		id, err := nextID(ctx, tx, tableDeliveries)
		if err != nil {
			return errs.NewPersistenceReadError("next delivery id", err)
		}
		d, err := delivery.New(id, draft, s.clock.Now())
		if err != nil {
			return err
		}
		if err := insertDelivery(ctx, tx, d); err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) GetDeliveryByID(ctx context.Context, id int64) (*delivery.Delivery, error) {
	var found *delivery.Delivery
	err := s.read(func(q querier) error {
		var err error
		found, err = getDelivery(ctx, q, id)
		return err
	})
	return found, err
}

func getDelivery(ctx context.Context, q querier, id int64) (*delivery.Delivery, error) {
	d, err := scanDelivery(q.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewPersistenceReadError("get delivery", err)
	}
	return d, nil
}

func (s *Store) GetAllDeliveries(ctx context.Context) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(ctx, "all deliveries", newestFirst)
}

func (s *Store) GetDeliveriesByRequester(ctx context.Context, requester kernel.Address) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(ctx, "deliveries by requester", `WHERE requester = ?`+newestFirst, requester.String())
}

func (s *Store) GetDeliveriesByCarrier(ctx context.Context, carrier kernel.Address) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(ctx, "deliveries by carrier", `WHERE carrier = ?`+newestFirst, carrier.String())
}

func (s *Store) GetOpenDeliveries(ctx context.Context) ([]*delivery.Delivery, error) {
	return s.GetDeliveriesByStatus(ctx, delivery.Open)
}

func (s *Store) GetDeliveriesByStatus(ctx context.Context, status delivery.Status) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(ctx, "deliveries by status", `WHERE status = ?`+newestFirst, string(status))
}

func (s *Store) GetDeliveriesByDateRange(ctx context.Context, start, end time.Time) ([]*delivery.Delivery, error) {
	return s.selectDeliveries(ctx, "deliveries by date range",
		`WHERE created_at >= ? AND created_at <= ?`+newestFirst,
		ceilMillis(start), end.UnixMilli())
}

// ceilMillis rounds up so that sub-millisecond bounds stay inclusive in the
// same way as a time comparison.
func ceilMillis(t time.Time) int64 {
	ms := t.UnixMilli()
	if time.UnixMilli(ms).Before(t) {
		ms++
	}
	return ms
}

// SearchDeliveries folds both sides with the fold() function the driver
// registers, so results match the in-memory engine exactly.
func (s *Store) SearchDeliveries(ctx context.Context, query string) ([]*delivery.Delivery, error) {
	needle := services.FoldForSearch(query)
	return s.selectDeliveries(ctx, "search deliveries",
		`WHERE instr(fold(origin), ?) > 0
			OR instr(fold(destination), ?) > 0
			OR instr(fold(description), ?) > 0
			OR instr(fold(requester), ?) > 0
			OR instr(fold(COALESCE(carrier, '')), ?) > 0`+newestFirst,
		needle, needle, needle, needle, needle)
}

func (s *Store) selectDeliveries(ctx context.Context, op, where string, args ...any) ([]*delivery.Delivery, error) {
	var out []*delivery.Delivery
	err := s.read(func(q querier) error {
		var err error
		out, err = queryDeliveries(ctx, q, where, args...)
		if err != nil {
			return errs.NewPersistenceReadError(op, err)
		}
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
	return s.changeDelivery(ctx, id, func(d *delivery.Delivery) error {
		return d.SetStatus(status, carrier, s.clock.Now())
	})
}

func (s *Store) UpdateDelivery(ctx context.Context, id int64, patch delivery.Patch) error {
	return s.changeDelivery(ctx, id, func(d *delivery.Delivery) error {
		return d.ApplyPatch(patch, s.clock.Now())
	})
}

func (s *Store) changeDelivery(ctx context.Context, id int64, change func(d *delivery.Delivery) error) error {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		d, err := getDelivery(ctx, tx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return errs.NewDeliveryNotFoundError(id)
		}
		if err := change(d); err != nil {
			return err
		}
		if err := updateDelivery(ctx, tx, d); err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
		return nil
	})
}

func (s *Store) DeleteDelivery(ctx context.Context, id int64) error {
	return s.mutate(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM deliveries WHERE id = ?`, id)
		if err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
		if n == 0 {
			return errs.NewDeliveryNotFoundError(id)
		}
		return nil
	})
}
