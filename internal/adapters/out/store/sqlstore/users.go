package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/pkg/errs"
)

func (s *Store) CreateUser(ctx context.Context, draft user.Draft) (*user.User, error) {
	var created *user.User
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		existing, err := findUser(ctx, tx, draft.Address)
		if err != nil {
			return errs.NewPersistenceReadError("find user", err)
		}
		if existing != nil {
			return errs.NewValueIsInvalidErrorWithCause("address",
				fmt.Errorf("%s is already registered", draft.Address))
		}
		id, err := nextID(ctx, tx, tableUsers)
		if err != nil {
			return errs.NewPersistenceReadError("next user id", err)
		}
		u, err := user.New(id, draft, s.clock.Now())
		if err != nil {
			return err
		}
		if err := insertUser(ctx, tx, u); err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) GetUserByAddress(ctx context.Context, address kernel.Address) (*user.User, error) {
	var found *user.User
	err := s.read(func(q querier) error {
		u, err := findUser(ctx, q, address)
		if err != nil {
			return errs.NewPersistenceReadError("find user", err)
		}
		found = u
		return nil
	})
	return found, err
}

func (s *Store) CreateTransaction(ctx context.Context, draft ledgertx.Draft) (*ledgertx.Transaction, error) {
	var created *ledgertx.Transaction
	err := s.mutate(ctx, func(tx *sql.Tx) error {
		id, err := nextID(ctx, tx, tableTransactions)
		if err != nil {
			return errs.NewPersistenceReadError("next transaction id", err)
		}
		t, err := ledgertx.New(id, draft, s.clock.Now())
		if err != nil {
			return err
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return errs.NewPersistenceWriteError(KeyDatabase, 0, err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (s *Store) GetTransactionsByDeliveryID(ctx context.Context, deliveryID int64) ([]*ledgertx.Transaction, error) {
	var out []*ledgertx.Transaction
	err := s.read(func(q querier) error {
		var err error
		out, err = queryTransactions(ctx, q, `WHERE delivery_id = ?`+newestFirst, deliveryID)
		if err != nil {
			return errs.NewPersistenceReadError("transactions by delivery", err)
		}
		return nil
	})
	return out, err
}
