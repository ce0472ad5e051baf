package flatstore

import (
	"context"
	"fmt"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/core/domain/services"
	"cargotrust/internal/pkg/errs"
)

func (s *Store) CreateUser(ctx context.Context, draft user.Draft) (*user.User, error) {
	var created *user.User
	err := s.mutate(ctx, func(next *state) error {
		for _, u := range next.users {
			if u.Address.Equals(draft.Address) {
				return errs.NewValueIsInvalidErrorWithCause("address",
					fmt.Errorf("%s is already registered", draft.Address))
			}
		}
		u, err := user.New(next.next.UserID, draft, s.clock.Now())
		if err != nil {
			return err
		}
		next.users = append(next.users, u)
		next.next.UserID++
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (s *Store) GetUserByAddress(_ context.Context, address kernel.Address) (*user.User, error) {
	var found *user.User
	err := s.read(func(st state) error {
		for _, u := range st.users {
			if u.Address.Equals(address) {
				found = u.Clone()
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (s *Store) CreateTransaction(ctx context.Context, draft ledgertx.Draft) (*ledgertx.Transaction, error) {
	var created *ledgertx.Transaction
	err := s.mutate(ctx, func(next *state) error {
		t, err := ledgertx.New(next.next.TransactionID, draft, s.clock.Now())
		if err != nil {
			return err
		}
		next.transactions = append(next.transactions, t)
		next.next.TransactionID++
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (s *Store) GetTransactionsByDeliveryID(_ context.Context, deliveryID int64) ([]*ledgertx.Transaction, error) {
	var out []*ledgertx.Transaction
	err := s.read(func(st state) error {
		out = make([]*ledgertx.Transaction, 0)
		for _, t := range st.transactions {
			if t.DeliveryID == deliveryID {
				out = append(out, t.Clone())
			}
		}
		services.SortTransactionsNewestFirst(out)
		return nil
	})
	return out, err
}
