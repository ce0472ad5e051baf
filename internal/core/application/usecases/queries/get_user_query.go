package queries

import (
	"errors"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrGetUserQueryIsNotConstructed = errors.New("GetUserQuery must be created via NewGetUserQuery constructor")
)

type GetUserQuery struct {
	address kernel.Address

	guard guard.ConstructorGuard
}

func NewGetUserQuery(address string) (GetUserQuery, error) {
	a, err := kernel.NewAddress(address)
	if err != nil {
		return GetUserQuery{}, err
	}
	return GetUserQuery{address: a, guard: guard.NewConstructorGuard()}, nil
}

func (q GetUserQuery) Validate() error {
	return q.guard.Validate(ErrGetUserQueryIsNotConstructed)
}

func (q GetUserQuery) Address() kernel.Address { return q.address }
