package queries

import (
	"context"

	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
)

type GetUserQueryHandler struct {
	store ports.Store
}

func NewGetUserQueryHandler(store ports.Store) GetUserQueryHandler {
	return GetUserQueryHandler{store: store}
}

func (h GetUserQueryHandler) Handle(ctx context.Context, query GetUserQuery) (*user.User, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	u, err := h.store.GetUserByAddress(ctx, query.Address())
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NewObjectNotFoundError("user", query.Address().String())
	}
	return u, nil
}
