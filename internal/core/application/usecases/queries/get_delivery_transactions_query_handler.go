package queries

import (
	"context"

	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/ports"
)

type GetDeliveryTransactionsQueryHandler struct {
	store ports.Store
}

func NewGetDeliveryTransactionsQueryHandler(store ports.Store) GetDeliveryTransactionsQueryHandler {
	return GetDeliveryTransactionsQueryHandler{store: store}
}

func (h GetDeliveryTransactionsQueryHandler) Handle(
	ctx context.Context,
	query GetDeliveryTransactionsQuery,
) ([]*ledgertx.Transaction, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return h.store.GetTransactionsByDeliveryID(ctx, query.DeliveryID())
}
