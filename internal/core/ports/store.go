package ports

import (
	"context"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/domain/model/user"
)

// Store is the persistence contract shared by every storage engine. It owns
// the delivery, user and transaction collections and their id counters.
//
// Every method fails with errs.ErrNotInitialized until Initialize succeeds.
// Mutations are persisted through the engine's KeyValue before they return;
// a rejected write is reported as *errs.PersistenceWriteError and leaves the
// store as it was. Lists are ordered newest first by createdAt, ties broken
// by insertion order. Returned entities are copies.
type Store interface {
	// Initialize loads persisted state, or starts empty when there is none.
	// A malformed blob yields *errs.InitializationError. Calling it again is a no-op.
	Initialize(ctx context.Context) error

	// CreateDelivery assigns the next id and sets createdAt = updatedAt = now.
	CreateDelivery(ctx context.Context, draft delivery.Draft) (*delivery.Delivery, error)

	// GetDeliveryByID returns (nil, nil) when there is no such delivery.
	GetDeliveryByID(ctx context.Context, id int64) (*delivery.Delivery, error)

	GetAllDeliveries(ctx context.Context) ([]*delivery.Delivery, error)
	GetDeliveriesByRequester(ctx context.Context, requester kernel.Address) ([]*delivery.Delivery, error)
	GetDeliveriesByCarrier(ctx context.Context, carrier kernel.Address) ([]*delivery.Delivery, error)
	GetOpenDeliveries(ctx context.Context) ([]*delivery.Delivery, error)
	GetDeliveriesByStatus(ctx context.Context, status delivery.Status) ([]*delivery.Delivery, error)

	// GetDeliveriesByDateRange is inclusive on both ends of createdAt.
	GetDeliveriesByDateRange(ctx context.Context, start, end time.Time) ([]*delivery.Delivery, error)

	// SearchDeliveries matches query case-insensitively as a substring of
	// origin, destination, description, requester or carrier.
	SearchDeliveries(ctx context.Context, query string) ([]*delivery.Delivery, error)

	// UpdateDeliveryStatus sets status and updatedAt. The carrier is only
	// replaced when carrier is non-zero. Missing ids yield *errs.ObjectNotFoundError.
	UpdateDeliveryStatus(ctx context.Context, id int64, status delivery.Status, carrier kernel.Address) error

	// UpdateDelivery merges the provided fields and refreshes updatedAt.
	UpdateDelivery(ctx context.Context, id int64, patch delivery.Patch) error

	DeleteDelivery(ctx context.Context, id int64) error

	// ClearAll removes every record. Id counters keep counting.
	ClearAll(ctx context.Context) error

	// CreateUser fails with a validation error when the address is taken.
	CreateUser(ctx context.Context, draft user.Draft) (*user.User, error)

	// GetUserByAddress returns (nil, nil) when there is no such user.
	GetUserByAddress(ctx context.Context, address kernel.Address) (*user.User, error)

	CreateTransaction(ctx context.Context, draft ledgertx.Draft) (*ledgertx.Transaction, error)
	GetTransactionsByDeliveryID(ctx context.Context, deliveryID int64) ([]*ledgertx.Transaction, error)

	// ExportSnapshot serializes the whole store. It excludes concurrent mutations.
	ExportSnapshot(ctx context.Context) ([]byte, error)

	// ImportSnapshot replaces the whole store with a snapshot produced by any engine.
	ImportSnapshot(ctx context.Context, snapshot []byte) error

	Stats(ctx context.Context) (StoreStats, error)
}

// StoreStats summarizes a store for operators.
type StoreStats struct {
	Backend       string
	Deliveries    int
	Users         int
	Transactions  int
	ByStatus      map[delivery.Status]int
	UsedBytes     int64
	CapacityBytes int64
}
