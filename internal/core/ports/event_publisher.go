package ports

import (
	"context"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
)

// DeliveryStatusChanged is emitted after a lifecycle transition is stored.
type DeliveryStatusChanged struct {
	DeliveryID int64
	From       delivery.Status
	To         delivery.Status
	Carrier    string
	TxHash     string
	OccurredAt time.Time
}

// EventPublisher notifies other systems of committed changes. Publishing is
// best effort: the store is the source of truth.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event DeliveryStatusChanged) error
}
