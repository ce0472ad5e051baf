// Package commands contains the operations that change state: the delivery
// lifecycle, administrative store maintenance and ledger reconciliation.
// Every command is built by its constructor, which validates the input, and
// executed by a handler that owns the collaborators.
package commands

import (
	"context"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultLedgerTimeout bounds every ledger call when no timeout is configured.
const DefaultLedgerTimeout = 10 * time.Second

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeLedger   = "ledger_failed"
	outcomeStore    = "store_failed"
)

// LifecycleDeps are the collaborators of the lifecycle handlers.
type LifecycleDeps struct {
	Store     ports.Store
	Ledger    ports.LedgerAdapter
	Publisher ports.EventPublisher // optional
	Locks     *DeliveryLocks
	Clock     kernel.Clock
	Logger    *zap.Logger
	Metrics   *metrics.Metrics // optional

	LedgerTimeout time.Duration
	// Arbiter settles escrows. When zero the requester arbitrates their own
	// delivery, as the single-user client does.
	Arbiter kernel.Address
}

func (d LifecycleDeps) withDefaults() LifecycleDeps {
	if d.Locks == nil {
		d.Locks = NewDeliveryLocks()
	}
	if d.Clock == nil {
		d.Clock = kernel.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.LedgerTimeout <= 0 {
		d.LedgerTimeout = DefaultLedgerTimeout
	}
	return d
}

func (d LifecycleDeps) arbiterFor(requester kernel.Address) kernel.Address {
	if d.Arbiter.IsZero() {
		return requester
	}
	return d.Arbiter
}

// callLedger runs one ledger call under the configured timeout. Any failure,
// the timeout included, is returned as *errs.LedgerError.
func (d LifecycleDeps) callLedger(
	ctx context.Context,
	operation string,
	call func(ctx context.Context) (ports.Receipt, error),
) (ports.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, d.LedgerTimeout)
	defer cancel()

	started := time.Now()
	receipt, err := call(ctx)
	d.Metrics.ObserveLedgerCall(operation, started, err)
	if err != nil {
		return ports.Receipt{}, errs.NewLedgerError(operation, err)
	}
	return receipt, nil
}

func (d LifecycleDeps) ledgerHistory(ctx context.Context, escrowID string) ([]ports.LedgerEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, d.LedgerTimeout)
	defer cancel()

	started := time.Now()
	events, err := d.Ledger.History(ctx, escrowID)
	d.Metrics.ObserveLedgerCall("history", started, err)
	if err != nil {
		return nil, errs.NewLedgerError("history", err)
	}
	return events, nil
}

// recordTransaction appends the audit row of a confirmed ledger call.
func (d LifecycleDeps) recordTransaction(
	ctx context.Context,
	deliveryID int64,
	txType ledgertx.Type,
	receipt ports.Receipt,
) error {
	block, gas := receipt.BlockNumber, receipt.GasUsed
	_, err := d.Store.CreateTransaction(ctx, ledgertx.Draft{
		DeliveryID:      deliveryID,
		TransactionHash: receipt.Hash,
		Type:            txType,
		BlockNumber:     &block,
		GasUsed:         &gas,
		Status:          ledgertx.StatusConfirmed,
	})
	return err
}

// diverged logs a store failure that followed a successful ledger call. The
// reconciliation pass repairs it from the ledger history.
func (d LifecycleDeps) diverged(deliveryID int64, event delivery.Event, err error) {
	d.Metrics.ObserveTransition(string(event), outcomeStore)
	d.Logger.Error("ledger call succeeded but the store was not updated",
		zap.Int64("delivery_id", deliveryID),
		zap.String("event", string(event)),
		zap.Error(err))
}

func (d LifecycleDeps) publish(ctx context.Context, event ports.DeliveryStatusChanged) {
	if d.Publisher == nil {
		return
	}
	if err := d.Publisher.PublishStatusChanged(ctx, event); err != nil {
		d.Logger.Warn("status change not published",
			zap.Int64("delivery_id", event.DeliveryID),
			zap.String("to", string(event.To)),
			zap.Error(err))
	}
}

// milestoneStep is what a ledger milestone means for a delivery: the audit
// row it produces and, unless it is the funding step, the lifecycle event.
type milestoneStep struct {
	txType ledgertx.Type
	event  delivery.Event
}

func stepForMilestone(m ports.Milestone) (milestoneStep, bool) {
	step, ok := map[ports.Milestone]milestoneStep{
		ports.MilestoneFund:    {txType: ledgertx.TypeCreate},
		ports.MilestoneAccept:  {txType: ledgertx.TypeAccept, event: delivery.EventAccept},
		ports.MilestonePickup:  {txType: ledgertx.TypePickup, event: delivery.EventPickup},
		ports.MilestoneTransit: {txType: ledgertx.TypeTransit, event: delivery.EventTransit},
		ports.MilestoneDeliver: {txType: ledgertx.TypeDeliver, event: delivery.EventDeliver},
		ports.MilestoneRelease: {txType: ledgertx.TypeComplete, event: delivery.EventRelease},
		ports.MilestoneRefund:  {txType: ledgertx.TypeRefund, event: delivery.EventCancel},
	}[m]
	return step, ok
}

func milestoneForEvent(e delivery.Event) ports.Milestone {
	return map[delivery.Event]ports.Milestone{
		delivery.EventAccept:  ports.MilestoneAccept,
		delivery.EventPickup:  ports.MilestonePickup,
		delivery.EventTransit: ports.MilestoneTransit,
		delivery.EventDeliver: ports.MilestoneDeliver,
		delivery.EventRelease: ports.MilestoneRelease,
		delivery.EventCancel:  ports.MilestoneRefund,
	}[e]
}
