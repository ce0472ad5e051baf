package commands

import (
	"context"
	"fmt"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"

	"go.uber.org/zap"
)

// TransitionCommandHandler executes one lifecycle step of a delivery:
//
//  1. the delivery is locked, so at most one transition per id is in flight
//  2. the event is checked against the current status
//  3. the matching ledger call is made (attest, release or refund)
//  4. the new status and one audit row are stored
//  5. the status change is published
//
// A rejected event never reaches the ledger. A failed ledger call leaves the
// store unchanged. A store failure after a successful ledger call is logged
// and returned; the reconciliation job repairs the store from the ledger.
type TransitionCommandHandler struct {
	deps LifecycleDeps
}

func NewTransitionCommandHandler(deps LifecycleDeps) TransitionCommandHandler {
	return TransitionCommandHandler{deps: deps.withDefaults()}
}

// Handle returns the delivery as stored after the transition.
func (h *TransitionCommandHandler) Handle(ctx context.Context, cmd TransitionCommand) (*delivery.Delivery, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	event := string(cmd.Event())

	unlock := h.deps.Locks.Lock(cmd.DeliveryID())
	defer unlock()

	d, err := h.deps.Store.GetDeliveryByID(ctx, cmd.DeliveryID())
	if err != nil {
		return nil, err
	}
	if d == nil {
		h.deps.Metrics.ObserveTransition(event, outcomeRejected)
		return nil, errs.NewDeliveryNotFoundError(cmd.DeliveryID())
	}

	from := d.Status()
	to, err := from.Apply(cmd.Event())
	if err != nil {
		h.deps.Metrics.ObserveTransition(event, outcomeRejected)
		return nil, err
	}
	if !d.HasEscrow() {
		h.deps.Metrics.ObserveTransition(event, outcomeRejected)
		return nil, errs.NewValueIsInvalidErrorWithCause("delivery",
			fmt.Errorf("delivery %d has no escrow", d.ID()))
	}

	receipt, err := h.callLedger(ctx, d, cmd)
	if err != nil {
		h.deps.Metrics.ObserveTransition(event, outcomeLedger)
		h.deps.Logger.Warn("ledger rejected transition",
			zap.Int64("delivery_id", d.ID()),
			zap.String("event", event),
			zap.Error(err))
		return nil, err
	}

	var carrier kernel.Address
	if cmd.Event() == delivery.EventAccept {
		carrier = cmd.Actor()
	}
	if err = h.deps.Store.UpdateDeliveryStatus(ctx, d.ID(), to, carrier); err != nil {
		h.deps.diverged(d.ID(), cmd.Event(), err)
		return nil, err
	}
	txType, _ := ledgertx.TypeForEvent(cmd.Event())
	if err = h.deps.recordTransaction(ctx, d.ID(), txType, receipt); err != nil {
		h.deps.diverged(d.ID(), cmd.Event(), err)
		return nil, err
	}

	updated, err := h.deps.Store.GetDeliveryByID(ctx, d.ID())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, errs.NewDeliveryNotFoundError(d.ID())
	}

	h.deps.Metrics.ObserveTransition(event, outcomeOK)
	h.deps.Logger.Info("delivery transitioned",
		zap.Int64("delivery_id", d.ID()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("tx_hash", receipt.Hash))

	assigned, _ := updated.Carrier()
	h.deps.publish(ctx, ports.DeliveryStatusChanged{
		DeliveryID: updated.ID(),
		From:       from,
		To:         to,
		Carrier:    assigned.String(),
		TxHash:     receipt.Hash,
		OccurredAt: updated.UpdatedAt(),
	})

	return updated, nil
}

func (h *TransitionCommandHandler) callLedger(
	ctx context.Context,
	d *delivery.Delivery,
	cmd TransitionCommand,
) (ports.Receipt, error) {
	escrowID := d.ContractAddress()

	switch cmd.Event() {
	case delivery.EventRelease:
		caller := h.settler(d, cmd)
		return h.deps.callLedger(ctx, "release", func(ctx context.Context) (ports.Receipt, error) {
			return h.deps.Ledger.Release(ctx, escrowID, caller)
		})
	case delivery.EventCancel:
		caller := h.settler(d, cmd)
		return h.deps.callLedger(ctx, "refund", func(ctx context.Context) (ports.Receipt, error) {
			return h.deps.Ledger.Refund(ctx, escrowID, caller)
		})
	default:
		actor := cmd.Actor()
		if actor.IsZero() {
			actor, _ = d.Carrier()
		}
		milestone := milestoneForEvent(cmd.Event())
		return h.deps.callLedger(ctx, "attest", func(ctx context.Context) (ports.Receipt, error) {
			return h.deps.Ledger.Attest(ctx, escrowID, milestone, actor)
		})
	}
}

func (h *TransitionCommandHandler) settler(d *delivery.Delivery, cmd TransitionCommand) kernel.Address {
	if !cmd.Actor().IsZero() {
		return cmd.Actor()
	}
	return h.deps.arbiterFor(d.Requester())
}
