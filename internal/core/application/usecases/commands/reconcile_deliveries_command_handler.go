package commands

import (
	"context"
	"errors"
	"fmt"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"

	"go.uber.org/zap"
)

// ReconcileDeliveriesCommandHandler repairs the store after a ledger call
// succeeded but the following store write did not.
//
// For each delivery with an escrow the ledger history is read in order. A
// milestone whose event is enabled in the current status is applied, and a
// milestone without its audit row gets one. Running it again changes nothing.
//
// Example:
//
//	handler := NewReconcileDeliveriesCommandHandler(deps)
//	report, err := handler.Handle(ctx, ReconcileDeliveriesCommand{})
//	log.Printf("checked %d, repaired %d", report.Checked, report.Repaired)
type ReconcileDeliveriesCommandHandler struct {
	deps LifecycleDeps
}

func NewReconcileDeliveriesCommandHandler(deps LifecycleDeps) ReconcileDeliveriesCommandHandler {
	return ReconcileDeliveriesCommandHandler{deps: deps.withDefaults()}
}

// Handle continues past failing deliveries and returns their errors joined.
func (h *ReconcileDeliveriesCommandHandler) Handle(
	ctx context.Context,
	_ ReconcileDeliveriesCommand,
) (ReconcileReport, error) {
	var report ReconcileReport

	all, err := h.deps.Store.GetAllDeliveries(ctx)
	if err != nil {
		return report, err
	}

	var errList []error
	for _, d := range all {
		if !d.HasEscrow() {
			continue
		}
		if err = ctx.Err(); err != nil {
			errList = append(errList, err)
			break
		}
		report.Checked++

		repaired, err := h.reconcile(ctx, d.ID())
		report.Repaired += repaired
		if err != nil {
			report.Failed++
			errList = append(errList, fmt.Errorf("reconcile delivery %d: %w", d.ID(), err))
			h.deps.Logger.Warn("delivery not reconciled", zap.Int64("delivery_id", d.ID()), zap.Error(err))
		}
	}

	h.deps.Metrics.ObserveReconciled(report.Repaired)
	if report.Repaired > 0 || report.Failed > 0 {
		h.deps.Logger.Info("reconciliation finished",
			zap.Int("checked", report.Checked),
			zap.Int("repaired", report.Repaired),
			zap.Int("failed", report.Failed))
	}
	return report, errors.Join(errList...)
}

func (h *ReconcileDeliveriesCommandHandler) reconcile(ctx context.Context, id int64) (int, error) {
	unlock := h.deps.Locks.Lock(id)
	defer unlock()

	// Re-read under the lock; the delivery may have moved or been deleted.
	d, err := h.deps.Store.GetDeliveryByID(ctx, id)
	if err != nil || d == nil || !d.HasEscrow() {
		return 0, err
	}

	history, err := h.deps.ledgerHistory(ctx, d.ContractAddress())
	if err != nil {
		return 0, err
	}
	txs, err := h.deps.Store.GetTransactionsByDeliveryID(ctx, id)
	if err != nil {
		return 0, err
	}
	recorded := make(map[ledgertx.Type]bool, len(txs))
	for _, tx := range txs {
		recorded[tx.Type] = true
	}

	repaired := 0
	status := d.Status()
	for _, ev := range history {
		step, ok := stepForMilestone(ev.Milestone)
		if !ok {
			continue
		}

		if step.event != "" {
			if next, err := status.Apply(step.event); err == nil {
				var carrier kernel.Address
				if step.event == delivery.EventAccept {
					carrier = ev.Actor
				}
				if err = h.deps.Store.UpdateDeliveryStatus(ctx, id, next, carrier); err != nil {
					return repaired, err
				}
				h.deps.Logger.Info("status restored from ledger",
					zap.Int64("delivery_id", id),
					zap.String("from", string(status)),
					zap.String("to", string(next)))
				status = next
				repaired++
			}
		}

		if !recorded[step.txType] {
			if err = h.deps.recordTransaction(ctx, id, step.txType, ev.Receipt); err != nil {
				return repaired, err
			}
			recorded[step.txType] = true
			repaired++
		}
	}
	return repaired, nil
}
