package commands

import (
	"context"
	"errors"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"
	"cargotrust/internal/core/ports"
	"cargotrust/internal/pkg/errs"

	"go.uber.org/zap"
)

// CreateDeliveryCommandHandler posts a delivery: it opens and funds an escrow
// on the ledger, then stores the delivery linked to it with a "create" audit
// row.
//
// If the store rejects the delivery after the escrow was funded, the escrow
// is refunded so no payment stays locked for a job nobody can see.
//
// Example:
//
//	handler := NewCreateDeliveryCommandHandler(deps)
//	d, err := handler.Handle(ctx, cmd)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("delivery %d is open, escrow %s", d.ID(), d.ContractAddress())
type CreateDeliveryCommandHandler struct {
	deps LifecycleDeps
}

func NewCreateDeliveryCommandHandler(deps LifecycleDeps) CreateDeliveryCommandHandler {
	return CreateDeliveryCommandHandler{deps: deps.withDefaults()}
}

// Handle returns the stored delivery. A failed audit row is logged and
// returned alongside the delivery; reconciliation adds it later.
func (h *CreateDeliveryCommandHandler) Handle(
	ctx context.Context,
	cmd CreateDeliveryCommand,
) (*delivery.Delivery, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if !cmd.PickupDeadline().After(h.deps.Clock.Now()) {
		h.deps.Metrics.ObserveTransition("create", outcomeRejected)
		return nil, errs.NewValueIsInvalidErrorWithCause("pickup deadline", errors.New("must be in the future"))
	}

	requester := cmd.Requester()
	arbiter := h.deps.arbiterFor(requester)

	var escrowID string
	_, err := h.deps.callLedger(ctx, "init_escrow", func(ctx context.Context) (ports.Receipt, error) {
		id, receipt, err := h.deps.Ledger.InitEscrow(ctx, requester, requester, arbiter, cmd.AmountStroops())
		escrowID = id
		return receipt, err
	})
	if err != nil {
		h.deps.Metrics.ObserveTransition("create", outcomeLedger)
		return nil, err
	}

	funded, err := h.deps.callLedger(ctx, "fund", func(ctx context.Context) (ports.Receipt, error) {
		return h.deps.Ledger.Fund(ctx, escrowID, requester)
	})
	if err != nil {
		h.deps.Metrics.ObserveTransition("create", outcomeLedger)
		h.deps.Logger.Warn("escrow created but not funded, abandoning it",
			zap.String("escrow_id", escrowID),
			zap.String("requester", requester.String()),
			zap.Error(err))
		return nil, err
	}

	d, err := h.deps.Store.CreateDelivery(ctx, cmd.Draft(escrowID, funded.Hash))
	if err != nil {
		h.deps.Metrics.ObserveTransition("create", outcomeStore)
		h.refundOrphan(ctx, escrowID, arbiter, err)
		return nil, err
	}

	if err = h.deps.recordTransaction(ctx, d.ID(), ledgertx.TypeCreate, funded); err != nil {
		h.deps.Logger.Error("delivery stored without its create transaction",
			zap.Int64("delivery_id", d.ID()),
			zap.Error(err))
		h.deps.Metrics.ObserveTransition("create", outcomeStore)
		return d, err
	}

	h.deps.Metrics.ObserveTransition("create", outcomeOK)
	h.deps.Logger.Info("delivery created",
		zap.Int64("delivery_id", d.ID()),
		zap.String("escrow_id", escrowID),
		zap.String("amount", d.Amount().String()))
	h.deps.publish(ctx, ports.DeliveryStatusChanged{
		DeliveryID: d.ID(),
		From:       delivery.Unknown,
		To:         d.Status(),
		TxHash:     funded.Hash,
		OccurredAt: d.CreatedAt(),
	})

	return d, nil
}

func (h *CreateDeliveryCommandHandler) refundOrphan(
	ctx context.Context,
	escrowID string,
	arbiter kernel.Address,
	cause error,
) {
	ctx = context.WithoutCancel(ctx)
	_, err := h.deps.callLedger(ctx, "refund", func(ctx context.Context) (ports.Receipt, error) {
		return h.deps.Ledger.Refund(ctx, escrowID, arbiter)
	})
	if err != nil {
		h.deps.Logger.Error("escrow funded for a delivery that was not stored and could not be refunded",
			zap.String("escrow_id", escrowID),
			zap.NamedError("store_error", cause),
			zap.Error(err))
		return
	}
	h.deps.Logger.Warn("escrow refunded after the delivery could not be stored",
		zap.String("escrow_id", escrowID),
		zap.Error(cause))
}
