package queries

import (
	"context"

	"cargotrust/internal/core/domain/services"
	"cargotrust/internal/core/ports"
)

// StoreReport is the store overview shown on the dashboard and by the CLI.
type StoreReport struct {
	Stats   ports.StoreStats
	Summary services.Summary
}

// StoreQueryHandler answers whole-store reads: the snapshot export and the
// overview report.
type StoreQueryHandler struct {
	store ports.Store
}

func NewStoreQueryHandler(store ports.Store) StoreQueryHandler {
	return StoreQueryHandler{store: store}
}

// ExportSnapshot returns the canonical snapshot document of the store.
func (h StoreQueryHandler) ExportSnapshot(ctx context.Context) ([]byte, error) {
	return h.store.ExportSnapshot(ctx)
}

// Report combines the engine statistics with the escrow summary.
func (h StoreQueryHandler) Report(ctx context.Context) (StoreReport, error) {
	stats, err := h.store.Stats(ctx)
	if err != nil {
		return StoreReport{}, err
	}
	all, err := h.store.GetAllDeliveries(ctx)
	if err != nil {
		return StoreReport{}, err
	}
	return StoreReport{Stats: stats, Summary: services.Summarize(all)}, nil
}
