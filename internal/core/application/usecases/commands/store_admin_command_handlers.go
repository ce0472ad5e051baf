package commands

import (
	"context"

	"cargotrust/internal/core/ports"

	"go.uber.org/zap"
)

// StoreAdminCommandHandler runs the maintenance operations on a whole store.
// They are not serialised with in-flight transitions beyond the store's own
// exclusivity.
type StoreAdminCommandHandler struct {
	store  ports.Store
	logger *zap.Logger
}

func NewStoreAdminCommandHandler(store ports.Store, logger *zap.Logger) StoreAdminCommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return StoreAdminCommandHandler{store: store, logger: logger}
}

func (h *StoreAdminCommandHandler) HandleClearAll(ctx context.Context, _ ClearAllCommand) error {
	if err := h.store.ClearAll(ctx); err != nil {
		return err
	}
	h.logger.Warn("store cleared")
	return nil
}

// HandleImport validates the whole snapshot before anything is replaced.
func (h *StoreAdminCommandHandler) HandleImport(ctx context.Context, cmd ImportSnapshotCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := h.store.ImportSnapshot(ctx, cmd.Snapshot()); err != nil {
		return err
	}
	h.logger.Info("snapshot imported", zap.Int("bytes", len(cmd.Snapshot())))
	return nil
}
