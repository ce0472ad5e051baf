package commands

import (
	"context"

	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/core/ports"

	"go.uber.org/zap"
)

type RegisterUserCommandHandler struct {
	store  ports.Store
	logger *zap.Logger
}

func NewRegisterUserCommandHandler(store ports.Store, logger *zap.Logger) RegisterUserCommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return RegisterUserCommandHandler{store: store, logger: logger}
}

// Handle fails with a validation error when the address is already registered.
func (h *RegisterUserCommandHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*user.User, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	u, err := h.store.CreateUser(ctx, cmd.Draft())
	if err != nil {
		return nil, err
	}
	h.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("address", u.Address.String()))
	return u, nil
}
