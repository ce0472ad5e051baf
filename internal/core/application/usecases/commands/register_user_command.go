package commands

import (
	"errors"
	"strings"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/user"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrRegisterUserCommandIsNotConstructed = errors.New(
		"RegisterUserCommand must be created via NewRegisterUserCommand constructor",
	)
)

// RegisterUserCommand stores the profile behind a wallet address.
type RegisterUserCommand struct { //nolint:recvcheck //using for validation
	draft user.Draft

	guard guard.ConstructorGuard
}

func NewRegisterUserCommand(address, name, email, phone string) (RegisterUserCommand, error) {
	addr, err := kernel.NewAddress(address)
	if err != nil {
		return RegisterUserCommand{}, err
	}
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return RegisterUserCommand{}, errs.NewValueIsInvalidError("email")
	}
	return RegisterUserCommand{
		draft: user.Draft{
			Address: addr,
			Name:    strings.TrimSpace(name),
			Email:   email,
			Phone:   strings.TrimSpace(phone),
		},
		guard: guard.NewConstructorGuard(),
	}, nil
}

func (c RegisterUserCommand) Validate() error {
	return c.guard.Validate(ErrRegisterUserCommandIsNotConstructed)
}

func (c RegisterUserCommand) Draft() user.Draft { return c.draft }
