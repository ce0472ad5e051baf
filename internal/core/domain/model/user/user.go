// Package user models the people behind wallet addresses. Deliveries refer to
// users only by address, so a user record is optional profile data.
package user

import (
	"strings"
	"time"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"
)

// Draft is the caller supplied part of a new user.
type Draft struct {
	Address kernel.Address
	Name    string
	Email   string
	Phone   string
}

// User is a registered wallet owner. Address is unique within a store.
type User struct {
	ID        int64
	Address   kernel.Address
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a user with the id assigned by the store.
func New(id int64, draft Draft, now time.Time) (*User, error) {
	if id <= 0 {
		return nil, errs.NewValueIsOutOfRangeError("user id", id, 1, "max int64")
	}
	if draft.Address.IsZero() {
		return nil, errs.NewValueIsRequiredError("address")
	}
	if draft.Email != "" && !strings.Contains(draft.Email, "@") {
		return nil, errs.NewValueIsInvalidError("email")
	}
	now = kernel.Millis(now)
	return &User{
		ID:        id,
		Address:   draft.Address,
		Name:      draft.Name,
		Email:     draft.Email,
		Phone:     draft.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) Clone() *User {
	c := *u
	return &c
}
