// Package guard lets value objects and use-case messages detect that they were
// built through their constructor rather than as a zero value.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when no specific error is given.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard is embedded in structs whose zero value is not usable.
// The flag is only set by NewConstructorGuard, so a struct literal or a zero
// value fails Validate.
//
// Example:
//
//	type AcceptDeliveryCommand struct {
//	    deliveryID int64
//	    carrier    kernel.Address
//	    guard      guard.ConstructorGuard
//	}
//
//	func (c AcceptDeliveryCommand) Validate() error {
//	    return c.guard.Validate(ErrAcceptDeliveryCommandIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard marks the enclosing object as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is
// nil) if the guard is a zero value, and nil otherwise.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
