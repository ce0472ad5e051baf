package commands

import (
	"errors"
	"fmt"
	"strings"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrTransitionCommandIsNotConstructed = errors.New(
		"TransitionCommand must be created via one of the NewXxxCommand constructors",
	)
)

// TransitionCommand moves one delivery a step along its lifecycle.
//
// The actor is the party signing the ledger call. Accept requires the
// carrier taking the job. For the other milestones an empty actor means the
// assigned carrier, and for release and cancel it means the arbiter.
//
// Example:
//
//	cmd, err := NewAcceptDeliveryCommand(42, "GCARRIER")
//	if err != nil {
//	    return err
//	}
//	d, err := transitionHandler.Handle(ctx, cmd) // d.Status() == delivery.Accepted
type TransitionCommand struct { //nolint:recvcheck //using for validation
	deliveryID int64
	event      delivery.Event
	actor      kernel.Address

	guard guard.ConstructorGuard
}

// NewTransitionCommand builds the command for any lifecycle event.
func NewTransitionCommand(deliveryID int64, event delivery.Event, actor string) (TransitionCommand, error) {
	cmd := TransitionCommand{guard: guard.NewConstructorGuard()}

	if err := errors.Join(
		cmd.setDeliveryID(deliveryID),
		cmd.setEvent(event),
	); err != nil {
		return TransitionCommand{}, err
	}
	if err := cmd.setActor(event, actor); err != nil {
		return TransitionCommand{}, err
	}

	return cmd, nil
}

// NewAcceptDeliveryCommand assigns carrier to an open delivery.
func NewAcceptDeliveryCommand(deliveryID int64, carrier string) (TransitionCommand, error) {
	return NewTransitionCommand(deliveryID, delivery.EventAccept, carrier)
}

func NewConfirmPickupCommand(deliveryID int64, actor string) (TransitionCommand, error) {
	return NewTransitionCommand(deliveryID, delivery.EventPickup, actor)
}

func NewConfirmInTransitCommand(deliveryID int64, actor string) (TransitionCommand, error) {
	return NewTransitionCommand(deliveryID, delivery.EventTransit, actor)
}

func NewConfirmDeliveryCommand(deliveryID int64, actor string) (TransitionCommand, error) {
	return NewTransitionCommand(deliveryID, delivery.EventDeliver, actor)
}

// NewReleasePaymentCommand pays the carrier of a delivered job.
func NewReleasePaymentCommand(deliveryID int64, caller string) (TransitionCommand, error) {
	return NewTransitionCommand(deliveryID, delivery.EventRelease, caller)
}

// NewCancelDeliveryCommand refunds an open delivery nobody has accepted.
func NewCancelDeliveryCommand(deliveryID int64, caller string) (TransitionCommand, error) {
	return NewTransitionCommand(deliveryID, delivery.EventCancel, caller)
}

func (c TransitionCommand) Validate() error {
	return c.guard.Validate(ErrTransitionCommandIsNotConstructed)
}

func (c TransitionCommand) DeliveryID() int64     { return c.deliveryID }
func (c TransitionCommand) Event() delivery.Event { return c.event }

// Actor returns the signing party, zero when the default applies.
func (c TransitionCommand) Actor() kernel.Address { return c.actor }

func (c *TransitionCommand) setDeliveryID(id int64) error {
	if id <= 0 {
		return errs.NewValueIsOutOfRangeError("delivery id", id, 1, "max int64")
	}
	c.deliveryID = id
	return nil
}

func (c *TransitionCommand) setEvent(event delivery.Event) error {
	if _, ok := event.Target(); !ok {
		return errs.NewValueIsInvalidErrorWithCause("event", fmt.Errorf("%q is not a lifecycle event", string(event)))
	}
	c.event = event
	return nil
}

func (c *TransitionCommand) setActor(event delivery.Event, s string) error {
	if strings.TrimSpace(s) == "" {
		if event == delivery.EventAccept {
			return errs.NewValueIsRequiredError("carrier")
		}
		return nil
	}
	actor, err := kernel.NewAddress(s)
	if err != nil {
		return err
	}
	c.actor = actor
	return nil
}
