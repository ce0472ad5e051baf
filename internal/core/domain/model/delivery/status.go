package delivery

import (
	"fmt"

	"cargotrust/internal/pkg/errs"
)

// Status represents the lifecycle state of a delivery.
//
// State transitions:
//
//	Open ──> Accepted ──> PickedUp ──> InTransit ──> Delivered ──> Completed
//	  │
//	  └────> Refunded
//
// Completed and Refunded are final. Statuses are persisted by their string
// value, which is also the value exchanged with clients.
type Status string

const (
	// Unknown is the zero value and never a valid status.
	Unknown Status = ""

	// Open is the initial status. The escrow is funded and the delivery is
	// waiting for a carrier.
	Open Status = "open"

	// Accepted means a carrier has taken the job.
	Accepted Status = "accepted"

	PickedUp  Status = "picked_up"
	InTransit Status = "in_transit"
	Delivered Status = "delivered"

	// Completed means the escrow was released to the carrier.
	Completed Status = "completed"

	// Refunded means the requester cancelled an open delivery and the escrow
	// was returned.
	Refunded Status = "refunded"
)

// Event is a lifecycle command applied to a Status.
type Event string

const (
	EventAccept  Event = "accept"
	EventPickup  Event = "pickup"
	EventTransit Event = "transit"
	EventDeliver Event = "deliver"
	EventRelease Event = "release"
	EventCancel  Event = "cancel"
)

type transition struct {
	from Status
	to   Status
}

func getTransitions() map[Event]transition {
	return map[Event]transition{
		EventAccept:  {from: Open, to: Accepted},
		EventPickup:  {from: Accepted, to: PickedUp},
		EventTransit: {from: PickedUp, to: InTransit},
		EventDeliver: {from: InTransit, to: Delivered},
		EventRelease: {from: Delivered, to: Completed},
		EventCancel:  {from: Open, to: Refunded},
	}
}

// AllStatuses lists the valid statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{Open, Accepted, PickedUp, InTransit, Delivered, Completed, Refunded}
}

// ParseStatus converts a persisted or client supplied value into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if err := status.Validate(); err != nil {
		return Unknown, err
	}
	return status, nil
}

// Validate checks that s is one of AllStatuses.
func (s Status) Validate() error {
	for _, valid := range AllStatuses() {
		if s == valid {
			return nil
		}
	}
	return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", string(s)))
}

func (s Status) String() string {
	if s == Unknown {
		return "unknown"
	}
	return string(s)
}

// IsFinal reports whether no further transition is possible from s.
func (s Status) IsFinal() bool {
	return s == Completed || s == Refunded
}

// RequiresCarrier reports whether a delivery in status s must have a carrier.
func (s Status) RequiresCarrier() bool {
	switch s {
	case Accepted, PickedUp, InTransit, Delivered, Completed:
		return true
	default:
		return false
	}
}

// ValidateCanHaveCarrier validates the consistency between status and carrier
// assignment:
//   - Open and Refunded deliveries must not have a carrier
//   - Accepted through Completed deliveries must have one
func (s Status) ValidateCanHaveCarrier(hasCarrier bool) error {
	if hasCarrier && !s.RequiresCarrier() {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have a carrier", s),
		)
	}
	if !hasCarrier && s.RequiresCarrier() {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have no carrier", s),
		)
	}
	return nil
}

// Apply returns the status reached by applying e to s. Any event that is not
// enabled in s is rejected with a validation error.
//
// Example:
//
//	next, err := delivery.Open.Apply(delivery.EventAccept) // Accepted, nil
//	_, err = delivery.Open.Apply(delivery.EventRelease)    // error
func (s Status) Apply(e Event) (Status, error) {
	t, ok := getTransitions()[e]
	if !ok {
		return Unknown, errs.NewValueIsInvalidErrorWithCause("event is invalid", fmt.Errorf("%q is not a lifecycle event", string(e)))
	}
	if s != t.from {
		return Unknown, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to %s", s, e),
		)
	}
	return t.to, nil
}

// Accept transitions Open to Accepted.
func (s Status) Accept() (Status, error) { return s.Apply(EventAccept) }

// ConfirmPickup transitions Accepted to PickedUp.
func (s Status) ConfirmPickup() (Status, error) { return s.Apply(EventPickup) }

// ConfirmInTransit transitions PickedUp to InTransit.
func (s Status) ConfirmInTransit() (Status, error) { return s.Apply(EventTransit) }

// ConfirmDelivery transitions InTransit to Delivered.
func (s Status) ConfirmDelivery() (Status, error) { return s.Apply(EventDeliver) }

// ReleasePayment transitions Delivered to Completed.
func (s Status) ReleasePayment() (Status, error) { return s.Apply(EventRelease) }

// Cancel transitions Open to Refunded.
func (s Status) Cancel() (Status, error) { return s.Apply(EventCancel) }

// Target returns the status an event leads to, regardless of the current one.
func (e Event) Target() (Status, bool) {
	t, ok := getTransitions()[e]
	return t.to, ok
}
