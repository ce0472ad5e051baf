package delivery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"
)

var (
	// ErrDeliveryIsNotConstructed is returned when a Delivery was not created
	// through New or Restore.
	ErrDeliveryIsNotConstructed = errors.New("Delivery must be created via New or Restore")
)

// Draft carries the caller supplied fields of a new delivery. The store
// assigns the id and timestamps.
type Draft struct {
	Origin          string
	Destination     string
	Description     string
	Amount          kernel.Amount
	Deadline        string
	Requester       kernel.Address
	Distance        string
	EstimatedTime   string
	ContractAddress string
	TransactionHash string
}

// State is the flat persisted form of a Delivery. Persistence adapters
// convert to and from it; Restore validates it.
type State struct {
	ID              int64
	Origin          string
	Destination     string
	Description     string
	Amount          string
	Status          Status
	Deadline        string
	Requester       string
	Carrier         string
	Distance        string
	EstimatedTime   string
	ContractAddress string
	TransactionHash string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Delivery is the aggregate root for a delivery job: who posted it, what it
// pays, who carries it and where it is in its lifecycle.
//
// Delivery follows these invariants:
//   - id is positive and assigned by the store
//   - origin, destination, deadline and requester are present
//   - amount is a non-negative decimal
//   - Open and Refunded deliveries have no carrier, all other statuses have one
//   - createdAt is never after updatedAt
type Delivery struct {
	id              int64
	origin          string
	destination     string
	description     string
	amount          kernel.Amount
	status          Status
	deadline        string
	requester       kernel.Address
	carrier         kernel.Address
	distance        string
	estimatedTime   string
	contractAddress string
	transactionHash string
	createdAt       time.Time
	updatedAt       time.Time

	isConstructed bool
}

// New creates an Open delivery from a draft.
//
// Example:
//
//	d, err := delivery.New(1, delivery.Draft{
//	    Origin:      "Lagos",
//	    Destination: "Abuja",
//	    Amount:      kernel.MustAmount("10"),
//	    Deadline:    "2025-12-31",
//	    Requester:   kernel.MustAddress("GREQ"),
//	}, clock.Now())
func New(id int64, draft Draft, now time.Time) (*Delivery, error) {
	now = kernel.Millis(now)
	d := &Delivery{
		status:          Open,
		description:     draft.Description,
		distance:        draft.Distance,
		estimatedTime:   draft.EstimatedTime,
		contractAddress: draft.ContractAddress,
		transactionHash: draft.TransactionHash,
		createdAt:       now,
		updatedAt:       now,
		isConstructed:   true,
	}

	if err := errors.Join(
		d.setID(id),
		d.setOrigin(draft.Origin),
		d.setDestination(draft.Destination),
		d.setAmount(draft.Amount),
		d.setDeadline(draft.Deadline),
		d.setRequester(draft.Requester),
	); err != nil {
		return nil, err
	}

	return d, nil
}

// Restore rebuilds a Delivery from persisted state, checking every invariant.
func Restore(s State) (*Delivery, error) {
	d := &Delivery{
		description:     s.Description,
		distance:        s.Distance,
		estimatedTime:   s.EstimatedTime,
		contractAddress: s.ContractAddress,
		transactionHash: s.TransactionHash,
		createdAt:       kernel.Millis(s.CreatedAt),
		updatedAt:       kernel.Millis(s.UpdatedAt),
		isConstructed:   true,
	}

	if err := errors.Join(
		d.setID(s.ID),
		d.setOrigin(s.Origin),
		d.setDestination(s.Destination),
		d.restoreAmount(s.Amount),
		d.setDeadline(s.Deadline),
		d.restoreRequester(s.Requester),
		d.restoreCarrier(s.Carrier),
		s.Status.Validate(),
	); err != nil {
		return nil, fmt.Errorf("restore delivery %d: %w", s.ID, err)
	}

	if err := s.Status.ValidateCanHaveCarrier(!d.carrier.IsZero()); err != nil {
		return nil, fmt.Errorf("restore delivery %d: %w", s.ID, err)
	}
	if d.updatedAt.Before(d.createdAt) {
		return nil, fmt.Errorf("restore delivery %d: %w", s.ID,
			errs.NewValueIsInvalidErrorWithCause("updatedAt", errors.New("is before createdAt")))
	}

	d.status = s.Status
	return d, nil
}

// Validate ensures the Delivery was created via New or Restore.
func (d *Delivery) Validate() error {
	if d == nil || !d.isConstructed {
		return ErrDeliveryIsNotConstructed
	}
	return nil
}

// State returns the persisted form of d.
func (d *Delivery) State() State {
	return State{
		ID:              d.id,
		Origin:          d.origin,
		Destination:     d.destination,
		Description:     d.description,
		Amount:          d.amount.String(),
		Status:          d.status,
		Deadline:        d.deadline,
		Requester:       d.requester.String(),
		Carrier:         d.carrier.String(),
		Distance:        d.distance,
		EstimatedTime:   d.estimatedTime,
		ContractAddress: d.contractAddress,
		TransactionHash: d.transactionHash,
		CreatedAt:       d.createdAt,
		UpdatedAt:       d.updatedAt,
	}
}

// Clone returns an independent copy. Stores hand out clones so callers can
// never mutate stored state.
func (d *Delivery) Clone() *Delivery {
	c := *d
	return &c
}

func (d *Delivery) ID() int64                 { return d.id }
func (d *Delivery) Origin() string            { return d.origin }
func (d *Delivery) Destination() string       { return d.destination }
func (d *Delivery) Description() string       { return d.description }
func (d *Delivery) Amount() kernel.Amount     { return d.amount }
func (d *Delivery) Status() Status            { return d.status }
func (d *Delivery) Deadline() string          { return d.deadline }
func (d *Delivery) Requester() kernel.Address { return d.requester }
func (d *Delivery) Distance() string          { return d.distance }
func (d *Delivery) EstimatedTime() string     { return d.estimatedTime }
func (d *Delivery) ContractAddress() string   { return d.contractAddress }
func (d *Delivery) TransactionHash() string   { return d.transactionHash }
func (d *Delivery) CreatedAt() time.Time      { return d.createdAt }
func (d *Delivery) UpdatedAt() time.Time      { return d.updatedAt }

// Carrier returns the assigned carrier and whether there is one.
func (d *Delivery) Carrier() (kernel.Address, bool) {
	return d.carrier, !d.carrier.IsZero()
}

// HasEscrow reports whether the delivery is linked to an escrow on the ledger.
func (d *Delivery) HasEscrow() bool {
	return d.contractAddress != ""
}

// SetStatus overwrites the status. The carrier is only replaced when a
// non-empty one is given. Nothing changes if the result would break the
// status/carrier invariant.
//
// SetStatus does not check lifecycle order; use Status.Apply for that.
func (d *Delivery) SetStatus(status Status, carrier kernel.Address, now time.Time) error {
	if err := status.Validate(); err != nil {
		return err
	}
	next := d.carrier
	if !carrier.IsZero() {
		next = carrier
	}
	if err := status.ValidateCanHaveCarrier(!next.IsZero()); err != nil {
		return err
	}

	d.status = status
	d.carrier = next
	d.touch(now)
	return nil
}

// ApplyPatch merges the provided fields of p. updatedAt is refreshed even for
// an empty patch. The patch is applied all or nothing.
func (d *Delivery) ApplyPatch(p Patch, now time.Time) error {
	next := *d
	if err := p.mergeInto(&next); err != nil {
		return err
	}
	if err := next.status.ValidateCanHaveCarrier(!next.carrier.IsZero()); err != nil {
		return err
	}
	next.touch(now)
	*d = next
	return nil
}

func (d *Delivery) touch(now time.Time) {
	now = kernel.Millis(now)
	if now.Before(d.createdAt) {
		now = d.createdAt
	}
	d.updatedAt = now
}

func (d *Delivery) setID(id int64) error {
	if id <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("id", fmt.Errorf("%d is not greater than 0", id))
	}
	d.id = id
	return nil
}

func (d *Delivery) setOrigin(origin string) error {
	if strings.TrimSpace(origin) == "" {
		return errs.NewValueIsRequiredError("origin")
	}
	d.origin = origin
	return nil
}

func (d *Delivery) setDestination(destination string) error {
	if strings.TrimSpace(destination) == "" {
		return errs.NewValueIsRequiredError("destination")
	}
	d.destination = destination
	return nil
}

func (d *Delivery) setAmount(amount kernel.Amount) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	d.amount = amount
	return nil
}

func (d *Delivery) restoreAmount(text string) error {
	amount, err := kernel.NewAmount(text)
	if err != nil {
		return err
	}
	d.amount = amount
	return nil
}

func (d *Delivery) restoreRequester(s string) error {
	requester, err := kernel.NewAddress(s)
	if err != nil {
		return err
	}
	d.requester = requester
	return nil
}

func (d *Delivery) restoreCarrier(s string) error {
	if s == "" {
		return nil
	}
	carrier, err := kernel.NewAddress(s)
	if err != nil {
		return err
	}
	d.carrier = carrier
	return nil
}

func (d *Delivery) setDeadline(deadline string) error {
	if strings.TrimSpace(deadline) == "" {
		return errs.NewValueIsRequiredError("deadline")
	}
	d.deadline = deadline
	return nil
}

func (d *Delivery) setRequester(requester kernel.Address) error {
	if requester.IsZero() {
		return errs.NewValueIsRequiredError("requester")
	}
	d.requester = requester
	return nil
}
