package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrCreateDeliveryCommandIsNotConstructed = errors.New(
		"CreateDeliveryCommand must be created via NewCreateDeliveryCommand constructor",
	)
)

// CreateDeliveryInput is the raw request of a requester posting a job, as it
// arrives from a client.
type CreateDeliveryInput struct {
	Origin           string
	Destination      string
	Description      string
	Amount           string
	PickupDeadline   time.Time
	DeliveryDeadline time.Time
	Requester        string

	// Display hints computed by the client, stored verbatim.
	Distance      string
	EstimatedTime string
}

// CreateDeliveryCommand represents a requester posting a delivery job and
// locking its payment in escrow.
//
// Example:
//
//	cmd, err := NewCreateDeliveryCommand(CreateDeliveryInput{
//	    Origin:           "Lagos",
//	    Destination:      "Abuja",
//	    Amount:           "25.50",
//	    PickupDeadline:   time.Now().Add(24 * time.Hour),
//	    DeliveryDeadline: time.Now().Add(72 * time.Hour),
//	    Requester:        "GREQUESTER",
//	})
//	if err != nil {
//	    return fmt.Errorf("invalid delivery: %w", err)
//	}
//
//	d, err := handler.Handle(ctx, cmd)
type CreateDeliveryCommand struct { //nolint:recvcheck //using for validation
	origin           string
	destination      string
	description      string
	amount           kernel.Amount
	amountStroops    int64
	pickupDeadline   time.Time
	deliveryDeadline time.Time
	requester        kernel.Address
	distance         string
	estimatedTime    string

	guard guard.ConstructorGuard
}

// NewCreateDeliveryCommand validates everything that does not depend on the
// current time: route, a positive amount, the requester and the order of the
// two deadlines.
func NewCreateDeliveryCommand(in CreateDeliveryInput) (CreateDeliveryCommand, error) {
	cmd := CreateDeliveryCommand{
		description:   in.Description,
		distance:      in.Distance,
		estimatedTime: in.EstimatedTime,
		guard:         guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setRoute(in.Origin, in.Destination),
		cmd.setAmount(in.Amount),
		cmd.setRequester(in.Requester),
		cmd.setDeadlines(in.PickupDeadline, in.DeliveryDeadline),
	); err != nil {
		return CreateDeliveryCommand{}, err
	}

	return cmd, nil
}

func (c CreateDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrCreateDeliveryCommandIsNotConstructed)
}

func (c CreateDeliveryCommand) Origin() string              { return c.origin }
func (c CreateDeliveryCommand) Destination() string         { return c.destination }
func (c CreateDeliveryCommand) Description() string         { return c.description }
func (c CreateDeliveryCommand) Amount() kernel.Amount       { return c.amount }
func (c CreateDeliveryCommand) AmountStroops() int64        { return c.amountStroops }
func (c CreateDeliveryCommand) PickupDeadline() time.Time   { return c.pickupDeadline }
func (c CreateDeliveryCommand) DeliveryDeadline() time.Time { return c.deliveryDeadline }
func (c CreateDeliveryCommand) Requester() kernel.Address   { return c.requester }
func (c CreateDeliveryCommand) Distance() string            { return c.distance }
func (c CreateDeliveryCommand) EstimatedTime() string       { return c.estimatedTime }

// Draft is the store draft of the delivery, linked to the funded escrow.
func (c CreateDeliveryCommand) Draft(escrowID, fundHash string) delivery.Draft {
	return delivery.Draft{
		Origin:          c.origin,
		Destination:     c.destination,
		Description:     c.description,
		Amount:          c.amount,
		Deadline:        c.deliveryDeadline.UTC().Format(time.DateOnly),
		Requester:       c.requester,
		Distance:        c.distance,
		EstimatedTime:   c.estimatedTime,
		ContractAddress: escrowID,
		TransactionHash: fundHash,
	}
}

func (c *CreateDeliveryCommand) setRoute(origin, destination string) error {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if origin == "" {
		return errs.NewValueIsRequiredError("origin")
	}
	if destination == "" {
		return errs.NewValueIsRequiredError("destination")
	}
	if err := delivery.ValidateRoute(origin, destination); err != nil {
		return err
	}

	c.origin, c.destination = origin, destination
	return nil
}

func (c *CreateDeliveryCommand) setAmount(text string) error {
	amount, err := kernel.NewAmount(text)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errs.NewValueIsInvalidErrorWithCause("amount", fmt.Errorf("%s is not greater than 0", amount))
	}
	stroops, err := amount.Stroops()
	if err != nil {
		return err
	}

	c.amount, c.amountStroops = amount, stroops
	return nil
}

func (c *CreateDeliveryCommand) setRequester(s string) error {
	requester, err := kernel.NewAddress(s)
	if err != nil {
		return err
	}

	c.requester = requester
	return nil
}

func (c *CreateDeliveryCommand) setDeadlines(pickup, deliver time.Time) error {
	if pickup.IsZero() {
		return errs.NewValueIsRequiredError("pickup deadline")
	}
	if deliver.IsZero() {
		return errs.NewValueIsRequiredError("delivery deadline")
	}
	if !deliver.After(pickup) {
		return errs.NewValueIsInvalidErrorWithCause("delivery deadline",
			errors.New("must be after the pickup deadline"))
	}

	c.pickupDeadline, c.deliveryDeadline = pickup, deliver
	return nil
}
