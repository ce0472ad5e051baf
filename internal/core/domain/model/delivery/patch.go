package delivery

import (
	"errors"
	"strings"

	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"
)

// Patch is a partial update of a delivery. Nil fields are left untouched.
// A non-nil Carrier holding the zero Address removes the carrier.
type Patch struct {
	Origin          *string
	Destination     *string
	Description     *string
	Amount          *kernel.Amount
	Status          *Status
	Deadline        *string
	Requester       *kernel.Address
	Carrier         *kernel.Address
	Distance        *string
	EstimatedTime   *string
	ContractAddress *string
	TransactionHash *string
}

// IsEmpty reports whether p changes no field.
func (p Patch) IsEmpty() bool {
	return p.Origin == nil && p.Destination == nil && p.Description == nil &&
		p.Amount == nil && p.Status == nil && p.Deadline == nil &&
		p.Requester == nil && p.Carrier == nil && p.Distance == nil &&
		p.EstimatedTime == nil && p.ContractAddress == nil && p.TransactionHash == nil
}

func (p Patch) mergeInto(d *Delivery) error {
	var errList []error
	if p.Origin != nil {
		errList = append(errList, d.setOrigin(*p.Origin))
	}
	if p.Destination != nil {
		errList = append(errList, d.setDestination(*p.Destination))
	}
	if p.Amount != nil {
		errList = append(errList, d.setAmount(*p.Amount))
	}
	if p.Deadline != nil {
		errList = append(errList, d.setDeadline(*p.Deadline))
	}
	if p.Requester != nil {
		errList = append(errList, d.setRequester(*p.Requester))
	}
	if p.Status != nil {
		if err := p.Status.Validate(); err != nil {
			errList = append(errList, err)
		} else {
			d.status = *p.Status
		}
	}
	if err := errors.Join(errList...); err != nil {
		return err
	}

	if p.Description != nil {
		d.description = *p.Description
	}
	if p.Carrier != nil {
		d.carrier = *p.Carrier
	}
	if p.Distance != nil {
		d.distance = *p.Distance
	}
	if p.EstimatedTime != nil {
		d.estimatedTime = *p.EstimatedTime
	}
	if p.ContractAddress != nil {
		d.contractAddress = *p.ContractAddress
	}
	if p.TransactionHash != nil {
		d.transactionHash = *p.TransactionHash
	}
	return nil
}

// ValidateRoute rejects a route whose origin and destination are the same
// place, ignoring case and surrounding whitespace.
func ValidateRoute(origin, destination string) error {
	if strings.EqualFold(strings.TrimSpace(origin), strings.TrimSpace(destination)) {
		return errs.NewValueIsInvalidError("destination must differ from origin")
	}
	return nil
}
