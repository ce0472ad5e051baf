package queries

import (
	"errors"
	"strings"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/pkg/errs"
	"cargotrust/internal/pkg/guard"
)

var (
	ErrListDeliveriesQueryIsNotConstructed = errors.New(
		"ListDeliveriesQuery must be created via NewListDeliveriesQuery constructor",
	)
)

// DeliveryFilter is the raw list request. Empty fields do not filter; set
// fields are combined with AND.
type DeliveryFilter struct {
	Requester string
	Carrier   string
	Status    string
	// OpenOnly lists the jobs carriers can still accept.
	OpenOnly bool
	// CreatedFrom and CreatedTo bound createdAt inclusively. Both or neither.
	CreatedFrom time.Time
	CreatedTo   time.Time
	Search      string
}

// ListDeliveriesQuery lists deliveries newest first.
//
// Example:
//
//	query, err := NewListDeliveriesQuery(DeliveryFilter{Requester: "GREQ", Search: "lagos"})
//	if err != nil {
//	    return err
//	}
//	ds, err := handler.Handle(ctx, query)
type ListDeliveriesQuery struct {
	requester kernel.Address
	carrier   kernel.Address
	status    delivery.Status
	openOnly  bool
	from, to  time.Time
	search    string

	guard guard.ConstructorGuard
}

func NewListDeliveriesQuery(f DeliveryFilter) (ListDeliveriesQuery, error) {
	q := ListDeliveriesQuery{
		openOnly: f.OpenOnly,
		search:   strings.TrimSpace(f.Search),
		guard:    guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		q.setRequester(f.Requester),
		q.setCarrier(f.Carrier),
		q.setStatus(f.Status),
		q.setRange(f.CreatedFrom, f.CreatedTo),
	); err != nil {
		return ListDeliveriesQuery{}, err
	}
	return q, nil
}

func (q ListDeliveriesQuery) Validate() error {
	return q.guard.Validate(ErrListDeliveriesQueryIsNotConstructed)
}

func (q ListDeliveriesQuery) Requester() (kernel.Address, bool) { return q.requester, !q.requester.IsZero() }
func (q ListDeliveriesQuery) Carrier() (kernel.Address, bool)   { return q.carrier, !q.carrier.IsZero() }
func (q ListDeliveriesQuery) Status() (delivery.Status, bool)   { return q.status, q.status != delivery.Unknown }
func (q ListDeliveriesQuery) OpenOnly() bool                     { return q.openOnly }
func (q ListDeliveriesQuery) Search() string                     { return q.search }

// CreatedBetween returns the inclusive range and whether one was given.
func (q ListDeliveriesQuery) CreatedBetween() (time.Time, time.Time, bool) {
	return q.from, q.to, !q.from.IsZero()
}

func (q *ListDeliveriesQuery) setRequester(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	a, err := kernel.NewAddress(s)
	if err != nil {
		return err
	}
	q.requester = a
	return nil
}

func (q *ListDeliveriesQuery) setCarrier(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	a, err := kernel.NewAddress(s)
	if err != nil {
		return err
	}
	q.carrier = a
	return nil
}

func (q *ListDeliveriesQuery) setStatus(s string) error {
	if s == "" {
		return nil
	}
	status, err := delivery.ParseStatus(s)
	if err != nil {
		return err
	}
	q.status = status
	return nil
}

func (q *ListDeliveriesQuery) setRange(from, to time.Time) error {
	if from.IsZero() != to.IsZero() {
		return errs.NewValueIsRequiredError("date range bound")
	}
	if to.Before(from) {
		return errs.NewValueIsInvalidErrorWithCause("date range", errors.New("end is before start"))
	}
	q.from, q.to = from, to
	return nil
}
