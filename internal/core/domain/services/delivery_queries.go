package services

import (
	"slices"
	"strings"
	"time"

	"cargotrust/internal/core/domain/model/delivery"
	"cargotrust/internal/core/domain/model/kernel"
	"cargotrust/internal/core/domain/model/ledgertx"

	"golang.org/x/text/cases"
)

// DeliveryPredicate selects deliveries for a read model.
type DeliveryPredicate func(d *delivery.Delivery) bool

// AnyDelivery matches every delivery.
func AnyDelivery() DeliveryPredicate {
	return func(*delivery.Delivery) bool { return true }
}

func ByRequester(requester kernel.Address) DeliveryPredicate {
	return func(d *delivery.Delivery) bool { return d.Requester().Equals(requester) }
}

func ByCarrier(carrier kernel.Address) DeliveryPredicate {
	return func(d *delivery.Delivery) bool {
		c, ok := d.Carrier()
		return ok && c.Equals(carrier)
	}
}

func ByStatus(status delivery.Status) DeliveryPredicate {
	return func(d *delivery.Delivery) bool { return d.Status() == status }
}

// OpenForCarriers matches deliveries a carrier can still accept.
func OpenForCarriers() DeliveryPredicate {
	return ByStatus(delivery.Open)
}

// CreatedBetween matches start <= createdAt <= end.
func CreatedBetween(start, end time.Time) DeliveryPredicate {
	return func(d *delivery.Delivery) bool {
		created := d.CreatedAt()
		return !created.Before(start) && !created.After(end)
	}
}

// Matching performs the free text search: query is a case-insensitive
// substring of origin, destination, description, requester or carrier.
// An empty query matches everything.
func Matching(query string) DeliveryPredicate {
	needle := FoldForSearch(query)
	return func(d *delivery.Delivery) bool {
		carrier, _ := d.Carrier()
		for _, field := range []string{
			d.Origin(), d.Destination(), d.Description(), d.Requester().String(), carrier.String(),
		} {
			if strings.Contains(FoldForSearch(field), needle) {
				return true
			}
		}
		return false
	}
}

// FoldForSearch applies Unicode case folding. Every engine folds both sides
// of a search with it so that results agree across engines.
func FoldForSearch(s string) string {
	return cases.Fold().String(s)
}

// SelectDeliveries returns copies of the deliveries matching p, newest first.
// all must be in insertion order; it is not modified.
func SelectDeliveries(all []*delivery.Delivery, p DeliveryPredicate) []*delivery.Delivery {
	out := make([]*delivery.Delivery, 0, len(all))
	for _, d := range all {
		if p(d) {
			out = append(out, d.Clone())
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders by createdAt descending. The sort is stable, so
// deliveries created in the same millisecond keep their insertion order.
func SortNewestFirst(ds []*delivery.Delivery) {
	slices.SortStableFunc(ds, func(a, b *delivery.Delivery) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})
}

// SortTransactionsNewestFirst is SortNewestFirst for the audit trail.
func SortTransactionsNewestFirst(txs []*ledgertx.Transaction) {
	slices.SortStableFunc(txs, func(a, b *ledgertx.Transaction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// AllOf matches deliveries satisfying every predicate. With no predicates it
// matches everything.
func AllOf(ps ...DeliveryPredicate) DeliveryPredicate {
	return func(d *delivery.Delivery) bool {
		for _, p := range ps {
			if !p(d) {
				return false
			}
		}
		return true
	}
}
