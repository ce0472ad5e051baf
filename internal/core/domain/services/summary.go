package services

import (
	"cargotrust/internal/core/domain/model/delivery"

	"github.com/shopspring/decimal"
)

// Summary is the dashboard read model over a set of deliveries.
type Summary struct {
	Total    int
	ByStatus map[delivery.Status]int
	// Escrowed is the sum of amounts still held: deliveries that are neither
	// completed nor refunded.
	Escrowed decimal.Decimal
	// Released is the sum paid out to carriers.
	Released decimal.Decimal
}

func Summarize(ds []*delivery.Delivery) Summary {
	s := Summary{
		Total:    len(ds),
		ByStatus: make(map[delivery.Status]int, len(delivery.AllStatuses())),
		Escrowed: decimal.Zero,
		Released: decimal.Zero,
	}
	for _, status := range delivery.AllStatuses() {
		s.ByStatus[status] = 0
	}
	for _, d := range ds {
		s.ByStatus[d.Status()]++
		switch {
		case d.Status() == delivery.Completed:
			s.Released = s.Released.Add(d.Amount().Decimal())
		case !d.Status().IsFinal():
			s.Escrowed = s.Escrowed.Add(d.Amount().Decimal())
		}
	}
	return s
}
