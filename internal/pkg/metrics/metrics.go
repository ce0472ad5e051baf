// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing,
// which keeps tests free of registry setup.
type Metrics struct {
	Transitions         *prometheus.CounterVec
	LedgerCallDuration  *prometheus.HistogramVec
	PersistenceFailures *prometheus.CounterVec
	Reconciled          prometheus.Counter
	StoreBytes          *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargotrust_delivery_transitions_total",
				Help: "Lifecycle transitions attempted, by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		LedgerCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cargotrust_ledger_call_duration_seconds",
				Help:    "Duration of escrow ledger calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		PersistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargotrust_persistence_write_failures_total",
				Help: "Writes rejected by the persistence primitive",
			},
			[]string{"backend"},
		),
		Reconciled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cargotrust_reconciled_transitions_total",
				Help: "Transitions replayed from ledger history by reconciliation",
			},
		),
		StoreBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cargotrust_store_bytes",
				Help: "Persistence primitive usage",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.Transitions, m.LedgerCallDuration, m.PersistenceFailures, m.Reconciled, m.StoreBytes)
	return m
}

func (m *Metrics) ObserveTransition(event, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) ObserveLedgerCall(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.LedgerCallDuration.WithLabelValues(operation, outcome).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObservePersistenceFailure(backend string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(backend).Inc()
}

func (m *Metrics) ObserveReconciled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Reconciled.Add(float64(n))
}

func (m *Metrics) SetStoreUsage(used, capacity int64) {
	if m == nil {
		return
	}
	m.StoreBytes.WithLabelValues("used").Set(float64(used))
	m.StoreBytes.WithLabelValues("capacity").Set(float64(capacity))
}
