// Package metrics exposes prometheus counters for reservation outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reservation outcome label values.
const (
	OutcomeReserved     = "reserved"
	OutcomeReleased     = "released"
	OutcomeNotFound     = "record_not_found"
	OutcomeMismatch     = "market_mismatch"
	OutcomeInsufficient = "insufficient_availability"
	OutcomeError        = "error"
)

// Reservations counts ledger operations by outcome.
type Reservations struct {
	total *prometheus.CounterVec
}

// NewReservations registers the reservation counters with reg.
func NewReservations(reg prometheus.Registerer) *Reservations {
	m := &Reservations{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "florahub_reservations_total",
			Help: "Reservation ledger operations by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.total)
	return m
}

// Observe records one operation outcome.
func (m *Reservations) Observe(outcome string) {
	m.total.WithLabelValues(outcome).Inc()
}
