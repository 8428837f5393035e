package cin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks code allocation. A nil *Metrics records nothing.
type Metrics struct {
	Issued      *prometheus.CounterVec
	Conflicts   *prometheus.CounterVec
	Exhausted   *prometheus.CounterVec
	DurationSec *prometheus.HistogramVec
}

// NewMetrics registers the allocation metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_cin_issued_total",
			Help: "CINs claimed in the ledger, by kind",
		}, []string{"kind"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_cin_sequence_conflicts_total",
			Help: "Candidate sequences rejected by the ledger, by kind",
		}, []string{"kind"}),
		Exhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_cin_generation_conflicts_total",
			Help: "Generations that gave up after the retry budget, by kind",
		}, []string{"kind"}),
		DurationSec: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinregistry_cin_generation_duration_seconds",
			Help:    "Time to allocate and claim one CIN",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
	}
}

func (m *Metrics) incIssued(kind Kind) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) incConflict(kind Kind) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) incExhausted(kind Kind) {
	if m == nil {
		return
	}
	m.Exhausted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observe(kind Kind, start time.Time) {
	if m == nil {
		return
	}
	m.DurationSec.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}
