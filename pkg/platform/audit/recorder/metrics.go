package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit write health. A nil *Metrics is valid and records nothing.
type Metrics struct {
	EntriesRecorded  *prometheus.CounterVec
	WriteFailures    prometheus.Counter
	RetrySuccesses   prometheus.Counter
	PendingEntries   prometheus.Gauge
	IntegrityAlarms  *prometheus.CounterVec
	WriteDurationSec prometheus.Histogram
}

// NewMetrics registers the recorder metrics on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_audit_entries_recorded_total",
			Help: "Audit entries persisted, by action",
		}, []string{"action"}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinregistry_audit_write_failures_total",
			Help: "Audit writes that failed and were parked for retry",
		}),
		RetrySuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinregistry_audit_retry_successes_total",
			Help: "Parked audit entries persisted by the retrier",
		}),
		PendingEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cinregistry_audit_pending_entries",
			Help: "Audit entries waiting for a retry",
		}),
		IntegrityAlarms: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_audit_integrity_alarms_total",
			Help: "Integrity alarms raised, by reason",
		}, []string{"reason"}),
		WriteDurationSec: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cinregistry_audit_write_duration_seconds",
			Help:    "Duration of synchronous audit writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) incRecorded(action string) {
	if m == nil {
		return
	}
	m.EntriesRecorded.WithLabelValues(action).Inc()
}

func (m *Metrics) incWriteFailure() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}

func (m *Metrics) incRetrySuccess() {
	if m == nil {
		return
	}
	m.RetrySuccesses.Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.PendingEntries.Set(float64(n))
}

func (m *Metrics) incAlarm(reason AlarmReason) {
	if m == nil {
		return
	}
	m.IntegrityAlarms.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) observeWrite(seconds float64) {
	if m == nil {
		return
	}
	m.WriteDurationSec.Observe(seconds)
}
