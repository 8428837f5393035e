package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enrollment module.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EnrolleesRegistered prometheus.Counter
	PaymentTransitions  *prometheus.CounterVec
	CINIssuanceFailures *prometheus.CounterVec
	FacilityChanges     prometheus.Counter
	DependantChanges    *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
}

// New registers the enrollment metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EnrolleesRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinregistry_enrollees_registered_total",
			Help: "Total number of enrollees registered",
		}),
		PaymentTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_payment_transitions_total",
			Help: "Committed payment status transitions",
		}, []string{"from", "to"}),
		CINIssuanceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_cin_issuance_failures_total",
			Help: "Confirmed enrollees left without a CIN, by error code",
		}, []string{"code"}),
		FacilityChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "cinregistry_facility_reassignments_total",
			Help: "Committed facility reassignments",
		}),
		DependantChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cinregistry_dependant_changes_total",
			Help: "Dependants added or removed",
		}, []string{"change"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinregistry_enrollment_operation_duration_seconds",
			Help:    "Duration of enrollment service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m == nil {
		return
	}
	m.EnrolleesRegistered.Inc()
}

func (m *Metrics) IncrementPaymentTransition(from, to string) {
	if m == nil {
		return
	}
	m.PaymentTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementIssuanceFailure(code string) {
	if m == nil {
		return
	}
	m.CINIssuanceFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) IncrementFacilityChange() {
	if m == nil {
		return
	}
	m.FacilityChanges.Inc()
}

func (m *Metrics) IncrementDependantChange(change string) {
	if m == nil {
		return
	}
	m.DependantChanges.WithLabelValues(change).Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
