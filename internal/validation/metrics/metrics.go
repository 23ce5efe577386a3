package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for principal validation.
type Metrics struct {
	// Directory lookup latencies by namespace and normalized result
	LookupLatency *prometheus.HistogramVec

	// Validation outcomes by namespace and severity
	Outcomes *prometheus.CounterVec
}

// New creates the validation metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LookupLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "principalcheck_directory_lookup_duration_seconds",
			Help:    "Duration of directory lookups by namespace and result",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"namespace", "result"}), // namespace: "user", "group"

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "principalcheck_validation_outcomes_total",
			Help: "Total validation outcomes by namespace and severity",
		}, []string{"namespace", "severity"}),
	}
}

// ObserveLookup records the duration of one directory lookup.
func (m *Metrics) ObserveLookup(namespace, result string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(namespace, result).Observe(d.Seconds())
	}
}

// IncrementOutcome records a validation outcome.
func (m *Metrics) IncrementOutcome(namespace, severity string) {
	if m != nil {
		m.Outcomes.WithLabelValues(namespace, severity).Inc()
	}
}
