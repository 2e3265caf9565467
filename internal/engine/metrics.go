package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for validation observability.
type Metrics struct {
	ValidationsTotal *prometheus.CounterVec // Validation runs by final hypothesis status
	AttemptsTotal    *prometheus.CounterVec // Disproof attempts by strategy and outcome
	QueryUnitsTotal  prometheus.Counter     // Budget units spent across all runs
	RunDuration      prometheus.Histogram   // Wall time of a full validation run
}

// NewMetrics creates Prometheus metrics for an engine instance.
// The registerer parameter allows flexible registration (e.g., global registry, test registry).
// The instanceName parameter enables multi-instance metric tracking via ConstLabels.
func NewMetrics(reg prometheus.Registerer, instanceName string) *Metrics {
	validationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "crucible_validations_total",
		Help:        "Total validation runs by final hypothesis status",
		ConstLabels: prometheus.Labels{"instance": instanceName},
	}, []string{"status"})

	attemptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "crucible_disproof_attempts_total",
		Help:        "Total disproof attempts by strategy and outcome",
		ConstLabels: prometheus.Labels{"instance": instanceName},
	}, []string{"strategy", "outcome"})

	queryUnitsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "crucible_query_units_total",
		Help:        "Total budget units spent on telemetry queries",
		ConstLabels: prometheus.Labels{"instance": instanceName},
	})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "crucible_validation_duration_seconds",
		Help:        "Wall time of a full validation run",
		ConstLabels: prometheus.Labels{"instance": instanceName},
		Buckets:     prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	reg.MustRegister(validationsTotal)
	reg.MustRegister(attemptsTotal)
	reg.MustRegister(queryUnitsTotal)
	reg.MustRegister(runDuration)

	return &Metrics{
		ValidationsTotal: validationsTotal,
		AttemptsTotal:    attemptsTotal,
		QueryUnitsTotal:  queryUnitsTotal,
		RunDuration:      runDuration,
	}
}

// attemptOutcome maps an attempt to its metric label.
func attemptOutcome(disproven, conclusive bool) string {
	switch {
	case !conclusive:
		return "inconclusive"
	case disproven:
		return "disproven"
	default:
		return "survived"
	}
}
