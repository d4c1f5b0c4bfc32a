package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed correlation runs.
	OutcomeSuccess = "success"
	// OutcomeFetchError labels runs that could not read the metric store.
	OutcomeFetchError = "fetch_error"
	// OutcomePersistError labels runs whose batch append was rejected.
	OutcomePersistError = "persist_error"
	// OutcomeError labels any other failure.
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_roi",
			Name:      "runs_total",
			Help:      "Total number of correlation runs handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_roi",
			Name:      "run_seconds",
			Help:      "Correlation run latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)

	insightsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_roi",
			Name:      "insights_total",
			Help:      "Correlation insights produced and persisted.",
		},
	)

	skippedMetricsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_roi",
			Name:      "skipped_metrics_total",
			Help:      "Business metrics skipped for having too few joined samples.",
		},
	)

	rejectedObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_roi",
			Name:      "rejected_observations_total",
			Help:      "Observations rejected at ingestion or dropped before correlation.",
		},
		[]string{"stage"},
	)
)

// Register attaches mirador-roi collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		insightsTotal,
		skippedMetricsTotal,
		rejectedObservationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeFetchError, OutcomePersistError:
	default:
		outcome = OutcomeError
	}
	runsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// AddInsights counts persisted insights.
func AddInsights(n int) {
	if n > 0 {
		insightsTotal.Add(float64(n))
	}
}

// AddSkippedMetrics counts metrics below the sample floor.
func AddSkippedMetrics(n int) {
	if n > 0 {
		skippedMetricsTotal.Add(float64(n))
	}
}

// AddRejectedObservations counts observations discarded at stage ("ingest" or "fetch").
func AddRejectedObservations(stage string, n int) {
	if n > 0 {
		rejectedObservationsTotal.WithLabelValues(stage).Add(float64(n))
	}
}
