package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the runner's Prometheus instruments.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	inFlightRuns   prometheus.Gauge
	weightsApplied prometheus.Counter
}

// NewMetrics registers the runner metrics with reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		runsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "srs",
			Subsystem: "optimizer",
			Name:      "runs_total",
			Help:      "Optimizer runs by outcome.",
		}, []string{"outcome"}),
		runDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "srs",
			Subsystem: "optimizer",
			Name:      "run_duration_seconds",
			Help:      "Wall time of optimizer runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		inFlightRuns: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "srs",
			Subsystem: "optimizer",
			Name:      "in_flight_runs",
			Help:      "Optimizer runs currently executing.",
		}),
		weightsApplied: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "srs",
			Subsystem: "optimizer",
			Name:      "weights_applied_total",
			Help:      "Fits whose weights were promoted to the user's active layer.",
		}),
	}
}

func (m *Metrics) observeRun(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(seconds)
}
