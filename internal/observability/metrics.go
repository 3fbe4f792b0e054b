package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// acquisition pipeline.
type Metrics struct {
	// Remote fetch metrics.
	FetchRequests  *prometheus.CounterVec   // labels: source={soil,weather}, outcome={success,error,empty}
	FetchDuration  *prometheus.HistogramVec // labels: source={soil,weather}
	RetryExhausted *prometheus.CounterVec   // labels: source

	// Cache reconciliation metrics.
	ReconcileOutcomes *prometheus.CounterVec // labels: outcome={complete,repaired,added,failed}

	// Spatial join metrics.
	JoinDistance prometheus.Histogram

	// Run progress.
	RunActive     prometheus.Gauge
	KeysProcessed prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.RetryExhausted,
		m.ReconcileOutcomes,
		m.JoinDistance,
		m.RunActive,
		m.KeysProcessed,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "county_etl",
			Name:      "fetch_requests_total",
			Help:      "Remote attribute requests by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "county_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Remote attribute request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"source"}),
		RetryExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "county_etl",
			Name:      "retry_exhausted_total",
			Help:      "Keys whose fetch retry budget was exhausted, by source.",
		}, []string{"source"}),
		ReconcileOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "county_etl",
			Name:      "reconcile_outcomes_total",
			Help:      "Canonical keys by reconciliation outcome.",
		}, []string{"outcome"}),
		JoinDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "county_etl",
			Name:      "join_distance_degrees",
			Help:      "Degree-space distance between a centroid and its nearest attribute row.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "county_etl",
			Name:      "run_active",
			Help:      "1 while an acquisition run is in progress, 0 otherwise.",
		}),
		KeysProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "county_etl",
			Name:      "keys_processed_total",
			Help:      "Canonical keys processed so far in this run.",
		}),
	}
}
