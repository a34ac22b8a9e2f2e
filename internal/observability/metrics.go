package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "member_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the reconciler.
type Metrics struct {
	// Run metrics.
	RunsTotal      *prometheus.CounterVec // labels: status={completed,aborted,failed,skipped}
	RunDuration    prometheus.Histogram
	RunRows        *prometheus.CounterVec // labels: outcome={eligible,ok,skipped_cooldown,...}
	RunInProgress  prometheus.Gauge
	RunLastSuccess prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={found,not_found,error,retry}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
	GeocodeThrottled   prometheus.Counter
}

// NewMetrics creates and registers all reconciler metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_runs_total",
			Help:      "Reconciliation runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_run_duration_seconds",
			Help:      "Wall time of a reconciliation run, including provider delays.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		RunRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_run_rows_total",
			Help:      "Rows seen by reconciliation runs, by outcome.",
		}, []string{"outcome"}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_run_in_progress",
			Help:      "1 while a reconciliation run holds the guard, 0 otherwise.",
		}),
		RunLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_run_last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without error.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Run cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		GeocodeThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_throttle_waits_total",
			Help:      "Provider calls that had to wait for the minimum interval.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.RunRows,
		m.RunInProgress,
		m.RunLastSuccess,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeThrottled,
	}
}
