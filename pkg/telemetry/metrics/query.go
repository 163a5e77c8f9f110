package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ledger/pkg/config"
)

// QueryMetrics tracks record listings.
//
// Metrics:
//   - ledger_query_requests_total: listings by kind, operation, status
//   - ledger_query_duration_seconds: listing latency
//   - ledger_query_results: rows returned per listing
type QueryMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	results       *prometheus.HistogramVec
}

// NewQueryMetrics creates and registers query metrics.
func NewQueryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *QueryMetrics {
	qm := &QueryMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "query",
				Name:      "requests_total",
				Help:      "Total number of record listings",
			},
			[]string{"kind", "operation", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Duration of record listings in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"kind", "operation"},
		),

		results: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "query",
				Name:      "results",
				Help:      "Number of records returned per listing",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16K
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(qm.requestsTotal, qm.duration, qm.results)
	return qm
}

// Record records one listing.
func (qm *QueryMetrics) Record(kind, operation, status string, duration time.Duration, results int) {
	qm.requestsTotal.WithLabelValues(kind, operation, status).Inc()
	qm.duration.WithLabelValues(kind, operation).Observe(duration.Seconds())
	if status == StatusSuccess {
		qm.results.WithLabelValues(kind).Observe(float64(results))
	}
}
