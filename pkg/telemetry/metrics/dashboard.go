package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ledger/pkg/config"
)

// DashboardMetrics tracks dashboard aggregations.
//
// Metrics:
//   - ledger_dashboard_requests_total: aggregations by range, status
//   - ledger_dashboard_duration_seconds: aggregation latency
type DashboardMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewDashboardMetrics creates and registers dashboard metrics.
func NewDashboardMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DashboardMetrics {
	dm := &DashboardMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "dashboard",
				Name:      "requests_total",
				Help:      "Total number of dashboard aggregations",
			},
			[]string{"range", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "dashboard",
				Name:      "duration_seconds",
				Help:      "Duration of dashboard aggregations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"range"},
		),
	}

	registry.MustRegister(dm.requestsTotal, dm.duration)
	return dm
}

// Record records one aggregation.
func (dm *DashboardMetrics) Record(timeRange, status string, duration time.Duration) {
	dm.requestsTotal.WithLabelValues(timeRange, status).Inc()
	dm.duration.WithLabelValues(timeRange).Observe(duration.Seconds())
}
