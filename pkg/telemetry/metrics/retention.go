package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ledger/pkg/config"
)

// RetentionMetrics tracks retention sweeps.
//
// Metrics:
//   - ledger_retention_sweeps_total: sweeps by kind, trigger, status
//   - ledger_retention_deleted_total: records removed by kind, trigger
//   - ledger_retention_last_sweep_timestamp_seconds: last successful sweep
type RetentionMetrics struct {
	sweepsTotal  *prometheus.CounterVec
	deletedTotal *prometheus.CounterVec
	lastSweep    *prometheus.GaugeVec
}

// NewRetentionMetrics creates and registers retention metrics.
func NewRetentionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RetentionMetrics {
	rm := &RetentionMetrics{
		sweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "retention",
				Name:      "sweeps_total",
				Help:      "Total number of retention sweeps",
			},
			[]string{"kind", "trigger", "status"},
		),

		deletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "retention",
				Name:      "deleted_total",
				Help:      "Total number of records deleted by retention sweeps",
			},
			[]string{"kind", "trigger"},
		),

		lastSweep: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "retention",
				Name:      "last_sweep_timestamp_seconds",
				Help:      "Unix time of the last successful sweep",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(rm.sweepsTotal, rm.deletedTotal, rm.lastSweep)
	return rm
}

// Record records one sweep.
func (rm *RetentionMetrics) Record(kind, trigger, status string, deleted int64) {
	rm.sweepsTotal.WithLabelValues(kind, trigger, status).Inc()
	if status != StatusSuccess {
		return
	}
	rm.deletedTotal.WithLabelValues(kind, trigger).Add(float64(deleted))
	rm.lastSweep.WithLabelValues(kind).SetToCurrentTime()
}
