package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ledger/pkg/config"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Collector owns the ledger's Prometheus metrics. It satisfies the observer
// interfaces of the query, retention and dashboard packages, so one value can
// be handed to each of them.
//
// When metrics are disabled every method is a no-op.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	query     *QueryMetrics
	retention *RetentionMetrics
	dashboard *DashboardMetrics
	http      *HTTPMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one, which keeps tests isolated from the
// global default registry.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		query:     NewQueryMetrics(cfg, registry),
		retention: NewRetentionMetrics(cfg, registry),
		dashboard: NewDashboardMetrics(cfg, registry),
		http:      NewHTTPMetrics(cfg, registry),
	}
}

// ObserveQuery records one listing call against a record kind.
func (c *Collector) ObserveQuery(kind, operation string, duration time.Duration, results int, err error) {
	if !c.config.Enabled {
		return
	}
	c.query.Record(kind, operation, statusLabel(err), duration, results)
}

// ObserveSweep records one retention sweep.
func (c *Collector) ObserveSweep(kind, trigger string, deleted int64, err error) {
	if !c.config.Enabled {
		return
	}
	c.retention.Record(kind, trigger, statusLabel(err), deleted)
}

// ObserveDashboard records one dashboard aggregation.
func (c *Collector) ObserveDashboard(timeRange string, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.dashboard.Record(timeRange, statusLabel(err), duration)
}

// ObserveHTTP records one API request. route is the router pattern, not
// the raw path, to bound label cardinality.
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.http.Record(method, route, status, duration)
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

func statusLabel(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
