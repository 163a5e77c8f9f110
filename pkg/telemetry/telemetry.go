package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/telemetry/health"
	"mercator-hq/ledger/pkg/telemetry/logging"
	"mercator-hq/ledger/pkg/telemetry/metrics"
	"mercator-hq/ledger/pkg/telemetry/tracing"
)

// Telemetry bundles the process-wide logger, metrics, tracer and health
// checker.
type Telemetry struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
	version health.VersionInfo
}

// New builds every component from cfg and installs the logger as the slog
// default. Log output goes to w, or stderr when w is nil.
func New(cfg *config.TelemetryConfig, version health.VersionInfo, w io.Writer) (*Telemetry, error) {
	logger, err := logging.Setup(logging.FromConfig(cfg.Logging, w))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing, version.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return &Telemetry{
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
		version: version,
	}, nil
}

// Logger returns the root logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Metrics returns the metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Version returns the build information.
func (t *Telemetry) Version() health.VersionInfo { return t.version }

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
