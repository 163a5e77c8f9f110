package config

import "time"

// Config is the root configuration structure for the ledger service.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Storage selects and configures the record store.
	Storage StorageConfig `yaml:"storage"`

	// Query contains listing limits.
	Query QueryConfig `yaml:"query"`

	// Dashboard contains dashboard statistics settings.
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Retention controls scheduled audit event sweeps.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// DefaultTimezone is the IANA zone used to widen date filters when a
	// request carries no X-Timezone header.
	// Default: "UTC"
	DefaultTimezone string `yaml:"default_timezone"`

	// RateLimit configures per-client request throttling.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// TLS serves the API over HTTPS when enabled.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS.
type TLSConfig struct {
	// Enabled turns TLS on. CertFile and KeyFile are then required.
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate (chain) path.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key path.
	KeyFile string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the files are checked for renewal.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate per client.
	// Default: 20
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size per client.
	// Default: 40
	Burst int `yaml:"burst"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:".
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// Driver is "sqlite3" (cgo) or "sqlite" (pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// QueryConfig contains listing limits.
type QueryConfig struct {
	// DefaultPageSize applies when a request omits size.
	// Default: 20
	DefaultPageSize int `yaml:"default_page_size"`

	// MaxPageSize caps the size a request may ask for.
	// Default: 1000
	MaxPageSize int `yaml:"max_page_size"`

	// Timeout bounds a single listing or export.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// DashboardConfig contains dashboard settings.
type DashboardConfig struct {
	// TopActors is how many actors the top-actors series keeps.
	// Default: 5
	TopActors int `yaml:"top_actors"`

	// Timeout bounds one statistics request.
	// Default: 15s
	Timeout time.Duration `yaml:"timeout"`
}

// RetentionConfig controls scheduled audit event sweeps. It is read on every
// run, so edits apply at the next sweep after a reload.
type RetentionConfig struct {
	// Enabled turns scheduled sweeps on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how many days of audit events to keep.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// Schedule is a standard five-field cron expression.
	// Default: "0 3 1 * *" (monthly, 03:00 on the 1st)
	Schedule string `yaml:"schedule"`

	// ArchiveDir, when set, receives a JSON archive of each sweep's records.
	// Default: "" (no archive)
	ArchiveDir string `yaml:"archive_dir"`

	// LeaseTTL bounds how long one instance holds the sweep lease.
	// Default: 10m
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks e-mail addresses in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "ledger"
	Namespace string `yaml:"namespace"`

	// DurationBuckets are histogram buckets in seconds.
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "ledger"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each component check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
