package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/ledger/pkg/records"
)

// Driver names registered by the two SQLite packages.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" opens a private in-memory
	// database on a single connection.
	Path string

	// Driver selects the database/sql driver: "sqlite3" (cgo) or "sqlite" (pure Go).
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/ledger.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLite is an open, migrated database shared by the per-kind stores.
type SQLite struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// OpenSQLite opens the database, applies connection pragmas and runs
// migrations.
func OpenSQLite(config *SQLiteConfig) (*SQLite, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, records.NewStorageError("sqlite", "", "open",
			fmt.Errorf("unsupported driver %q (must be %q or %q)", config.Driver, DriverCGO, DriverPureGo))
	}

	logger := slog.Default().With("component", "records.storage.sqlite")

	inMemory := config.Path == ":memory:"
	if !inMemory {
		if dir := filepath.Dir(config.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, records.NewStorageError("sqlite", "", "create_dir", err)
			}
		}
	}

	db, err := sql.Open(sqlDriverName(config.Driver), buildDSN(config))
	if err != nil {
		return nil, records.NewStorageError("sqlite", "", "open", err)
	}

	// Each connection to ":memory:" is its own database.
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLite{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// buildDSN encodes per-connection pragmas in the driver's DSN syntax so every
// pooled connection gets them, not only the first.
func buildDSN(config *SQLiteConfig) string {
	if config.Path == ":memory:" {
		return ":memory:"
	}

	busyMs := config.BusyTimeout.Milliseconds()
	q := url.Values{}

	switch config.Driver {
	case DriverPureGo:
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyMs))
		q.Add("_pragma", "foreign_keys(1)")
		if config.WALMode {
			q.Add("_pragma", "journal_mode(WAL)")
		}
		q.Set("_txlock", "immediate")
	default:
		q.Set("_busy_timeout", fmt.Sprintf("%d", busyMs))
		q.Set("_foreign_keys", "on")
		if config.WALMode {
			q.Set("_journal_mode", "WAL")
		}
		q.Set("_txlock", "immediate")
	}

	return "file:" + config.Path + "?" + q.Encode()
}

// initialize verifies connectivity and brings the schema up to date.
func (s *SQLite) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return records.NewStorageError("sqlite", "", "ping", err)
	}

	if err := runMigrations(s.db, s.logger); err != nil {
		return records.NewStorageError("sqlite", "", "migrate", err)
	}

	version, err := schemaVersion(s.db)
	if err != nil {
		return records.NewStorageError("sqlite", "", "schema_version", err)
	}
	s.logger.Debug("schema version verified", "version", version)

	return nil
}

// DB returns the underlying handle.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name in use.
func (s *SQLite) Driver() string {
	return s.config.Driver
}

// Ping checks that the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return records.NewStorageError("sqlite", "", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}
