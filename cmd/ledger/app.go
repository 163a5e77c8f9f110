package main

import (
	"fmt"
	"log/slog"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/records/retention"
	"mercator-hq/ledger/pkg/records/storage"
)

// backend is the opened record storage.
type backend struct {
	stores *storage.Stores
	sqlite *storage.SQLite // nil for the memory backend
}

// openBackend opens the configured storage backend.
func openBackend(cfg *config.StorageConfig) (*backend, error) {
	switch cfg.Backend {
	case "memory":
		slog.Warn("using in-memory storage, records are lost on exit")
		return &backend{stores: storage.NewMemoryStores()}, nil
	case "sqlite":
		db, err := storage.OpenSQLite(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite storage: %w", err)
		}
		return &backend{stores: storage.NewSQLiteStores(db), sqlite: db}, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (supported: sqlite, memory)", cfg.Backend)
	}
}

// locker returns the sweep lease: shared through the database for SQLite,
// in-process otherwise.
func (b *backend) locker() retention.Locker {
	if b.sqlite != nil {
		return storage.NewLeaseLocker(b.sqlite)
	}
	return retention.NewLocalLocker()
}

// Close releases the database, if any.
func (b *backend) Close() error {
	if b.sqlite != nil {
		return b.sqlite.Close()
	}
	return nil
}

// retentionPolicy adapts a config source to a retention policy. get is
// called on every sweep, so reloaded settings apply to the next run.
func retentionPolicy(get func() *config.Config) retention.PolicyFunc {
	return func() retention.Policy {
		cfg := get()
		if cfg == nil {
			return retention.Policy{}
		}
		return retention.Policy{
			Enabled:       cfg.Retention.Enabled,
			RetentionDays: cfg.Retention.RetentionDays,
		}
	}
}

// newSweeper builds the audit sweeper over b.
func newSweeper(b *backend, cfg *config.Config, get func() *config.Config, observer retention.Observer) *retention.AuditSweeper {
	return retention.NewAuditSweeper(b.stores.AuditEvents, retentionPolicy(get), retention.Options{
		Clock:      clock.System{},
		ArchiveDir: cfg.Retention.ArchiveDir,
		Observer:   observer,
	})
}
