package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ledger/pkg/records"
)

// LeaseLocker is an advisory lock backed by the sweep_leases table. A lease
// is held by one owner until it is released or its TTL passes, which lets
// processes sharing a database file take turns running scheduled sweeps.
type LeaseLocker struct {
	db     *SQLite
	owner  string
	now    func() time.Time
	logger *slog.Logger
}

// NewLeaseLocker creates a locker with a random owner identity.
func NewLeaseLocker(db *SQLite) *LeaseLocker {
	return &LeaseLocker{
		db:     db,
		owner:  uuid.NewString(),
		now:    time.Now,
		logger: slog.Default().With("component", "records.storage.lease"),
	}
}

// Owner returns this locker's identity.
func (l *LeaseLocker) Owner() string {
	return l.owner
}

// TryLock acquires the named lease if it is free, expired or already ours.
// It returns ok=false without error when another owner holds a live lease.
func (l *LeaseLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	now := l.now().UTC()
	expires := now.Add(ttl)

	result, err := l.db.db.ExecContext(ctx, `
		INSERT INTO sweep_leases (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE sweep_leases.expires_at <= ? OR sweep_leases.owner = excluded.owner`,
		name, l.owner, expires.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, false, records.NewStorageError("sqlite", "", "lease_acquire", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, records.NewStorageError("sqlite", "", "lease_acquire", err)
	}
	if n == 0 {
		l.logger.Debug("lease held by another owner", "name", name)
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if _, err := l.db.db.ExecContext(ctx,
			"DELETE FROM sweep_leases WHERE name = ? AND owner = ?", name, l.owner); err != nil {
			return records.NewStorageError("sqlite", "", "lease_release", fmt.Errorf("lease %q: %w", name, err))
		}
		return nil
	}

	return release, true, nil
}
