package storage

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/ledger/pkg/records"
)

func TestOpenSQLite_RejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQLite(&SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
		Driver: "postgres",
	})
	require.Error(t, err)

	var storageErr *records.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "open", storageErr.Operation)
}

func TestOpenSQLite_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	config := &SQLiteConfig{
		Path:         path,
		Driver:       DriverPureGo,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	}

	first, err := OpenSQLite(config)
	require.NoError(t, err)

	ctx := context.Background()
	store := NewSQLiteStore(first, UserTable)
	require.NoError(t, store.Insert(ctx, &records.User{Username: "kept"}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(config)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	version, err := schemaVersion(second.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	users, err := NewSQLiteStore(second, UserTable).Find(ctx, records.UserCriteria{}.Compile(nil), records.FindOptions[records.User]{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "kept", users[0].Username)
}

func TestOpenSQLite_InMemory(t *testing.T) {
	db, err := OpenSQLite(&SQLiteConfig{Path: ":memory:", Driver: DriverPureGo})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, DriverPureGo, db.Driver())
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   SQLiteConfig
		contains []string
		excludes []string
	}{
		{
			name:     "cgo driver with WAL",
			config:   SQLiteConfig{Path: "data/ledger.db", Driver: DriverCGO, WALMode: true, BusyTimeout: 5 * time.Second},
			contains: []string{"file:data/ledger.db?", "_busy_timeout=5000", "_journal_mode=WAL", "_txlock=immediate"},
		},
		{
			name:     "pure go driver without WAL",
			config:   SQLiteConfig{Path: "ledger.db", Driver: DriverPureGo, BusyTimeout: time.Second},
			contains: []string{"busy_timeout%281000%29", "_txlock=immediate"},
			excludes: []string{"journal_mode"},
		},
		{
			name:     "in memory",
			config:   SQLiteConfig{Path: ":memory:", Driver: DriverCGO},
			contains: []string{":memory:"},
			excludes: []string{"?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := buildDSN(&tt.config)
			for _, s := range tt.contains {
				assert.Contains(t, dsn, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, dsn, s)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off`, escapeLike("50%_off"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestMigrations_LegacyZeroTimestampBecomesUnset(t *testing.T) {
	db, err := OpenSQLite(&SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
		Driver: DriverPureGo,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, goose.DownTo(db.DB(), "migrations", 2))
	_, err = db.DB().Exec(`INSERT INTO users (id, username, email, role, created_at)
		VALUES ('u-legacy', 'legacy', 'legacy@example.com', 'VIEWER', 0)`)
	require.NoError(t, err)
	require.NoError(t, runMigrations(db.DB(), slog.Default()))

	got, err := NewSQLiteStore(db, UserTable).Get(context.Background(), "u-legacy")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.IsZero(), "created_at = %v, want unset", got.CreatedAt)
}

func TestEncodeValue(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.FixedZone("UTC+9", 9*3600))

	assert.Equal(t, int64(math.MinInt64), encodeValue(time.Time{}))
	assert.Equal(t, at.UTC().UnixNano(), encodeValue(at))
	assert.Equal(t, int64(0), encodeValue(time.Unix(0, 0)))
	assert.Equal(t, int64(math.MinInt64), encodeValue(time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(math.MaxInt64), encodeValue(time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(1), encodeValue(true))
	assert.Equal(t, int64(0), encodeValue(false))
	assert.Equal(t, "x", encodeValue("x"))

	assert.True(t, decodeTime(math.MinInt64).IsZero())
	assert.True(t, decodeTime(0).Equal(time.Unix(0, 0)))
	assert.True(t, decodeTime(at.UnixNano()).Equal(at))
}

func TestLeaseLocker(t *testing.T) {
	db := openTestSQLite(t, DriverPureGo)
	ctx := context.Background()

	a := NewLeaseLocker(db)
	b := NewLeaseLocker(db)
	require.NotEqual(t, a.Owner(), b.Owner())

	releaseA, ok, err := a.TryLock(ctx, "retention", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "first owner should acquire a free lease")

	_, ok, err = b.TryLock(ctx, "retention", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not steal a live lease")

	_, ok, err = a.TryLock(ctx, "retention", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "holder should be able to renew its own lease")

	_, ok, err = b.TryLock(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "leases are independent by name")

	require.NoError(t, releaseA(ctx))

	releaseB, ok, err := b.TryLock(ctx, "retention", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "released lease should be free")
	require.NoError(t, releaseB(ctx))
}

func TestLeaseLocker_ExpiredLeaseIsTakenOver(t *testing.T) {
	db := openTestSQLite(t, DriverPureGo)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewLeaseLocker(db)
	a.now = func() time.Time { return now }
	b := NewLeaseLocker(db)
	b.now = func() time.Time { return now.Add(2 * time.Minute) }

	releaseA, ok, err := a.TryLock(ctx, "retention", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.TryLock(ctx, "retention", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease should be taken over")

	// The stale holder's release must not drop the new owner's lease.
	require.NoError(t, releaseA(ctx))

	c := NewLeaseLocker(db)
	c.now = b.now
	_, ok, err = c.TryLock(ctx, "retention", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
