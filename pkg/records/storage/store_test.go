package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/ledger/pkg/filter"
	"mercator-hq/ledger/pkg/records"
)

func ptr[T any](v T) *T { return &v }

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, stores *Stores)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStores())
	})

	for _, driver := range []string{DriverCGO, DriverPureGo} {
		t.Run("sqlite-"+driver, func(t *testing.T) {
			fn(t, NewSQLiteStores(openTestSQLite(t, driver)))
		})
	}
}

func openTestSQLite(t *testing.T, driver string) *SQLite {
	t.Helper()

	db, err := OpenSQLite(&SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		Driver:       driver,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("OpenSQLite(%s) error = %v", driver, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertAll[R any](t *testing.T, store records.Store[R], recs ...R) {
	t.Helper()
	ctx := context.Background()
	for i := range recs {
		if err := store.Insert(ctx, &recs[i]); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
}

func TestStore_FindOrderingAndTiebreak(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		ctx := context.Background()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		insertAll(t, stores.Products,
			records.Product{SKU: "A", Name: "a", Price: 10, CreatedAt: base},
			records.Product{SKU: "B", Name: "b", Price: 20, CreatedAt: base},
			records.Product{SKU: "C", Name: "c", Price: 10, CreatedAt: base},
			records.Product{SKU: "D", Name: "d", Price: 20, CreatedAt: base},
		)

		got, err := stores.Products.Find(ctx, filter.Composite[records.Product]{}, records.FindOptions[records.Product]{
			Order: []filter.Order[records.Product]{records.ProductPrice.Desc()},
		})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}

		want := []string{"B", "D", "A", "C"}
		if len(got) != len(want) {
			t.Fatalf("got %d products, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].SKU != want[i] {
				t.Errorf("position %d = %s, want %s", i, got[i].SKU, want[i])
			}
		}

		page, err := stores.Products.Find(ctx, filter.Composite[records.Product]{}, records.FindOptions[records.Product]{
			Order:  []filter.Order[records.Product]{records.ProductPrice.Desc()},
			Offset: 1,
			Limit:  2,
		})
		if err != nil {
			t.Fatalf("Find(page) error = %v", err)
		}
		if len(page) != 2 || page[0].SKU != "D" || page[1].SKU != "A" {
			t.Errorf("page = %+v, want [D A]", page)
		}

		tail, err := stores.Products.Find(ctx, filter.Composite[records.Product]{}, records.FindOptions[records.Product]{Offset: 3})
		if err != nil {
			t.Fatalf("Find(offset) error = %v", err)
		}
		if len(tail) != 1 || tail[0].SKU != "D" {
			t.Errorf("offset-only tail = %+v, want [D]", tail)
		}
	})
}

func TestStore_ContainsIsCaseInsensitiveSubstring(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		insertAll(t, stores.Users,
			records.User{Username: "admin", Email: "root@example.com", Role: records.RoleAdmin},
			records.User{Username: "user1", Email: "u1@example.com", Role: records.RoleViewer},
			records.User{Username: "50%_off", Email: "promo@example.com", Role: records.RoleViewer},
			records.User{Username: "Élodie", Email: "elodie@example.com", Role: records.RoleEditor},
		)

		ctx := context.Background()
		tests := []struct {
			text string
			want []string
		}{
			{"ad", []string{"admin"}},
			{"AD", []string{"admin"}},
			{"%", []string{"50%_off"}},
			{"_", []string{"50%_off"}},
			{"él", []string{"Élodie"}},
			{"ÉLO", []string{"Élodie"}},
		}
		for _, tt := range tests {
			f := records.UserCriteria{Username: ptr(tt.text)}.Compile(nil)
			got, err := stores.Users.Find(ctx, f, records.FindOptions[records.User]{})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", tt.text, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("contains %q matched %d users, want %v", tt.text, len(got), tt.want)
			}
			for i := range tt.want {
				if got[i].Username != tt.want[i] {
					t.Errorf("contains %q matched %s, want %s", tt.text, got[i].Username, tt.want[i])
				}
			}
		}
	})
}

func TestStore_DateBetweenInclusive(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		insertAll(t, stores.Users,
			records.User{Username: "in", CreatedAt: time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)},
			records.User{Username: "out", CreatedAt: time.Date(2024, 2, 1, 0, 0, 1, 0, time.UTC)},
		)

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		f := records.UserCriteria{CreatedFrom: &from, CreatedUntil: &to}.Compile(time.UTC)

		got, err := stores.Users.Find(context.Background(), f, records.FindOptions[records.User]{})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(got) != 1 || got[0].Username != "in" {
			t.Errorf("matched %+v, want only \"in\"", got)
		}
	})
}

func TestStore_TimestampsOutsideNanosecondRange(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		ctx := context.Background()
		insertAll(t, stores.Users,
			records.User{Username: "sixties", CreatedAt: time.Date(1960, 5, 1, 0, 0, 0, 0, time.UTC)},
			records.User{Username: "epoch", CreatedAt: time.Unix(0, 0).UTC()},
			records.User{Username: "recent", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			records.User{Username: "unset"},
		)

		early := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
		late := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
		tests := []struct {
			name     string
			criteria records.UserCriteria
			want     int64
		}{
			{"far lower bound", records.UserCriteria{CreatedFrom: &early}, 4},
			{"far upper bound", records.UserCriteria{CreatedUntil: &late}, 4},
			{"lower bound after the epoch", records.UserCriteria{CreatedFrom: ptr(time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))}, 1},
		}
		for _, tt := range tests {
			n, err := stores.Users.Count(ctx, tt.criteria.Compile(time.UTC))
			if err != nil {
				t.Fatalf("%s: Count() error = %v", tt.name, err)
			}
			if n != tt.want {
				t.Errorf("%s: counted %d, want %d", tt.name, n, tt.want)
			}
		}

		got, err := stores.Users.Find(ctx, filter.Composite[records.User]{}, records.FindOptions[records.User]{})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		for _, u := range got {
			switch u.Username {
			case "unset":
				if !u.CreatedAt.IsZero() {
					t.Errorf("unset CreatedAt read back as %v", u.CreatedAt)
				}
			case "epoch":
				if u.CreatedAt.IsZero() || u.CreatedAt.Unix() != 0 {
					t.Errorf("epoch CreatedAt read back as %v", u.CreatedAt)
				}
			}
		}

		err = stores.Users.Insert(ctx, &records.User{Username: "future", CreatedAt: late})
		if !errors.Is(err, records.ErrTimestampRange) {
			t.Errorf("Insert(year 2300) error = %v, want ErrTimestampRange", err)
		}
	})
}

func TestStore_EmptyInIsNoConstraint(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		insertAll(t, stores.Users,
			records.User{Username: "a", Role: records.RoleAdmin},
			records.User{Username: "b", Role: records.RoleViewer},
		)

		ctx := context.Background()
		n, err := stores.Users.Count(ctx, records.UserCriteria{Roles: []string{}}.Compile(nil))
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 2 {
			t.Errorf("empty roles counted %d, want 2", n)
		}

		n, err = stores.Users.Count(ctx, records.UserCriteria{Roles: []string{records.RoleViewer}}.Compile(nil))
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("viewer role counted %d, want 1", n)
		}
	})
}

func TestStore_EqualsOnBooleansAndNumbers(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		insertAll(t, stores.Products,
			records.Product{SKU: "on", Active: true, Stock: 3, Price: 1.5},
			records.Product{SKU: "off", Active: false, Stock: 0, Price: 2.5},
		)

		ctx := context.Background()
		got, err := stores.Products.Find(ctx,
			records.ProductCriteria{Active: ptr(false), MaxStock: ptr(int64(0))}.Compile(nil),
			records.FindOptions[records.Product]{})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(got) != 1 || got[0].SKU != "off" {
			t.Errorf("matched %+v, want [off]", got)
		}

		got, err = stores.Products.Find(ctx,
			records.ProductCriteria{MinPrice: ptr(2.0)}.Compile(nil),
			records.FindOptions[records.Product]{})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if len(got) != 1 || got[0].SKU != "off" {
			t.Errorf("min price matched %+v, want [off]", got)
		}
	})
}

func TestStore_GroupCount(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		var events []records.AuditEvent
		add := func(actor, op string, success bool, at time.Time, n int) {
			for i := 0; i < n; i++ {
				events = append(events, records.AuditEvent{Actor: actor, Operation: op, Success: success, Timestamp: at})
			}
		}
		add("alice", records.OperationCreate, true, day, 3)
		add("bob", records.OperationUpdate, true, day.AddDate(0, 0, 1), 3)
		add("carol", records.OperationDelete, false, day.AddDate(0, 0, 1), 5)
		insertAll(t, stores.AuditEvents, events...)

		ctx := context.Background()
		all := filter.Composite[records.AuditEvent]{}

		actors, err := stores.AuditEvents.GroupCount(ctx, records.AuditByActor, all, 2)
		if err != nil {
			t.Fatalf("GroupCount(actor) error = %v", err)
		}
		wantActors := []records.Group{{Label: "carol", Count: 5}, {Label: "alice", Count: 3}}
		if !equalGroups(actors, wantActors) {
			t.Errorf("top actors = %+v, want %+v", actors, wantActors)
		}

		days, err := stores.AuditEvents.GroupCount(ctx, records.AuditByDay, all, 0)
		if err != nil {
			t.Fatalf("GroupCount(day) error = %v", err)
		}
		wantDays := []records.Group{{Label: "2024-03-11", Count: 8}, {Label: "2024-03-10", Count: 3}}
		if !equalGroups(days, wantDays) {
			t.Errorf("days = %+v, want %+v", days, wantDays)
		}

		status, err := stores.AuditEvents.GroupCount(ctx, records.AuditByStatus, all, 0)
		if err != nil {
			t.Fatalf("GroupCount(status) error = %v", err)
		}
		wantStatus := []records.Group{{Label: records.StatusSuccess, Count: 6}, {Label: records.StatusFailure, Count: 5}}
		if !equalGroups(status, wantStatus) {
			t.Errorf("status = %+v, want %+v", status, wantStatus)
		}

		since := filter.Where(records.AuditTimestamp.Since(day.AddDate(0, 0, 1)))
		ops, err := stores.AuditEvents.GroupCount(ctx, records.AuditByOperation, since, 0)
		if err != nil {
			t.Fatalf("GroupCount(operation) error = %v", err)
		}
		wantOps := []records.Group{{Label: records.OperationDelete, Count: 5}, {Label: records.OperationUpdate, Count: 3}}
		if !equalGroups(ops, wantOps) {
			t.Errorf("operations = %+v, want %+v", ops, wantOps)
		}
	})
}

func TestStore_DeleteWhereStrictAndIdempotent(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		insertAll(t, stores.AuditEvents,
			records.AuditEvent{Actor: "a", Operation: "X", Timestamp: cutoff.Add(-time.Hour)},
			records.AuditEvent{Actor: "b", Operation: "X", Timestamp: cutoff.Add(-time.Nanosecond)},
			records.AuditEvent{Actor: "c", Operation: "X", Timestamp: cutoff},
			records.AuditEvent{Actor: "d", Operation: "X", Timestamp: cutoff.Add(time.Hour)},
		)

		ctx := context.Background()
		before := filter.Where(records.AuditTimestamp.Before(cutoff))

		deleted, err := stores.AuditEvents.DeleteWhere(ctx, before)
		if err != nil {
			t.Fatalf("DeleteWhere() error = %v", err)
		}
		if deleted != 2 {
			t.Errorf("deleted %d, want 2", deleted)
		}

		deleted, err = stores.AuditEvents.DeleteWhere(ctx, before)
		if err != nil {
			t.Fatalf("second DeleteWhere() error = %v", err)
		}
		if deleted != 0 {
			t.Errorf("second sweep deleted %d, want 0", deleted)
		}

		remaining, err := stores.AuditEvents.Count(ctx, filter.Composite[records.AuditEvent]{})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if remaining != 2 {
			t.Errorf("remaining = %d, want 2", remaining)
		}

		if _, err := stores.AuditEvents.DeleteWhere(ctx, filter.Composite[records.AuditEvent]{}); !errors.Is(err, records.ErrUnboundedDelete) {
			t.Errorf("unbounded delete error = %v, want ErrUnboundedDelete", err)
		}
	})
}

func TestStore_GetRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, stores *Stores) {
		ctx := context.Background()
		at := time.Date(2024, 7, 4, 10, 11, 12, 13, time.UTC)
		event := records.AuditEvent{
			Actor:      "alice",
			Operation:  records.OperationLogin,
			EntityKind: "users",
			EntityID:   "u-1",
			Success:    true,
			Details:    "from cli",
			Timestamp:  at,
		}
		if err := stores.AuditEvents.Insert(ctx, &event); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if event.ID == "" {
			t.Fatal("Insert() did not assign an ID")
		}

		got, err := stores.AuditEvents.Get(ctx, event.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !got.Timestamp.Equal(at) {
			t.Errorf("Timestamp = %v, want %v", got.Timestamp, at)
		}
		got.Timestamp = event.Timestamp
		if *got != event {
			t.Errorf("Get() = %+v, want %+v", *got, event)
		}

		if _, err := stores.AuditEvents.Get(ctx, "missing"); !errors.Is(err, records.ErrNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
		}

		dup := event
		if err := stores.AuditEvents.Insert(ctx, &dup); !errors.Is(err, records.ErrDuplicateID) {
			t.Errorf("duplicate insert error = %v, want ErrDuplicateID", err)
		}
	})
}

func equalGroups(a, b []records.Group) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
