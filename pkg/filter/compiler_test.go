package filter

import (
	"testing"
	"time"
)

type account struct {
	Name      string
	Role      string
	Score     int64
	Active    bool
	CreatedAt time.Time
}

var (
	accountName    = NewTextField("name", "name", func(a *account) string { return a.Name })
	accountRole    = NewField("role", "role", func(a *account) string { return a.Role })
	accountScore   = NewField("score", "score", func(a *account) int64 { return a.Score })
	accountActive  = NewField("active", "active", func(a *account) bool { return a.Active })
	accountCreated = NewDateField("created_at", "created_at", func(a *account) time.Time { return a.CreatedAt })
)

func ptr[T any](v T) *T { return &v }

func matching(c Composite[account], records []account) []string {
	var names []string
	for i := range records {
		if c.Matches(&records[i]) {
			names = append(names, records[i].Name)
		}
	}
	return names
}

func equalNames(a, b []string) bool {
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

func TestCompiler_NoCriteriaMatchesEverything(t *testing.T) {
	records := []account{{Name: "admin"}, {Name: "user1"}, {Name: ""}}

	composite := NewCompiler[account](nil).
		Add(accountName.Contains(nil)).
		Add(accountRole.Equals(nil)).
		Add(accountScore.Between(nil, nil)).
		Add(accountRole.In(nil)).
		Add(accountCreated.Between(nil, nil)).
		Build()

	if composite.Len() != 0 {
		t.Fatalf("expected zero predicates, got %d (%s)", composite.Len(), composite)
	}
	if !composite.MatchesAll() {
		t.Error("expected MatchesAll for empty composite")
	}
	if got := matching(composite, records); len(got) != len(records) {
		t.Errorf("expected all %d records to match, got %v", len(records), got)
	}
}

func TestCompiler_Contains(t *testing.T) {
	records := []account{{Name: "admin"}, {Name: "user1"}, {Name: "Road Warrior"}}

	tests := []struct {
		name   string
		text   *string
		want   []string
		elided bool
	}{
		{name: "substring", text: ptr("ad"), want: []string{"admin", "Road Warrior"}},
		{name: "case insensitive", text: ptr("ADM"), want: []string{"admin"}},
		{name: "not a prefix match", text: ptr("min"), want: []string{"admin"}},
		{name: "trimmed", text: ptr("  user "), want: []string{"user1"}},
		{name: "blank elided", text: ptr("   "), elided: true},
		{name: "empty elided", text: ptr(""), elided: true},
		{name: "nil elided", text: nil, elided: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composite := NewCompiler[account](nil).Add(accountName.Contains(tt.text)).Build()
			if tt.elided {
				if composite.Len() != 0 {
					t.Fatalf("expected contains to be elided, got %s", composite)
				}
				return
			}
			if got := matching(composite, records); !equalNames(got, tt.want) {
				t.Errorf("matched %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompiler_ContainsAdminOnly(t *testing.T) {
	records := []account{{Name: "admin"}, {Name: "user1"}}
	composite := NewCompiler[account](nil).Add(accountName.Contains(ptr("ad"))).Build()

	if got := matching(composite, records); !equalNames(got, []string{"admin"}) {
		t.Errorf("matched %v, want [admin]", got)
	}
}

func TestCompiler_EqualsKeepsZeroValues(t *testing.T) {
	records := []account{
		{Name: "a", Active: true, Score: 10},
		{Name: "b", Active: false, Score: 0},
	}

	inactive := NewCompiler[account](nil).Add(accountActive.Equals(ptr(false))).Build()
	if inactive.Len() != 1 {
		t.Fatalf("false must produce a predicate, got %d", inactive.Len())
	}
	if got := matching(inactive, records); !equalNames(got, []string{"b"}) {
		t.Errorf("active=false matched %v, want [b]", got)
	}

	zero := NewCompiler[account](nil).Add(accountScore.Equals(ptr(int64(0)))).Build()
	if got := matching(zero, records); !equalNames(got, []string{"b"}) {
		t.Errorf("score=0 matched %v, want [b]", got)
	}
}

func TestCompiler_DateBetweenCoversWholeDays(t *testing.T) {
	records := []account{
		{Name: "first-instant", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "last-second", CreatedAt: time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)},
		{Name: "next-day", CreatedAt: time.Date(2024, 2, 1, 0, 0, 1, 0, time.UTC)},
		{Name: "day-before", CreatedAt: time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)},
	}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	composite := NewCompiler[account](nil).Add(accountCreated.Between(&from, &to)).Build()

	want := []string{"first-instant", "last-second"}
	if got := matching(composite, records); !equalNames(got, want) {
		t.Errorf("matched %v, want %v", got, want)
	}

	p := composite.Predicates()[0]
	wantTo := time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !p.To.(time.Time).Equal(wantTo) {
		t.Errorf("upper bound = %v, want %v", p.To, wantTo)
	}
}

func TestCompiler_DateBetweenUsesCallerZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	composite := NewCompiler[account](tokyo).Add(accountCreated.Between(&day, &day)).Build()

	records := []account{
		// 2024-03-10 00:30 in Tokyo
		{Name: "early-tokyo", CreatedAt: time.Date(2024, 3, 9, 15, 30, 0, 0, time.UTC)},
		// 2024-03-11 00:30 in Tokyo
		{Name: "late-utc", CreatedAt: time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)},
	}

	if got := matching(composite, records); !equalNames(got, []string{"early-tokyo"}) {
		t.Errorf("matched %v, want [early-tokyo]", got)
	}
}

func TestCompiler_BetweenHalfOpen(t *testing.T) {
	records := []account{{Name: "low", Score: 1}, {Name: "mid", Score: 5}, {Name: "high", Score: 9}}

	tests := []struct {
		name     string
		from, to *int64
		want     []string
	}{
		{name: "lower only", from: ptr(int64(5)), want: []string{"mid", "high"}},
		{name: "upper only", to: ptr(int64(5)), want: []string{"low", "mid"}},
		{name: "inclusive both", from: ptr(int64(1)), to: ptr(int64(5)), want: []string{"low", "mid"}},
		{name: "reversed bounds are swapped", from: ptr(int64(9)), to: ptr(int64(5)), want: []string{"mid", "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composite := NewCompiler[account](nil).Add(accountScore.Between(tt.from, tt.to)).Build()
			if got := matching(composite, records); !equalNames(got, tt.want) {
				t.Errorf("matched %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompiler_InElision(t *testing.T) {
	records := []account{{Name: "a", Role: "admin"}, {Name: "b", Role: "viewer"}}

	empty := NewCompiler[account](nil).Add(accountRole.In([]string{})).Build()
	if empty.Len() != 0 {
		t.Fatalf("empty In must be elided, got %s", empty)
	}
	if got := matching(empty, records); len(got) != 2 {
		t.Errorf("empty In excluded records: matched %v", got)
	}

	some := NewCompiler[account](nil).Add(accountRole.In([]string{"viewer", "editor"})).Build()
	if got := matching(some, records); !equalNames(got, []string{"b"}) {
		t.Errorf("In matched %v, want [b]", got)
	}
}

func TestCompiler_Immutable(t *testing.T) {
	base := NewCompiler[account](nil).Add(accountRole.Equals(ptr("admin")))
	withName := base.Add(accountName.Contains(ptr("x")))
	withScore := base.Add(accountScore.Equals(ptr(int64(1))), accountActive.Equals(ptr(true)))

	if n := base.Build().Len(); n != 1 {
		t.Errorf("base changed: %d predicates", n)
	}
	if n := withName.Build().Len(); n != 2 {
		t.Errorf("withName has %d predicates, want 2", n)
	}
	if n := withScore.Build().Len(); n != 3 {
		t.Errorf("withScore has %d predicates, want 3", n)
	}

	first := withScore.Build()
	second := withScore.Build()
	if first.String() != second.String() {
		t.Errorf("Build not idempotent: %q vs %q", first, second)
	}

	want := []Operator{OperatorEquals, OperatorEquals, OperatorEquals}
	for i, p := range first.Predicates() {
		if p.Operator != want[i] {
			t.Errorf("predicate %d operator = %s, want %s", i, p.Operator, want[i])
		}
	}
	if got := first.Predicates()[1].Field.Name(); got != "score" {
		t.Errorf("insertion order lost: second predicate on %q", got)
	}
}

func TestDateField_Before(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []account{
		{Name: "older", CreatedAt: cutoff.Add(-time.Nanosecond)},
		{Name: "exact", CreatedAt: cutoff},
	}

	composite := Where(accountCreated.Before(cutoff))
	if got := matching(composite, records); !equalNames(got, []string{"older"}) {
		t.Errorf("Before matched %v, want [older]", got)
	}
}

func TestPredicate_String(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	composite := NewCompiler[account](nil).
		Add(accountName.Contains(ptr("ad"))).
		Add(accountRole.In([]string{"a", "b"})).
		Add(accountCreated.Between(&from, nil)).
		Build()

	want := `name contains "ad" AND role in ("a", "b") AND created_at between 2024-01-01T00:00:00Z and *`
	if got := composite.String(); got != want {
		t.Errorf("String() = %s\nwant       %s", got, want)
	}
}

func TestParseDirection(t *testing.T) {
	for input, want := range map[string]Direction{"": Ascending, "ASC": Ascending, "desc": Descending} {
		got, err := ParseDirection(input)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}
}
