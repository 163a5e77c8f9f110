package dashboard

import (
	"context"
	"reflect"
	"testing"
	"time"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/storage"
)

var now = time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeRange
		wantErr bool
	}{
		{"", Last7Days, false},
		{"LAST_30_DAYS", Last30Days, false},
		{" last_3_months ", Last3Months, false},
		{"LAST_YEAR", LastYear, false},
		{"LAST_DECADE", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTimeRange(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTimeRange_Since(t *testing.T) {
	tests := []struct {
		r    TimeRange
		want time.Time
	}{
		{Last7Days, time.Date(2024, 3, 24, 15, 0, 0, 0, time.UTC)},
		{Last30Days, time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)},
		{Last3Months, time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC)},
		{LastYear, time.Date(2023, 3, 31, 15, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			if got := tt.r.Since(now); !got.Equal(tt.want) {
				t.Errorf("Since() = %v, want %v", got, tt.want)
			}
		})
	}
}

func seed(t *testing.T, events []records.AuditEvent) *storage.MemoryStore[records.AuditEvent] {
	t.Helper()
	store := storage.NewMemoryStore(records.AuditEventKind)
	for i := range events {
		if err := store.Insert(context.Background(), &events[i]); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	return store
}

func repeat(n int, e records.AuditEvent) []records.AuditEvent {
	out := make([]records.AuditEvent, n)
	for i := range out {
		out[i] = e
	}
	return out
}

func TestAuditDashboard_LogsOverTime(t *testing.T) {
	var events []records.AuditEvent
	events = append(events, repeat(10, records.AuditEvent{Actor: "a", Operation: "X", Timestamp: now.AddDate(0, 0, -2)})...)
	events = append(events, repeat(5, records.AuditEvent{Actor: "a", Operation: "X", Timestamp: now.AddDate(0, 0, -5)})...)
	events = append(events, records.AuditEvent{Actor: "a", Operation: "X", Timestamp: now.AddDate(0, 0, -20)})

	d := NewAuditDashboard(seed(t, events), clock.Fixed(now), 0, nil)
	stats, err := d.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	want := []ChartPoint{
		{Label: "2024-03-26", Value: 5},
		{Label: "2024-03-29", Value: 10},
	}
	if !reflect.DeepEqual(stats.LogsOverTime, want) {
		t.Errorf("LogsOverTime = %+v, want %+v", stats.LogsOverTime, want)
	}
	if stats.Range != Last7Days {
		t.Errorf("Range = %q, want %q", stats.Range, Last7Days)
	}
}

func TestAggregator_TopNTieBreak(t *testing.T) {
	var events []records.AuditEvent
	events = append(events, repeat(3, records.AuditEvent{Actor: "bob", Timestamp: now})...)
	events = append(events, repeat(5, records.AuditEvent{Actor: "carol", Timestamp: now})...)
	events = append(events, repeat(3, records.AuditEvent{Actor: "alice", Timestamp: now})...)

	agg := NewAggregator(seed(t, events), records.AuditTimestamp)
	got, err := agg.Series(context.Background(), records.AuditByActor, now.AddDate(0, 0, -1), 2)
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}

	want := []ChartPoint{{Label: "carol", Value: 5}, {Label: "alice", Value: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("top actors = %+v, want %+v", got, want)
	}
}

func TestAuditDashboard_AllSeries(t *testing.T) {
	var events []records.AuditEvent
	actors := []string{"a1", "a2", "a3", "a4", "a5", "a6"}
	for i, actor := range actors {
		events = append(events, repeat(len(actors)-i, records.AuditEvent{
			Actor:     actor,
			Operation: records.OperationUpdate,
			Success:   true,
			Timestamp: now.Add(-time.Hour),
		})...)
	}
	events = append(events,
		records.AuditEvent{Actor: "a6", Operation: records.OperationDelete, Success: false, Timestamp: now.Add(-time.Hour)},
		records.AuditEvent{Actor: "ancient", Operation: records.OperationLogin, Success: false, Timestamp: now.AddDate(-2, 0, 0)},
	)

	d := NewAuditDashboard(seed(t, events), clock.Fixed(now), 0, nil)
	stats, err := d.Stats(context.Background(), Last30Days)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	wantOps := []ChartPoint{{Label: records.OperationUpdate, Value: 21}, {Label: records.OperationDelete, Value: 1}}
	if !reflect.DeepEqual(stats.ByOperation, wantOps) {
		t.Errorf("ByOperation = %+v, want %+v", stats.ByOperation, wantOps)
	}

	if len(stats.TopActors) != DefaultTopActors {
		t.Fatalf("TopActors has %d entries, want %d", len(stats.TopActors), DefaultTopActors)
	}
	if stats.TopActors[0] != (ChartPoint{Label: "a1", Value: 6}) {
		t.Errorf("TopActors[0] = %+v", stats.TopActors[0])
	}
	// a5 has 2 events and a6 has 1 + 1; the tie resolves by label.
	if stats.TopActors[4] != (ChartPoint{Label: "a5", Value: 2}) {
		t.Errorf("TopActors[4] = %+v, want a5:2", stats.TopActors[4])
	}

	wantStatus := []ChartPoint{{Label: records.StatusSuccess, Value: 21}, {Label: records.StatusFailure, Value: 1}}
	if !reflect.DeepEqual(stats.ByStatus, wantStatus) {
		t.Errorf("ByStatus = %+v, want %+v", stats.ByStatus, wantStatus)
	}
}

func TestAuditDashboard_EmptyRange(t *testing.T) {
	d := NewAuditDashboard(seed(t, nil), clock.Fixed(now), 0, nil)
	stats, err := d.Stats(context.Background(), LastYear)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats.LogsOverTime) != 0 || len(stats.ByStatus) != 0 || len(stats.TopActors) != 0 {
		t.Errorf("expected empty series, got %+v", stats)
	}
}

type recordingObserver struct {
	ranges []string
}

func (o *recordingObserver) ObserveDashboard(timeRange string, _ time.Duration, _ error) {
	o.ranges = append(o.ranges, timeRange)
}

func TestAuditDashboard_Observer(t *testing.T) {
	observer := &recordingObserver{}
	d := NewAuditDashboard(seed(t, nil), clock.Fixed(now), 0, observer)

	if _, err := d.Stats(context.Background(), Last3Months); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if !reflect.DeepEqual(observer.ranges, []string{string(Last3Months)}) {
		t.Errorf("observed ranges = %v", observer.ranges)
	}
}
