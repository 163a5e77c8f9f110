package clock

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty defaults to UTC", input: "", want: "UTC"},
		{name: "explicit UTC", input: "utc", want: "UTC"},
		{name: "IANA zone", input: "America/New_York", want: "America/New_York"},
		{name: "unknown zone", input: "Mars/Olympus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LoadLocation(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadLocation(%q) unexpected error: %v", tt.input, err)
			}
			if loc.String() != tt.want {
				t.Errorf("LoadLocation(%q) = %s, want %s", tt.input, loc, tt.want)
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	day := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	start := StartOfDay(day, berlin)
	if want := time.Date(2024, 1, 30, 23, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", start.UTC(), want)
	}

	end := EndOfDay(day, berlin)
	if want := time.Date(2024, 1, 31, 22, 59, 59, int(999*time.Millisecond), time.UTC); !end.Equal(want) {
		t.Errorf("EndOfDay = %v, want %v", end.UTC(), want)
	}
}

func TestFixed(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	c := Fixed(at)
	if got := c.Now(); !got.Equal(at) || got.Location() != time.UTC {
		t.Errorf("Fixed.Now() = %v, want %v in UTC", got, at)
	}
}
