package dashboard

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange is a lookback window ending now.
type TimeRange string

// Supported ranges.
const (
	Last7Days   TimeRange = "LAST_7_DAYS"
	Last30Days  TimeRange = "LAST_30_DAYS"
	Last3Months TimeRange = "LAST_3_MONTHS"
	LastYear    TimeRange = "LAST_YEAR"
)

// DefaultTimeRange applies when a request names none.
const DefaultTimeRange = Last7Days

// TimeRanges lists every supported range.
var TimeRanges = []TimeRange{Last7Days, Last30Days, Last3Months, LastYear}

// ParseTimeRange parses a range name case-insensitively. Empty input yields
// DefaultTimeRange.
func ParseTimeRange(s string) (TimeRange, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultTimeRange, nil
	}
	for _, r := range TimeRanges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q", s)
}

// Since returns the start of the window, subtracting calendar units in UTC.
func (r TimeRange) Since(now time.Time) time.Time {
	now = now.UTC()
	switch r {
	case Last30Days:
		return now.AddDate(0, 0, -30)
	case Last3Months:
		return now.AddDate(0, -3, 0)
	case LastYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}
