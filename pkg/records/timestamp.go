package records

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Timestamps are persisted as Unix nanoseconds. The first and last
// representable instants are reserved so that out-of-range filter bounds can
// be clamped onto them without changing which stored records match.
var (
	EarliestTimestamp = time.Unix(0, math.MinInt64+1).UTC()
	LatestTimestamp   = time.Unix(0, math.MaxInt64-1).UTC()
)

// ErrTimestampRange is returned for a timestamp that cannot be persisted.
var ErrTimestampRange = errors.New("timestamp out of range")

// CheckTimestamp reports whether t can be stored. The zero time is allowed
// and means "unset".
func CheckTimestamp(t time.Time) error {
	if t.IsZero() || (!t.Before(EarliestTimestamp) && !t.After(LatestTimestamp)) {
		return nil
	}
	return fmt.Errorf("%w: %s is outside %s to %s", ErrTimestampRange,
		t.UTC().Format(time.RFC3339), EarliestTimestamp.Format(time.DateOnly), LatestTimestamp.Format(time.DateOnly))
}
