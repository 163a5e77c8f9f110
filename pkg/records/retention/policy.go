package retention

import (
	"errors"
	"time"
)

// Policy controls scheduled sweeps for one kind.
type Policy struct {
	// RetentionDays is how many calendar days of records to keep.
	RetentionDays int

	// Enabled turns scheduled sweeps on.
	Enabled bool
}

// PolicyFunc returns the policy in effect right now.
type PolicyFunc func() Policy

// StaticPolicy returns a PolicyFunc that always yields p.
func StaticPolicy(p Policy) PolicyFunc {
	return func() Policy { return p }
}

// Cutoff returns now minus RetentionDays calendar days, in UTC.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -p.RetentionDays)
}

// Validate reports whether an enabled policy can produce a cutoff.
func (p Policy) Validate() error {
	if p.Enabled && p.RetentionDays <= 0 {
		return errors.New("retention_days must be positive when retention is enabled")
	}
	return nil
}
