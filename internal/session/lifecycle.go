// Package session decides when a working session has ended. The state record
// is an explicit value passed in and returned; callers own its persistence.
package session

import (
	"time"

	"github.com/rcliao/mnemo/internal/model"
)

// DefaultGap is the inactivity threshold after which a new session begins.
const DefaultGap = 30 * time.Minute

// Decision is the outcome of one lifecycle check.
type Decision struct {
	Boundary    bool          `json:"boundary"`
	GapExceeded bool          `json:"gap_exceeded"`
	Stale       bool          `json:"stale"`
	FirstRun    bool          `json:"first_run"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Check evaluates the two boundary conditions: elapsed inactivity beyond the
// threshold, or the permanent store's fingerprint drifting from the recorded
// one. A zero record is a first run; with no store content it is simply
// fresh, with existing content the fingerprint mismatch forces a full parse.
func Check(rec model.StateRecord, now time.Time, fingerprint string, gap time.Duration) Decision {
	if gap <= 0 {
		gap = DefaultGap
	}

	d := Decision{FirstRun: rec.LastActivity.IsZero()}
	if !d.FirstRun {
		d.Elapsed = now.Sub(rec.LastActivity)
		d.GapExceeded = d.Elapsed > gap
	}
	d.Stale = fingerprint != rec.Fingerprint
	d.Boundary = d.GapExceeded || d.Stale
	return d
}

// Touch returns the record advanced to now with the given fingerprint.
func Touch(rec model.StateRecord, now time.Time, fingerprint string) model.StateRecord {
	rec.LastActivity = now
	rec.Fingerprint = fingerprint
	rec.SchemaVersion = model.StateSchemaVersion
	return rec
}
