package session

import (
	"testing"
	"time"

	"github.com/rcliao/mnemo/internal/model"
)

func TestGapThreshold(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	rec := model.StateRecord{LastActivity: base, Fingerprint: "abc"}

	d := Check(rec, base.Add(29*time.Minute), "abc", 30*time.Minute)
	if d.Boundary {
		t.Error("29m elapsed should not be a boundary")
	}

	d = Check(rec, base.Add(31*time.Minute), "abc", 30*time.Minute)
	if !d.Boundary || !d.GapExceeded {
		t.Errorf("31m elapsed should be a boundary: %+v", d)
	}
}

func TestFingerprintDrift(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	rec := model.StateRecord{LastActivity: base, Fingerprint: "abc"}

	d := Check(rec, base.Add(time.Minute), "other", 30*time.Minute)
	if !d.Boundary || !d.Stale {
		t.Errorf("drifted fingerprint should be a boundary: %+v", d)
	}
	if d.GapExceeded {
		t.Error("gap should not be exceeded at 1m")
	}
}

func TestFirstRun(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	// No store yet: fresh, nothing to re-parse.
	d := Check(model.StateRecord{}, now, "", 0)
	if !d.FirstRun || d.Boundary {
		t.Errorf("empty first run should be fresh: %+v", d)
	}

	// Existing store content on first run forces a full parse.
	d = Check(model.StateRecord{}, now, "deadbeef", 0)
	if !d.FirstRun || !d.Boundary || !d.Stale {
		t.Errorf("first run over existing store should be stale: %+v", d)
	}
}

func TestTouch(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	rec := Touch(model.StateRecord{}, now, "fp1")
	if !rec.LastActivity.Equal(now) || rec.Fingerprint != "fp1" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.SchemaVersion != model.StateSchemaVersion {
		t.Errorf("schema version = %d", rec.SchemaVersion)
	}

	d := Check(rec, now, "fp1", 0)
	if d.Boundary {
		t.Errorf("touched record should read fresh: %+v", d)
	}
}
