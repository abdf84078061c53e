package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rcliao/mnemo/internal/model"
)

// Health is the compact health block included in recall responses.
type Health struct {
	StoreBytes  int64    `json:"store_bytes"`
	EntryCount  int      `json:"entry_count"`
	BufferCount int      `json:"buffer_count"`
	Warnings    []string `json:"warnings,omitempty"`
}

// StatusResult is the full health summary returned by the status operation.
type StatusResult struct {
	Dir           string     `json:"dir"`
	StoreBytes    int64      `json:"store_bytes"`
	IndexBytes    int64      `json:"index_bytes"`
	EntryCount    int        `json:"entry_count"`
	BufferCount   int        `json:"buffer_count"`
	Pending       int        `json:"reminders_pending"`
	Done          int        `json:"reminders_done"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
	Stale         bool       `json:"stale"`
	SchemaVersion int        `json:"schema_version"`
	Warnings      []string   `json:"warnings,omitempty"`
}

func (e *Engine) health(ctx context.Context, currentFP, recordedFP string) (Health, error) {
	h := Health{StoreBytes: e.perm.Size()}

	var err error
	if h.EntryCount, err = e.idx.Count(ctx); err != nil {
		return h, err
	}
	buf, err := e.buf.Read()
	if err != nil {
		return h, err
	}
	h.BufferCount = buf.Len()

	if currentFP != recordedFP {
		h.Warnings = append(h.Warnings, "permanent store changed outside the engine")
	}
	if h.StoreBytes > e.cfg.ArchiveThresholdBytes {
		h.Warnings = append(h.Warnings,
			fmt.Sprintf("permanent store is %d bytes; consider archiving older sections", h.StoreBytes))
	}
	return h, nil
}

// Status reports file sizes, entry counts, and staleness warnings.
func (e *Engine) Status(ctx context.Context) (*StatusResult, error) {
	rec := e.state.Load()
	fp, err := e.perm.Fingerprint()
	if err != nil {
		return nil, err
	}

	h, err := e.health(ctx, fp, rec.Fingerprint)
	if err != nil {
		return nil, err
	}

	res := &StatusResult{
		Dir:           e.dir,
		StoreBytes:    h.StoreBytes,
		EntryCount:    h.EntryCount,
		BufferCount:   h.BufferCount,
		Stale:         fp != rec.Fingerprint,
		SchemaVersion: rec.SchemaVersion,
		Warnings:      h.Warnings,
	}
	if !rec.LastActivity.IsZero() {
		t := rec.LastActivity
		res.LastActivity = &t
	}
	if info, err := os.Stat(filepath.Join(e.dir, IndexFile)); err == nil {
		res.IndexBytes = info.Size()
	}

	reminders, err := e.rems.Read()
	if err != nil {
		return nil, err
	}
	for _, r := range reminders {
		if r.Status == model.StatusDone {
			res.Done++
		} else {
			res.Pending++
		}
	}
	return res, nil
}
