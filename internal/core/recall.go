package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/mnemo/internal/assemble"
	"github.com/rcliao/mnemo/internal/extract"
	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/promote"
	"github.com/rcliao/mnemo/internal/remind"
	"github.com/rcliao/mnemo/internal/session"
)

// RecallResult is the response to a recall operation.
type RecallResult struct {
	Context   string           `json:"context"`
	Session   session.Decision `json:"session"`
	Promotion *promote.Result  `json:"promotion,omitempty"`
	Health    Health           `json:"health"`
}

// Recall performs the lifecycle sequence: read state, detect a session
// boundary, drain the buffer and re-parse the store if one is detected,
// evaluate reminders, assemble context, and persist the advanced state.
// Calling it twice in immediate succession re-parses at most once.
func (e *Engine) Recall(ctx context.Context, force bool) (*RecallResult, error) {
	now := e.clock()
	rec := e.state.Load()

	fp, err := e.perm.Fingerprint()
	if err != nil {
		return nil, err
	}

	dec := session.Check(rec, now, fp, e.cfg.Gap())
	if force {
		dec.Boundary = true
	}

	var promoted *promote.Result
	var entries []model.Entry

	if dec.Boundary {
		if promoted, err = e.drainBuffer(ctx, now); err != nil {
			return nil, err
		}
		// Re-read: promotion may have appended to the store.
		if fp, err = e.perm.Fingerprint(); err != nil {
			return nil, err
		}
		text, err := e.perm.Read()
		if err != nil {
			return nil, err
		}
		entries = extract.Extract(text)
		e.reparses++
		if err := e.idx.Rebuild(ctx, entries, fp); err != nil {
			return nil, err
		}
		e.log.Debug("session boundary",
			zap.Bool("gap", dec.GapExceeded),
			zap.Bool("stale", dec.Stale),
			zap.Int("entries", len(entries)))
	} else {
		idxFP, err := e.idx.Fingerprint(ctx)
		if err != nil {
			return nil, err
		}
		if idxFP != fp {
			// Index missing or built from older content; rebuild it.
			text, err := e.perm.Read()
			if err != nil {
				return nil, err
			}
			entries = extract.Extract(text)
			e.reparses++
			if err := e.idx.Rebuild(ctx, entries, fp); err != nil {
				return nil, err
			}
		} else if entries, err = e.idx.All(ctx); err != nil {
			return nil, err
		}
	}

	buf, err := e.buf.Read()
	if err != nil {
		return nil, err
	}

	reminders, err := e.rems.Read()
	if err != nil {
		return nil, err
	}
	due := remind.EvaluateTime(reminders, now)
	// "next session" reminders surface exactly once, then auto-acknowledge.
	for _, d := range due {
		if d.NextSession {
			if err := e.rems.MarkDone(d.Reminder.ID); err != nil {
				return nil, err
			}
		}
	}

	text, err := e.perm.Read()
	if err != nil {
		return nil, err
	}
	counts, err := e.idx.AccessCounts(ctx)
	if err != nil {
		return nil, err
	}

	contextText := assemble.Assemble(assemble.Input{
		Entries:      entries,
		AccessCounts: counts,
		DueReminders: due,
		Buffer:       buf,
		NextStep:     extract.NextStep(text),
		Now:          now,
		Budgets:      e.cfg.Budgets,
	})

	if err := e.state.Save(session.Touch(rec, now, fp)); err != nil {
		return nil, err
	}

	health, err := e.health(ctx, fp, fp)
	if err != nil {
		return nil, err
	}

	return &RecallResult{
		Context:   contextText,
		Session:   dec,
		Promotion: promoted,
		Health:    health,
	}, nil
}

// drainBuffer promotes eligible buffer entries and clears the buffer. The
// clear happens only after every promoted entry is durably written, so a
// failure part-way leaves the buffer intact for the next attempt.
func (e *Engine) drainBuffer(ctx context.Context, now time.Time) (*promote.Result, error) {
	buf, err := e.buf.Read()
	if err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, nil
	}

	text, err := e.perm.Read()
	if err != nil {
		return nil, err
	}
	existing := extract.Extract(text)

	res := promote.New(existing, e.newID).Promote(buf, now)

	if toAppend := res.Entries(); len(toAppend) > 0 {
		if err := e.perm.Append(toAppend, now); err != nil {
			return nil, err
		}
		for _, s := range res.Supersession {
			if err := e.perm.SetSupersededBy(s.OldID, s.NewID); err != nil {
				return nil, err
			}
		}
	}

	if err := e.buf.Clear(); err != nil {
		return nil, err
	}

	e.log.Debug("buffer drained",
		zap.Int("inserted", len(res.Inserted)),
		zap.Int("linked", len(res.Linked)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// Checkpoint forces the boundary branch regardless of elapsed time.
func (e *Engine) Checkpoint(ctx context.Context) (*RecallResult, error) {
	return e.Recall(ctx, true)
}
