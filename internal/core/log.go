package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/mnemo/internal/extract"
	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/remind"
	"github.com/rcliao/mnemo/internal/session"
	"github.com/rcliao/mnemo/internal/similarity"
)

// LoopWarning flags that a newly rejected approach closely resembles a
// previously rejected one.
type LoopWarning struct {
	Severity   string  `json:"severity"`
	Similarity float64 `json:"similarity"`
	PriorText  string  `json:"prior_text"`
}

// LogResult is the response to a log operation.
type LogResult struct {
	StoredAs      string       `json:"stored_as"` // "permanent" or "session-buffer"
	Kind          string       `json:"kind"`
	Confidence    float64      `json:"confidence,omitempty"`
	LowConfidence bool         `json:"low_confidence,omitempty"`
	Loop          *LoopWarning `json:"loop_warning,omitempty"`
	Triggered     []remind.Due `json:"triggered_reminders,omitempty"`
}

// lowConfidenceThreshold flags entries consumers may want to filter. Flagged
// entries are still stored; input is never silently dropped.
const lowConfidenceThreshold = 0.5

// Log routes text to the permanent store or the session buffer by kind and
// applies extractor confidence. Context-triggered reminders are evaluated
// against the logged text.
func (e *Engine) Log(ctx context.Context, text, kind string) (*LogResult, error) {
	if text == "" {
		return nil, fmt.Errorf("log: empty text")
	}

	var res *LogResult
	var err error
	switch {
	case model.ValidKinds[model.Kind(kind)]:
		res, err = e.logPermanent(ctx, text, model.Kind(kind))
	case model.ValidCategories[model.Category(kind)]:
		res, err = e.logBuffer(ctx, text, model.Category(kind))
	default:
		return nil, fmt.Errorf("log: unknown kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	reminders, rerr := e.rems.Read()
	if rerr != nil {
		return nil, rerr
	}
	res.Triggered = remind.EvaluateContext(reminders, text)

	return res, nil
}

func (e *Engine) logPermanent(ctx context.Context, text string, kind model.Kind) (*LogResult, error) {
	now := e.clock()

	// Confidence comes from the classification rules; the caller's kind
	// wins, so an unrecognizable line is stored as a low-confidence hint
	// rather than rejected.
	_, conf, body, ok := extract.Classify(text)
	if !ok {
		conf, body = extract.ConfHint, text
	}

	entry := model.Entry{
		ID:         e.newID(),
		Kind:       kind,
		Text:       body,
		Confidence: conf,
		CreatedAt:  now,
		Pinned:     extract.IsPinned(text),
	}

	fpBefore, err := e.perm.Fingerprint()
	if err != nil {
		return nil, err
	}
	if err := e.perm.Append([]model.Entry{entry}, now); err != nil {
		return nil, err
	}
	fpAfter, err := e.perm.Fingerprint()
	if err != nil {
		return nil, err
	}

	// Keep the index and state fingerprint in step with an engine-owned
	// append, so logging does not read as an external edit on the next
	// recall. Unnoticed third-party edits still surface: the recorded
	// fingerprint only advances when it matched the pre-append content.
	if err := e.idx.Insert(ctx, entry, fpAfter); err != nil {
		return nil, err
	}
	rec := e.state.Load()
	if rec.Fingerprint == fpBefore {
		rec = session.Touch(rec, now, fpAfter)
	} else {
		rec.LastActivity = now
	}
	if err := e.state.Save(rec); err != nil {
		return nil, err
	}

	e.log.Debug("logged permanent entry",
		zap.String("kind", string(kind)),
		zap.Float64("confidence", conf))

	return &LogResult{
		StoredAs:      "permanent",
		Kind:          string(kind),
		Confidence:    conf,
		LowConfidence: conf < lowConfidenceThreshold,
	}, nil
}

func (e *Engine) logBuffer(ctx context.Context, text string, cat model.Category) (*LogResult, error) {
	res := &LogResult{StoredAs: "session-buffer", Kind: string(cat)}

	if cat == model.CategoryRejected {
		if warn, err := e.loopCheck(ctx, text); err != nil {
			return nil, err
		} else if warn != nil {
			res.Loop = warn
		}
	}

	if err := e.buf.Append(cat, text); err != nil {
		return nil, err
	}

	rec := e.state.Load()
	rec.LastActivity = e.clock()
	if err := e.state.Save(rec); err != nil {
		return nil, err
	}
	return res, nil
}

// loopCheck compares a newly rejected approach against prior rejections,
// both still-buffered ones and those already promoted as gotchas.
func (e *Engine) loopCheck(ctx context.Context, text string) (*LoopWarning, error) {
	buf, err := e.buf.Read()
	if err != nil {
		return nil, err
	}
	indexed, err := e.idx.All(ctx)
	if err != nil {
		return nil, err
	}

	corpus := similarity.New()
	prior := map[string]string{}
	for i, line := range buf.Rejected {
		id := fmt.Sprintf("buf-%d", i)
		corpus.Add(id, line)
		prior[id] = line
	}
	for _, entry := range indexed {
		if entry.Kind == model.KindGotcha && entry.SupersededBy == "" {
			corpus.Add(entry.ID, entry.Text)
			prior[entry.ID] = entry.Text
		}
	}

	id, score := corpus.Best(text)
	severity := similarity.LoopSeverity(score)
	if severity == "" {
		return nil, nil
	}

	e.log.Debug("loop detected",
		zap.String("severity", severity),
		zap.Float64("similarity", score))
	return &LoopWarning{Severity: severity, Similarity: score, PriorText: prior[id]}, nil
}
