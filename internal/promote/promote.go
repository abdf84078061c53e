// Package promote migrates ephemeral session-buffer entries into permanent
// memory at session boundaries, consulting the similarity engine to avoid
// duplicates and to supersede stale entries.
package promote

import (
	"time"

	"github.com/rcliao/mnemo/internal/extract"
	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/similarity"
)

// Skipped records one buffer line that was not promoted and why.
type Skipped struct {
	Category model.Category `json:"category"`
	Text     string         `json:"text"`
	Reason   string         `json:"reason"`
}

// Supersession marks an existing entry as superseded by a newly inserted one.
type Supersession struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
}

// Result reports the outcome of a buffer drain. Inserted and Linked entries
// are both written to the permanent store; Linked additionally had a similar
// prior entry retained alongside.
type Result struct {
	Inserted     []model.Entry  `json:"inserted"`
	Linked       []model.Entry  `json:"linked"`
	Skipped      []Skipped      `json:"skipped"`
	Supersession []Supersession `json:"superseded,omitempty"`
}

// Entries returns everything to append to the permanent store, in buffer
// order.
func (r *Result) Entries() []model.Entry {
	out := make([]model.Entry, 0, len(r.Inserted)+len(r.Linked))
	out = append(out, r.Inserted...)
	out = append(out, r.Linked...)
	return out
}

// Engine evaluates buffer entries against the existing permanent corpus.
type Engine struct {
	corpus  *similarity.Corpus
	newID   func() string
	existed map[string]model.Entry
}

// New builds a promotion engine over the current permanent entries. newID
// mints identifiers for entries that get inserted.
func New(existing []model.Entry, newID func() string) *Engine {
	c := similarity.New()
	byID := make(map[string]model.Entry, len(existing))
	for _, e := range existing {
		c.Add(e.ID, e.Text)
		byID[e.ID] = e
	}
	return &Engine{corpus: c, newID: newID, existed: byID}
}

// Promote inspects the buffer and selects entries for permanent memory.
// Only rejected approaches with stated reasoning and experiences with a
// concrete technical signal are eligible; blockers and assumptions are
// session-scoped by design and always discarded. The caller clears the
// buffer only after the returned entries are durably written.
func (e *Engine) Promote(buf *model.Buffer, now time.Time) *Result {
	res := &Result{}

	for _, line := range buf.Rejected {
		if !extract.HasReasoning(line) {
			res.Skipped = append(res.Skipped, Skipped{
				Category: model.CategoryRejected, Text: line,
				Reason: "rejection without stated reasoning",
			})
			continue
		}
		e.place(res, model.CategoryRejected, model.KindGotcha, "Rejected: "+line, now)
	}

	for _, line := range buf.Experience {
		if !extract.HasTechnicalSignal(line) {
			res.Skipped = append(res.Skipped, Skipped{
				Category: model.CategoryExperience, Text: line,
				Reason: "no technical signal",
			})
			continue
		}
		e.place(res, model.CategoryExperience, model.KindLearning, line, now)
	}

	for _, line := range buf.Blockers {
		res.Skipped = append(res.Skipped, Skipped{
			Category: model.CategoryBlocker, Text: line, Reason: "category not eligible",
		})
	}
	for _, line := range buf.Assumptions {
		res.Skipped = append(res.Skipped, Skipped{
			Category: model.CategoryAssumption, Text: line, Reason: "category not eligible",
		})
	}

	return res
}

// place runs the duplicate/near-duplicate/similar/novel tiering for one
// candidate and records the outcome.
func (e *Engine) place(res *Result, cat model.Category, kind model.Kind, text string, now time.Time) {
	matchID, score := e.corpus.Best(text)

	entry := model.Entry{
		ID:         e.newID(),
		Kind:       kind,
		Text:       text,
		Confidence: extract.ConfKeyword,
		CreatedAt:  now,
	}

	switch similarity.Classify(score) {
	case similarity.TierDuplicate:
		res.Skipped = append(res.Skipped, Skipped{
			Category: cat, Text: text, Reason: "duplicate of " + matchID,
		})
		return
	case similarity.TierNearDuplicate:
		res.Inserted = append(res.Inserted, entry)
		res.Supersession = append(res.Supersession, Supersession{OldID: matchID, NewID: entry.ID})
	case similarity.TierSimilar:
		res.Linked = append(res.Linked, entry)
	default:
		res.Inserted = append(res.Inserted, entry)
	}

	// Later buffer lines are tiered against earlier ones too.
	e.corpus.Add(entry.ID, entry.Text)
}
