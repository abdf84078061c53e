package core

import (
	"context"
	"sort"
	"strings"

	"github.com/rcliao/mnemo/internal/extract"
	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/similarity"
)

// SearchHit is one ranked search result. Source distinguishes indexed
// permanent memory from raw, not-yet-promoted buffer lines.
type SearchHit struct {
	Entry  model.Entry `json:"entry"`
	Score  float64     `json:"score"`
	Source string      `json:"source"` // "memory" or "buffer"
}

const defaultSearchLimit = 20

// Search queries indexed permanent memory and, when includeUnpromoted is
// set, the raw session buffer. Buffer entries are not indexed, so the scan
// is a substring match; this is what makes same-session notes findable.
func (e *Engine) Search(ctx context.Context, query string, includeUnpromoted bool) ([]SearchHit, error) {
	matches, err := e.idx.Search(ctx, query, defaultSearchLimit)
	if err != nil {
		return nil, err
	}

	// Re-score full-text matches with TF-IDF cosine against the whole
	// indexed corpus so scores are comparable across queries.
	all, err := e.idx.All(ctx)
	if err != nil {
		return nil, err
	}
	corpus := similarity.New()
	for _, entry := range all {
		corpus.Add(entry.ID, entry.Text)
	}

	var hits []SearchHit
	var touched []string
	for _, entry := range matches {
		hits = append(hits, SearchHit{
			Entry:  entry,
			Score:  corpus.Similarity(query, entry.Text),
			Source: "memory",
		})
		touched = append(touched, entry.ID)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if includeUnpromoted {
		bufHits, err := e.searchBuffer(query)
		if err != nil {
			return nil, err
		}
		hits = append(hits, bufHits...)
	}

	if err := e.idx.Touch(ctx, touched); err != nil {
		return nil, err
	}
	return hits, nil
}

func (e *Engine) searchBuffer(query string) ([]SearchHit, error) {
	buf, err := e.buf.Read()
	if err != nil {
		return nil, err
	}

	tokens := similarity.Tokenize(query)
	var hits []SearchHit
	for _, cat := range []model.Category{
		model.CategoryExperience, model.CategoryBlocker,
		model.CategoryRejected, model.CategoryAssumption,
	} {
		for _, line := range buf.Lines(cat) {
			lower := strings.ToLower(line)
			for _, t := range tokens {
				if strings.Contains(lower, t) {
					hits = append(hits, SearchHit{
						Entry:  model.Entry{Text: line, Kind: model.Kind(cat)},
						Source: "buffer",
					})
					break
				}
			}
		}
	}
	return hits, nil
}

// BlockerResult reports a logged blocker and permanent memories related to
// it.
type BlockerResult struct {
	Logged  string      `json:"logged"`
	Related []SearchHit `json:"related_memories"`
}

// Blocker logs a blocker to the session buffer and immediately searches
// permanent memory with keywords extracted from the description.
func (e *Engine) Blocker(ctx context.Context, description string) (*BlockerResult, error) {
	if _, err := e.Log(ctx, description, string(model.CategoryBlocker)); err != nil {
		return nil, err
	}

	keywords := extract.Keywords(description, 6)
	res := &BlockerResult{Logged: description}
	if len(keywords) == 0 {
		return res, nil
	}

	hits, err := e.Search(ctx, strings.Join(keywords, " "), false)
	if err != nil {
		return nil, err
	}
	if len(hits) > 5 {
		hits = hits[:5]
	}
	res.Related = hits
	return res, nil
}
