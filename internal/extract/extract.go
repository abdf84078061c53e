// Package extract converts free-text lines into typed, confidence-scored
// memory entries. Classification is table-driven: a closed rule set maps
// labeled markers, bare keywords, and vague hints to entry kinds.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/mnemo/internal/model"
)

// Confidence levels assigned by classification. Ambiguous lines are kept at
// low confidence so consumers can filter by threshold instead of losing them.
const (
	ConfLabeled = 0.9
	ConfKeyword = 0.7
	ConfHint    = 0.4
	ConfCausal  = 0.1
	ConfMax     = 0.99
)

// rule maps one entry kind to its recognizers.
type rule struct {
	kind     model.Kind
	labeled  *regexp.Regexp
	keywords []*regexp.Regexp
}

func kw(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

var rules = []rule{
	{
		kind:     model.KindDecision,
		labeled:  regexp.MustCompile(`(?i)\*\*decided?:?\*\*:?\s*`),
		keywords: kw("decided", "decision", "going with", "settled on", "chose"),
	},
	{
		kind:     model.KindGotcha,
		labeled:  regexp.MustCompile(`(?i)\*\*gotcha:?\*\*:?\s*`),
		keywords: kw("gotcha", "watch out", "careful with", "tricky", "don't forget"),
	},
	{
		kind:     model.KindIssue,
		labeled:  regexp.MustCompile(`(?i)\*\*issue:?\*\*:?\s*`),
		keywords: kw("issue", "open question", "unresolved", "needs investigation"),
	},
	{
		kind:     model.KindLearning,
		labeled:  regexp.MustCompile(`(?i)\*\*learned:?\*\*:?\s*`),
		keywords: kw("learned", "turns out", "realized", "discovered", "til"),
	},
	{
		kind:     model.KindProblem,
		labeled:  regexp.MustCompile(`(?i)\*\*problem:?\*\*:?\s*`),
		keywords: kw("problem", "broken", "failing", "doesn't work", "crashes"),
	},
	{
		kind:     model.KindProgress,
		labeled:  regexp.MustCompile(`(?i)\*\*(?:progress|done):?\*\*:?\s*`),
		keywords: kw("finished", "completed", "shipped", "implemented", "working now"),
	},
}

// vague hints carry just enough signal to keep the line at low confidence.
var hints = []struct {
	kind model.Kind
	re   *regexp.Regexp
}{
	{model.KindDecision, regexp.MustCompile(`(?i)\b(thinking about|considering|leaning towards|might go with)\b`)},
	{model.KindIssue, regexp.MustCompile(`(?i)\b(not sure|unclear|wondering)\b`)},
	{model.KindProgress, regexp.MustCompile(`(?i)\b(started on|looking into|working on)\b`)},
}

var (
	causalRe = regexp.MustCompile(`(?i)\b(because|since)\b`)
	pinnedRe = regexp.MustCompile(`(?i)^\s*(?:-\s*)?(KEY:|important:)\s*`)

	// Session-summary records use a pipe-separated `date | summary | mood`
	// form and are a known extraction false-positive source.
	summaryRe = regexp.MustCompile(`^#{0,6}\s*\d{4}-\d{2}-\d{2}\s*\|[^|]*\|`)

	dateHeadingRe = regexp.MustCompile(`^##\s+(\d{4}-\d{2}-\d{2})\b`)
	metaRe        = regexp.MustCompile(`<!--\s*id:(\S+)(?:\s+conf:([\d.]+))?(?:\s+superseded-by:(\S+))?\s*-->`)
	nextStepRe    = regexp.MustCompile(`(?i)\*\*next:?\*\*:?\s*(.+)`)
)

// IsPinned reports whether a line carries the never-decays marker
// (a `KEY:` or `important:` prefix).
func IsPinned(line string) bool {
	return pinnedRe.MatchString(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- ")))
}

// IsSessionSummary reports whether a line is a session-summary record, which
// must never be extracted as an entity.
func IsSessionSummary(line string) bool {
	return summaryRe.MatchString(strings.TrimSpace(line))
}

// Classify matches a single line against the rule table. It returns the best
// kind, the confidence, and the entry text with any labeled marker stripped.
// ok is false when the line carries no recognizable signal at all.
func Classify(line string) (kind model.Kind, confidence float64, text string, ok bool) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
	if trimmed == "" || IsSessionSummary(line) {
		return "", 0, "", false
	}
	body := pinnedRe.ReplaceAllString(trimmed, "")

	for _, r := range rules {
		if loc := r.labeled.FindStringIndex(body); loc != nil {
			kind, confidence = r.kind, ConfLabeled
			text = strings.TrimSpace(body[loc[1]:])
			if text == "" {
				text = strings.TrimSpace(body[:loc[0]])
			}
			ok = true
			break
		}
	}
	if !ok {
		for _, r := range rules {
			for _, k := range r.keywords {
				if k.MatchString(body) {
					kind, confidence, text, ok = r.kind, ConfKeyword, body, true
					break
				}
			}
			if ok {
				break
			}
		}
	}
	if !ok {
		for _, h := range hints {
			if h.re.MatchString(body) {
				kind, confidence, text, ok = h.kind, ConfHint, body, true
				break
			}
		}
	}
	if !ok {
		return "", 0, "", false
	}

	if causalRe.MatchString(body) {
		confidence += ConfCausal
		if confidence > ConfMax {
			confidence = ConfMax
		}
	}
	return kind, confidence, text, true
}

// Extract parses a full permanent-store document into entries. Date headings
// provide creation times; metadata comments written by the engine restore
// IDs, recorded confidence, and superseded-by references.
func Extract(text string) []model.Entry {
	var entries []model.Entry
	var current time.Time

	for i, line := range strings.Split(text, "\n") {
		if m := dateHeadingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if t, err := time.Parse("2006-01-02", m[1]); err == nil {
				current = t
			}
		}
		if IsSessionSummary(line) {
			continue
		}

		body := line
		var id, supersededBy string
		var recordedConf float64
		if m := metaRe.FindStringSubmatch(line); m != nil {
			id = m[1]
			if m[2] != "" {
				recordedConf, _ = strconv.ParseFloat(m[2], 64)
			}
			supersededBy = m[3]
			body = metaRe.ReplaceAllString(line, "")
		}

		kind, conf, entryText, ok := Classify(body)
		if !ok {
			continue
		}
		if recordedConf > 0 {
			conf = recordedConf
		}
		if id == "" {
			id = deriveID(kind, entryText)
		}
		entries = append(entries, model.Entry{
			ID:           id,
			Kind:         kind,
			Text:         entryText,
			Confidence:   conf,
			CreatedAt:    current,
			SourceLine:   i + 1,
			SupersededBy: supersededBy,
			Pinned:       IsPinned(body),
		})
	}
	return entries
}

// NextStep returns the last declared `**Next:**` line in the store, used for
// cross-session continuity ranking.
func NextStep(text string) string {
	var out string
	for _, line := range strings.Split(text, "\n") {
		if m := nextStepRe.FindStringSubmatch(line); m != nil {
			out = strings.TrimSpace(m[1])
		}
	}
	return out
}

// deriveID gives hand-written prose entries a stable identifier.
func deriveID(kind model.Kind, text string) string {
	sum := sha256.Sum256([]byte(string(kind) + "|" + text))
	return hex.EncodeToString(sum[:])[:12]
}
