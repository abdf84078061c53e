// Package assemble ranks memory entries and renders the bounded context
// summary delivered back to the assistant.
package assemble

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/mnemo/internal/extract"
	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/remind"
)

// DecayDays is the characteristic time of the recency decay: a week-old
// entry scores ~37% of a fresh one.
const DecayDays = 7.0

// Budgets caps the item count per rendered category. Due reminders are
// always surfaced ahead of any budget.
type Budgets struct {
	Decisions int `yaml:"decisions"`
	Issues    int `yaml:"issues"`
	Gotchas   int `yaml:"gotchas"`
	Progress  int `yaml:"progress"`
}

// DefaultBudgets returns the standard per-category item caps.
func DefaultBudgets() Budgets {
	return Budgets{Decisions: 5, Issues: 5, Gotchas: 5, Progress: 3}
}

// Input is everything the assembler ranks and renders.
type Input struct {
	Entries      []model.Entry
	AccessCounts map[string]int
	DueReminders []remind.Due
	Buffer       *model.Buffer
	NextStep     string
	Keywords     []string // current stack / conversation keywords
	Now          time.Time
	Budgets      Budgets
}

// Score combines exponential recency decay, a logarithmic access-frequency
// boost, a keyword boost, and a continuity boost for entries referenced in
// the prior session's declared next step. Pinned entries never decay.
func Score(e model.Entry, in Input) float64 {
	recency := 1.0
	if !e.Pinned && !e.CreatedAt.IsZero() {
		age := in.Now.Sub(e.CreatedAt).Hours() / 24.0
		if age > 0 {
			recency = math.Exp(-age / DecayDays)
		}
	}

	access := 0.0
	if n := in.AccessCounts[e.ID]; n > 0 {
		access = math.Log(float64(n)+1) / math.Log(100)
		if access > 1 {
			access = 1
		}
	}

	lower := strings.ToLower(e.Text)
	keyword := 0.0
	for _, k := range in.Keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			keyword = 1
			break
		}
	}

	continuity := 0.0
	if in.NextStep != "" && overlaps(lower, in.NextStep) {
		continuity = 1
	}

	return 0.45*recency + 0.15*access + 0.25*keyword + 0.15*continuity
}

func overlaps(lowerText, nextStep string) bool {
	for _, k := range extract.Keywords(nextStep, 8) {
		if strings.Contains(lowerText, k) {
			return true
		}
	}
	return false
}

type section struct {
	title  string
	kinds  []model.Kind
	budget func(Budgets) int
}

var sections = []section{
	{"Recent decisions", []model.Kind{model.KindDecision}, func(b Budgets) int { return b.Decisions }},
	{"Open issues", []model.Kind{model.KindIssue, model.KindProblem}, func(b Budgets) int { return b.Issues }},
	{"Gotchas", []model.Kind{model.KindGotcha}, func(b Budgets) int { return b.Gotchas }},
	{"Learnings & progress", []model.Kind{model.KindLearning, model.KindProgress}, func(b Budgets) int { return b.Progress }},
}

// Assemble renders the context summary. Output is deterministic for a given
// input: no timestamps or scores appear in the text, so back-to-back recalls
// over an unchanged store produce identical bytes.
func Assemble(in Input) string {
	if in.Budgets == (Budgets{}) {
		in.Budgets = DefaultBudgets()
	}

	var b strings.Builder
	b.WriteString("# Memory Context\n")

	if len(in.DueReminders) > 0 {
		b.WriteString("\n## Due reminders\n")
		for _, d := range in.DueReminders {
			b.WriteString("- " + d.Reminder.Message)
			if d.MatchedWord != "" {
				b.WriteString(" (triggered by \"" + d.MatchedWord + "\")")
			} else {
				b.WriteString(" (" + d.Reminder.Expr + ")")
			}
			b.WriteString("\n")
		}
	}

	byKind := map[model.Kind][]model.Entry{}
	for _, e := range in.Entries {
		if e.SupersededBy != "" {
			continue
		}
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}

	for _, sec := range sections {
		var items []model.Entry
		for _, k := range sec.kinds {
			items = append(items, byKind[k]...)
		}
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			return Score(items[i], in) > Score(items[j], in)
		})
		if max := sec.budget(in.Budgets); max > 0 && len(items) > max {
			items = items[:max]
		}
		b.WriteString("\n## " + sec.title + "\n")
		for _, e := range items {
			b.WriteString("- " + e.Text + "\n")
		}
	}

	if in.Buffer != nil && in.Buffer.Len() > 0 {
		b.WriteString("\n## This session\n")
		for _, line := range in.Buffer.Blockers {
			b.WriteString("- blocked: " + line + "\n")
		}
		for _, line := range in.Buffer.Assumptions {
			b.WriteString("- assuming: " + line + "\n")
		}
	}

	if in.NextStep != "" {
		b.WriteString("\n## Next step\n" + in.NextStep + "\n")
	}

	return b.String()
}
