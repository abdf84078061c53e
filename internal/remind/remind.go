// Package remind parses natural-language due expressions at write time and
// evaluates due or triggered reminders at read time.
package remind

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/mnemo/internal/model"
)

// ErrMalformedTrigger marks a due expression that cannot be parsed. The
// failure is fatal to the single remind call only.
var ErrMalformedTrigger = errors.New("malformed trigger expression")

// NextSessionExpr is the symbolic literal firing on the next session
// boundary regardless of elapsed time.
const NextSessionExpr = "next session"

// Trigger is a resolved due expression.
type Trigger struct {
	Kind        model.TriggerKind
	At          time.Time // time triggers only; zero for next-session
	NextSession bool
	Keywords    []string // context triggers only
}

var (
	relativeRe = regexp.MustCompile(`(?i)^in\s+(\d+)\s+(minute|hour|day|week)s?$`)
	isoRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	isoTimeRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}$`)
	verbalRe   = regexp.MustCompile(`(?i)^(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?$`)
)

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// ParseTrigger resolves a due expression relative to now. Context triggers
// use the form "on kw[,kw...]"; everything else must be a recognized time
// form or the call fails with ErrMalformedTrigger.
func ParseTrigger(expr string, now time.Time) (Trigger, error) {
	expr = strings.TrimSpace(expr)
	lower := strings.ToLower(expr)

	if rest, ok := strings.CutPrefix(lower, "on "); ok {
		var keywords []string
		for _, k := range strings.Split(rest, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return Trigger{}, fmt.Errorf("%w: %q has no keywords", ErrMalformedTrigger, expr)
		}
		return Trigger{Kind: model.TriggerContext, Keywords: keywords}, nil
	}

	if lower == NextSessionExpr {
		return Trigger{Kind: model.TriggerTime, NextSession: true}, nil
	}
	if lower == "tomorrow" {
		y, m, d := now.Date()
		return Trigger{Kind: model.TriggerTime, At: time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())}, nil
	}
	if m := relativeRe.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		var at time.Time
		switch strings.ToLower(m[2]) {
		case "minute":
			at = now.Add(time.Duration(n) * time.Minute)
		case "hour":
			at = now.Add(time.Duration(n) * time.Hour)
		case "day":
			at = now.AddDate(0, 0, n)
		case "week":
			at = now.AddDate(0, 0, 7*n)
		}
		return Trigger{Kind: model.TriggerTime, At: at}, nil
	}
	if isoRe.MatchString(expr) {
		at, err := time.ParseInLocation("2006-01-02", expr, now.Location())
		if err != nil {
			return Trigger{}, fmt.Errorf("%w: %q", ErrMalformedTrigger, expr)
		}
		return Trigger{Kind: model.TriggerTime, At: at}, nil
	}
	if isoTimeRe.MatchString(expr) {
		at, err := time.ParseInLocation("2006-01-02T15:04", expr, now.Location())
		if err != nil {
			return Trigger{}, fmt.Errorf("%w: %q", ErrMalformedTrigger, expr)
		}
		return Trigger{Kind: model.TriggerTime, At: at}, nil
	}
	if m := verbalRe.FindStringSubmatch(expr); m != nil {
		day, _ := strconv.Atoi(m[2])
		month := months[strings.ToLower(m[1])]
		at := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		if at.Before(now.Truncate(24 * time.Hour)) {
			at = at.AddDate(1, 0, 0)
		}
		if at.Month() != month {
			return Trigger{}, fmt.Errorf("%w: %q is not a valid date", ErrMalformedTrigger, expr)
		}
		return Trigger{Kind: model.TriggerTime, At: at}, nil
	}

	return Trigger{}, fmt.Errorf("%w: %q", ErrMalformedTrigger, expr)
}

// Normalize parses expr and returns the canonical form to persist. Relative
// and verbal time expressions are anchored at creation by rewriting them to
// an absolute instant; "next session" and context forms are kept verbatim.
func Normalize(expr string, now time.Time) (string, Trigger, error) {
	trig, err := ParseTrigger(expr, now)
	if err != nil {
		return "", Trigger{}, err
	}
	if trig.Kind != model.TriggerTime || trig.NextSession {
		return strings.TrimSpace(expr), trig, nil
	}
	at := trig.At
	if at.Hour() == 0 && at.Minute() == 0 && at.Second() == 0 {
		return at.Format("2006-01-02"), trig, nil
	}
	return at.Format("2006-01-02T15:04"), trig, nil
}

// Due is one triggered reminder together with why it fired.
type Due struct {
	Reminder    model.Reminder `json:"reminder"`
	NextSession bool           `json:"next_session,omitempty"`
	MatchedWord string         `json:"matched_keyword,omitempty"`
}

// EvaluateTime returns pending time-triggered reminders that are due at now.
// "next session" reminders are always due here, since being evaluated during
// a recall means a new session has started. Reminders whose stored expression
// no longer parses are skipped, never fatal to the batch.
func EvaluateTime(reminders []model.Reminder, now time.Time) []Due {
	var due []Due
	for _, r := range reminders {
		if r.Status == model.StatusDone || r.Kind != model.TriggerTime {
			continue
		}
		trig, err := ParseTrigger(r.Expr, now)
		if err != nil {
			continue
		}
		if trig.NextSession {
			due = append(due, Due{Reminder: r, NextSession: true})
		} else if !trig.At.After(now) {
			due = append(due, Due{Reminder: r})
		}
	}
	return due
}

// EvaluateContext returns pending context-triggered reminders whose keywords
// appear in text. Matching is case-insensitive substring containment, not
// stemming. Context reminders are never auto-dismissed; the same keyword may
// recur across many turns.
func EvaluateContext(reminders []model.Reminder, text string) []Due {
	lower := strings.ToLower(text)
	var due []Due
	for _, r := range reminders {
		if r.Status == model.StatusDone || r.Kind != model.TriggerContext {
			continue
		}
		trig, err := ParseTrigger(r.Expr, time.Time{})
		if err != nil {
			continue
		}
		for _, k := range trig.Keywords {
			if strings.Contains(lower, k) {
				due = append(due, Due{Reminder: r, MatchedWord: k})
				break
			}
		}
	}
	return due
}
