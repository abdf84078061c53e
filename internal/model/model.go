// Package model defines the core memory data types.
package model

import "time"

// Kind classifies a permanent memory entry.
type Kind string

const (
	KindDecision Kind = "decision"
	KindIssue    Kind = "issue"
	KindLearning Kind = "learning"
	KindProblem  Kind = "problem"
	KindProgress Kind = "progress"
	KindGotcha   Kind = "gotcha"
)

// ValidKinds are the allowed permanent entry kinds.
var ValidKinds = map[Kind]bool{
	KindDecision: true,
	KindIssue:    true,
	KindLearning: true,
	KindProblem:  true,
	KindProgress: true,
	KindGotcha:   true,
}

// Category names one section of the ephemeral session buffer.
type Category string

const (
	CategoryExperience Category = "experience"
	CategoryBlocker    Category = "blocker"
	CategoryRejected   Category = "rejected"
	CategoryAssumption Category = "assumption"
)

// ValidCategories are the allowed session buffer categories.
var ValidCategories = map[Category]bool{
	CategoryExperience: true,
	CategoryBlocker:    true,
	CategoryRejected:   true,
	CategoryAssumption: true,
}

// Entry is one permanent memory entry. Entries are immutable once written;
// the only mutation ever applied after the fact is setting SupersededBy.
type Entry struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Text         string    `json:"text"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
	SourceLine   int       `json:"source_line,omitempty"`
	SupersededBy string    `json:"superseded_by,omitempty"`
	Pinned       bool      `json:"pinned,omitempty"`
}

// Buffer holds the current session's ephemeral notes, one bag per category.
type Buffer struct {
	Experience  []string `json:"experience"`
	Blockers    []string `json:"blockers"`
	Rejected    []string `json:"rejected"`
	Assumptions []string `json:"assumptions"`
}

// Lines returns the entries of one category.
func (b *Buffer) Lines(cat Category) []string {
	switch cat {
	case CategoryExperience:
		return b.Experience
	case CategoryBlocker:
		return b.Blockers
	case CategoryRejected:
		return b.Rejected
	case CategoryAssumption:
		return b.Assumptions
	}
	return nil
}

// Add appends a line to the given category.
func (b *Buffer) Add(cat Category, line string) {
	switch cat {
	case CategoryExperience:
		b.Experience = append(b.Experience, line)
	case CategoryBlocker:
		b.Blockers = append(b.Blockers, line)
	case CategoryRejected:
		b.Rejected = append(b.Rejected, line)
	case CategoryAssumption:
		b.Assumptions = append(b.Assumptions, line)
	}
}

// Len is the total number of buffered lines across all categories.
func (b *Buffer) Len() int {
	return len(b.Experience) + len(b.Blockers) + len(b.Rejected) + len(b.Assumptions)
}

// TriggerKind distinguishes time-based from context-based reminder triggers.
type TriggerKind string

const (
	TriggerTime    TriggerKind = "time"
	TriggerContext TriggerKind = "context"
)

// ReminderStatus is the reminder lifecycle state.
type ReminderStatus string

const (
	StatusPending ReminderStatus = "pending"
	StatusDue     ReminderStatus = "due"
	StatusDone    ReminderStatus = "done"
)

// Reminder is one checklist entry. Expr is the raw due expression as written;
// the resolved trigger is recomputed from it on every evaluation.
type Reminder struct {
	ID      string         `json:"id"`
	Expr    string         `json:"expr"`
	Kind    TriggerKind    `json:"kind"`
	Message string         `json:"message"`
	Status  ReminderStatus `json:"status"`
}

// StateSchemaVersion is the current state record layout version.
const StateSchemaVersion = 1

// StateRecord tracks per-project session state. A zero record means
// "first run": no prior activity and an empty fingerprint.
type StateRecord struct {
	LastActivity  time.Time `json:"last_activity"`
	Fingerprint   string    `json:"content_fingerprint"`
	SchemaVersion int       `json:"schema_version"`
}
