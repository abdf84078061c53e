package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rcliao/mnemo/internal/model"
)

// ReminderStore is the line-oriented checklist file:
//
//	- [ ] <due-expression> | <kind> | <message>
//
// with [x] marking a done reminder. Reminder IDs are derived from the line
// content, which is stable because lines are never edited in place.
type ReminderStore struct {
	Path string
}

// ReminderID derives the stable identifier for a checklist line.
func ReminderID(expr string, kind model.TriggerKind, message string) string {
	sum := sha256.Sum256([]byte(expr + "|" + string(kind) + "|" + message))
	return hex.EncodeToString(sum[:])[:8]
}

// Read parses all reminders. Lines that do not match the checklist format are
// ignored rather than failing the whole read.
func (s *ReminderStore) Read() ([]model.Reminder, error) {
	data, ok, err := readFile(s.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var out []model.Reminder
	for _, line := range strings.Split(string(data), "\n") {
		r, ok := parseReminderLine(line)
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Append adds a reminder to the checklist.
func (s *ReminderStore) Append(r model.Reminder) error {
	data, _, err := readFile(s.Path)
	if err != nil {
		return err
	}
	text := string(data)
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	text += fmt.Sprintf("- [ ] %s | %s | %s\n", r.Expr, r.Kind, r.Message)
	return WriteFileAtomic(s.Path, []byte(text))
}

// MarkDone flips the reminder's checkbox to [x]. Unknown IDs are an error so
// a typoed acknowledgement does not silently succeed.
func (s *ReminderStore) MarkDone(id string) error {
	data, ok, err := readFile(s.Path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reminder %s not found: no reminder file", id)
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		r, okLine := parseReminderLine(line)
		if !okLine || r.ID != id {
			continue
		}
		if r.Status == model.StatusDone {
			return nil
		}
		lines[i] = strings.Replace(line, "- [ ]", "- [x]", 1)
		return WriteFileAtomic(s.Path, []byte(strings.Join(lines, "\n")))
	}
	return fmt.Errorf("reminder %s not found", id)
}

func parseReminderLine(line string) (model.Reminder, bool) {
	trimmed := strings.TrimSpace(line)
	var done bool
	var rest string
	switch {
	case strings.HasPrefix(trimmed, "- [ ] "):
		rest = trimmed[len("- [ ] "):]
	case strings.HasPrefix(trimmed, "- [x] "), strings.HasPrefix(trimmed, "- [X] "):
		done = true
		rest = trimmed[len("- [x] "):]
	default:
		return model.Reminder{}, false
	}

	parts := strings.SplitN(rest, "|", 3)
	if len(parts) != 3 {
		return model.Reminder{}, false
	}
	expr := strings.TrimSpace(parts[0])
	kind := model.TriggerKind(strings.TrimSpace(parts[1]))
	msg := strings.TrimSpace(parts[2])
	if expr == "" || msg == "" || (kind != model.TriggerTime && kind != model.TriggerContext) {
		return model.Reminder{}, false
	}

	status := model.StatusPending
	if done {
		status = model.StatusDone
	}
	return model.Reminder{
		ID:      ReminderID(expr, kind, msg),
		Expr:    expr,
		Kind:    kind,
		Message: msg,
		Status:  status,
	}, true
}
