package core

import (
	"context"

	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/remind"
	"github.com/rcliao/mnemo/internal/storage"
)

// Remind creates a reminder from a message and a due expression. An
// unparseable expression fails this call only; nothing is stored.
func (e *Engine) Remind(ctx context.Context, message, when string) (*model.Reminder, error) {
	expr, trig, err := remind.Normalize(when, e.clock())
	if err != nil {
		return nil, err
	}

	r := model.Reminder{
		ID:      storage.ReminderID(expr, trig.Kind, message),
		Expr:    expr,
		Kind:    trig.Kind,
		Message: message,
		Status:  model.StatusPending,
	}
	if err := e.rems.Append(r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Reminders lists all reminders with their current status. Due status for
// time triggers is computed against now; context triggers stay pending here
// because there is no conversational text to match.
func (e *Engine) Reminders(ctx context.Context) ([]model.Reminder, error) {
	reminders, err := e.rems.Read()
	if err != nil {
		return nil, err
	}

	now := e.clock()
	due := map[string]bool{}
	for _, d := range remind.EvaluateTime(reminders, now) {
		due[d.Reminder.ID] = true
	}
	for i, r := range reminders {
		if r.Status == model.StatusPending && due[r.ID] {
			reminders[i].Status = model.StatusDue
		}
	}
	return reminders, nil
}

// ReminderDone acknowledges a reminder by ID.
func (e *Engine) ReminderDone(ctx context.Context, id string) error {
	return e.rems.MarkDone(id)
}
