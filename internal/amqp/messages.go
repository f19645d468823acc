package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is what happened to an expense.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// ExpenseEvent announces a change to one expense. It carries only the ID; the
// consumer reads the current row from storage.
type ExpenseEvent struct {
	ID        int64     `json:"id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEvent(id int64, action Action) ExpenseEvent {
	return ExpenseEvent{ID: id, Action: action, Timestamp: time.Now().UTC()}
}

func (e ExpenseEvent) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("invalid expense id %d", e.ID)
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return nil
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
}

func (e ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ParseExpenseEvent decodes and validates an event body.
func ParseExpenseEvent(data []byte) (ExpenseEvent, error) {
	var e ExpenseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ExpenseEvent{}, fmt.Errorf("decode expense event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return ExpenseEvent{}, err
	}
	return e, nil
}
