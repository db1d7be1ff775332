package amqp

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Action names the history write a HistoryEvent announces.
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionRemoved     Action = "removed"
	ActionBulkCreated Action = "bulk_created"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionRemoved, ActionBulkCreated:
		return true
	}
	return false
}

// HistoryEvent carries only identifiers; consumers read the rows back from
// the store before acting on them.
type HistoryEvent struct {
	Action    Action    `json:"action"`
	IDs       []int64   `json:"ids"`
	ServiceID int64     `json:"service_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHistoryEvent(action Action, serviceID int64, ids ...int64) *HistoryEvent {
	return &HistoryEvent{
		Action:    action,
		IDs:       ids,
		ServiceID: serviceID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *HistoryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func HistoryEventFromJSON(data []byte) (*HistoryEvent, error) {
	var msg HistoryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if len(msg.IDs) == 0 {
		return nil, fmt.Errorf("event %q carries no ids", msg.Action)
	}
	return &msg, nil
}
