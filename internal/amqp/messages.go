package amqp

import (
	"encoding/json"
	"time"
)

// Entry event actions.
const (
	EntryCreated = "created"
	EntryUpdated = "updated"
	EntryDeleted = "deleted"
)

// EntryEventMessage is a lightweight change notification. It carries only
// the action and entry id; consumers fetch the current record from the
// store themselves.
type EntryEventMessage struct {
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryEventMessage creates an event message for the given action and id.
func NewEntryEventMessage(action string, id int64) *EntryEventMessage {
	return &EntryEventMessage{
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventMessageFromJSON creates a message from JSON bytes
func EntryEventMessageFromJSON(data []byte) (*EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
