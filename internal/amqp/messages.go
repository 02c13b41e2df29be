package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ExpenseEventMessage is a lightweight notification that an expense changed.
// It carries only identifiers; the consumer fetches the full record from the
// store when it needs one, so stale payloads never reach the export journal.
type ExpenseEventMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEventMessage(eventType, id, ownerID string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Type:      eventType,
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
