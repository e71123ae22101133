package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// ChangeMessage wraps a store change event for the wire. Created
// transactions carry the full row so the mirror never reads the database.
type ChangeMessage struct {
	core.ChangeEvent
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(ev core.ChangeEvent) *ChangeMessage {
	return &ChangeMessage{
		ChangeEvent: ev,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects events without a user
// or collection.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == uuid.Nil || msg.Collection == "" {
		return nil, errInvalidMessage
	}
	return &msg, nil
}

// MirrorsTransaction reports whether the message describes a new
// transaction row that can be appended to the mirror.
func (m *ChangeMessage) MirrorsTransaction() bool {
	return m.Collection == core.CollectionTransactions && m.Op == core.OpCreated && m.Transaction != nil
}
