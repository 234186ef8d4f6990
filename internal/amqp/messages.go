package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried by ledger change messages.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventDeleted  = "deleted"
	EventImported = "imported"
	EventCleared  = "cleared"
)

// LedgerEventMessage is a lightweight change notification. It carries only
// the affected transaction IDs and the ledger revision at publish time; the
// worker reads the current ledger state itself.
type LedgerEventMessage struct {
	Event     string    `json:"event"`
	IDs       []string  `json:"ids,omitempty"`
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(event string, revision int64, ids ...string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:     event,
		IDs:       ids,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
