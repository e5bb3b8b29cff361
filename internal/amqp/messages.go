package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger events queue.
const (
	EventRecorded = "recorded"
	EventDeleted  = "deleted"
)

// LedgerEventMessage describes one ledger mutation. The export worker
// consumes these to maintain an off-site backup trail.
type LedgerEventMessage struct {
	Kind        string    `json:"kind"`
	RecordID    int64     `json:"record_id"`
	UserID      string    `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRecordedEvent builds the event published after a successful insert.
func NewRecordedEvent(recordID int64, userID string, amountCents int64, reason string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:        EventRecorded,
		RecordID:    recordID,
		UserID:      userID,
		AmountCents: amountCents,
		Reason:      reason,
		Timestamp:   time.Now(),
	}
}

// NewDeletedEvent builds the event published after a successful delete.
func NewDeletedEvent(recordID int64, userID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      EventDeleted,
		RecordID:  recordID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
