package amqp

import (
	"encoding/json"
	"time"
)

// ReconcileMessage asks the worker to re-derive one account's balance.
// It carries only identifiers; the worker reads current state from the store.
type ReconcileMessage struct {
	OwnerID   string    `json:"owner_id"`
	AccountID string    `json:"account_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReconcileMessage(ownerID, accountID string) *ReconcileMessage {
	return &ReconcileMessage{
		OwnerID:   ownerID,
		AccountID: accountID,
		Timestamp: time.Now(),
	}
}

func (m *ReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReconcileMessageFromJSON(data []byte) (*ReconcileMessage, error) {
	var msg ReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
