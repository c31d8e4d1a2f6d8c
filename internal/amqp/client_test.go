package amqp

import (
	"testing"
	"time"
)

func TestNewReconcileMessage(t *testing.T) {
	msg := NewReconcileMessage("owner-1", "acct-1")

	if msg.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %v, want owner-1", msg.OwnerID)
	}
	if msg.AccountID != "acct-1" {
		t.Errorf("AccountID = %v, want acct-1", msg.AccountID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestReconcileMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &ReconcileMessage{
		OwnerID:   "owner-1",
		AccountID: "acct-1",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ReconcileMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ReconcileMessageFromJSON() error = %v", err)
	}

	if parsed.OwnerID != msg.OwnerID || parsed.AccountID != msg.AccountID {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestReconcileMessage_InvalidJSON(t *testing.T) {
	if _, err := ReconcileMessageFromJSON([]byte(`{"owner_id": 7}`)); err == nil {
		t.Error("ReconcileMessageFromJSON() should fail with invalid JSON")
	}
}
