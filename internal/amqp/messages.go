package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names what happened to a ledger entry.
type EventType string

const (
	EventApplied  EventType = "applied"
	EventReversed EventType = "reversed"
)

// LedgerEvent is a lightweight notification that a transaction changed the
// ledger. Consumers fetch the full transaction from the store.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transaction_id"`
	AccountIDs    []string  `json:"account_ids"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(typ EventType, transactionID string, accountIDs ...string) *LedgerEvent {
	return &LedgerEvent{
		Type:          typ,
		TransactionID: transactionID,
		AccountIDs:    accountIDs,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventApplied, EventReversed:
	default:
		return nil, fmt.Errorf("unknown ledger event type %q", e.Type)
	}
	if e.TransactionID == "" {
		return nil, fmt.Errorf("ledger event without transaction id")
	}
	return &e, nil
}
