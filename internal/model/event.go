package model

import (
	"encoding/json"
	"time"
)

// Event is a persisted session event. Events are append-only; EventID is
// assigned by the store and strictly increases in insertion order.
type Event struct {
	EventID   int64           `json:"event_id"`
	SessionID int64           `json:"session_id"`
	Type      string          `json:"event_type"`
	Data      json.RawMessage `json:"event_data"`
	CreatedBy int64           `json:"created_by_user_id,omitempty"` // 0 when system-generated
	CreatedAt time.Time       `json:"created_at"`
}

// Payload decodes the event data into its typed variant.
func (e *Event) Payload() Payload {
	return DecodePayload(e.Type, e.Data)
}

// LastEventID returns the id of the last event in evts, or fallback when
// evts is empty.
func LastEventID(evts []*Event, fallback int64) int64 {
	if len(evts) == 0 {
		return fallback
	}
	return evts[len(evts)-1].EventID
}
