// Package events carries wake-up notifications between server instances.
// The event log itself lives in the store; messages on the bus only tell
// parked pollers that a session has something new to read.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/alfredjeanlab/becmi/internal/model"
)

// Subject layout: becmi.session.<session_id>.event
const (
	subjectPrefix = "becmi.session."
	subjectSuffix = ".event"

	// TopicAllSessions matches the appended-event subject of every session.
	TopicAllSessions = subjectPrefix + "*" + subjectSuffix
)

// SessionTopic returns the subject that announces appends to sessionID.
func SessionTopic(sessionID int64) string {
	return subjectPrefix + strconv.FormatInt(sessionID, 10) + subjectSuffix
}

// EventAppended announces that an event was committed to a session's log.
type EventAppended struct {
	SessionID int64  `json:"session_id"`
	EventID   int64  `json:"event_id"`
	EventType string `json:"event_type"`
}

// NewEventAppended builds the announcement for a stored event.
func NewEventAppended(e *model.Event) EventAppended {
	return EventAppended{SessionID: e.SessionID, EventID: e.EventID, EventType: e.Type}
}

// DecodeEventAppended parses a bus message. A payload without a session id
// is rejected.
func DecodeEventAppended(data []byte) (EventAppended, error) {
	var ea EventAppended
	if err := json.Unmarshal(data, &ea); err != nil {
		return ea, fmt.Errorf("decoding event announcement: %w", err)
	}
	if ea.SessionID <= 0 {
		return ea, fmt.Errorf("event announcement without session_id")
	}
	return ea, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
