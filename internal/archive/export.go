package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/becmi/internal/model"
)

// header is the first JSONL record of every archive object.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    int64     `json:"session_id"`
	EventCount   int       `json:"event_count"`
	FirstEventID int64     `json:"first_event_id"`
	LastEventID  int64     `json:"last_event_id"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string       `json:"type"`
	Data *model.Event `json:"data"`
}

// ExportJSONL writes a header followed by one "event" record per event.
// evts must all belong to sessionID and be in id order.
func ExportJSONL(w io.Writer, sessionID int64, evts []*model.Event, now time.Time) error {
	h := header{
		Version:    "1",
		Type:       "header",
		Timestamp:  now.UTC(),
		SessionID:  sessionID,
		EventCount: len(evts),
	}
	if len(evts) > 0 {
		h.FirstEventID = evts[0].EventID
		h.LastEventID = evts[len(evts)-1].EventID
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, e := range evts {
		if e.SessionID != sessionID {
			return fmt.Errorf("event %d belongs to session %d, not %d", e.EventID, e.SessionID, sessionID)
		}
		if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
			return fmt.Errorf("encode event %d: %w", e.EventID, err)
		}
	}
	return nil
}

// ObjectKey names the archive object for a run of one session's events.
// Ids are zero-padded so keys sort in event order.
func ObjectKey(sessionID, firstEventID, lastEventID int64) string {
	return fmt.Sprintf("session-%d/%012d-%012d.jsonl", sessionID, firstEventID, lastEventID)
}
