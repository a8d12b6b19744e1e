package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/becmi/internal/events"
	"github.com/alfredjeanlab/becmi/internal/metrics"
	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/store"
)

// Broadcaster appends session events and wakes the pollers waiting on them.
type Broadcaster struct {
	store  store.Store
	hub    *Hub
	pub    events.Publisher
	logger *slog.Logger
}

// NewBroadcaster wires a broadcaster. pub may be nil when no bus is configured.
func NewBroadcaster(s store.Store, hub *Hub, pub events.Publisher, logger *slog.Logger) *Broadcaster {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{store: s, hub: hub, pub: pub, logger: logger}
}

// Broadcast appends p to the session's log as userID (0 for system events)
// and announces it. The returned event carries its assigned id.
func (b *Broadcaster) Broadcast(ctx context.Context, sessionID int64, p model.Payload, userID int64) (*model.Event, error) {
	e, err := Append(ctx, b.store, sessionID, p, userID)
	if err != nil {
		return nil, err
	}
	b.Announce(ctx, e)
	return e, nil
}

// Append writes p to the log through s, which may be a transaction. The
// caller must Announce the event after the transaction commits.
func Append(ctx context.Context, s store.Store, sessionID int64, p model.Payload, userID int64) (*model.Event, error) {
	data, err := model.EncodePayload(p)
	if err != nil {
		return nil, err
	}
	e := &model.Event{
		SessionID: sessionID,
		Type:      p.EventType(),
		Data:      data,
		CreatedBy: userID,
	}
	if err := s.AppendEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("appending %s event: %w", e.Type, err)
	}
	return e, nil
}

// Announce wakes local pollers and publishes the append on the bus. Bus
// failures are logged; local pollers still see the event on their next read.
func (b *Broadcaster) Announce(ctx context.Context, e *model.Event) {
	metrics.EventAppended(e.Type)
	b.hub.Notify(e.SessionID)
	if err := b.pub.Publish(ctx, events.SessionTopic(e.SessionID), events.NewEventAppended(e)); err != nil {
		b.logger.Warn("realtime: publish failed",
			"session_id", e.SessionID,
			"event_id", e.EventID,
			"error", err)
	}
}
