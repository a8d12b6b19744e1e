package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/becmi/internal/events"
)

// Hub fans out per-session wake signals to parked pollers. A wake carries no
// data; the poller re-reads the store when it fires.
type Hub struct {
	mu       sync.Mutex
	sessions map[int64]map[chan struct{}]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[int64]map[chan struct{}]struct{})}
}

// Subscribe registers a waiter for sessionID. The returned channel has a
// buffer of one, so a wake sent between a store read and the waiter's select
// is not lost. Call cancel when done.
func (h *Hub) Subscribe(sessionID int64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	waiters, ok := h.sessions[sessionID]
	if !ok {
		waiters = make(map[chan struct{}]struct{})
		h.sessions[sessionID] = waiters
	}
	waiters[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.sessions[sessionID], ch)
			if len(h.sessions[sessionID]) == 0 {
				delete(h.sessions, sessionID)
			}
		})
	}
	return ch, cancel
}

// Notify wakes every waiter of sessionID without blocking.
func (h *Hub) Notify(sessionID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.sessions[sessionID] {
		select {
		case ch <- struct{}{}:
		default:
			// Already has a pending wake.
		}
	}
}

// Waiting returns the number of waiters parked on sessionID.
func (h *Hub) Waiting(sessionID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

// Bridge relays event announcements from the bus into the hub so pollers on
// this instance wake for appends made by other instances. It returns once the
// subscription is established; relaying stops when ctx is cancelled.
func (h *Hub) Bridge(ctx context.Context, sub events.Subscriber, logger *slog.Logger) error {
	ch, cancel, err := sub.Subscribe(events.TopicAllSessions)
	if err != nil {
		return err
	}
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				ea, err := events.DecodeEventAppended(data)
				if err != nil {
					logger.Warn("realtime: dropping bus message", "error", err)
					continue
				}
				h.Notify(ea.SessionID)
			}
		}
	}()
	return nil
}
