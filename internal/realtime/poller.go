// Package realtime implements long-poll delivery of session events.
//
// A Poller answers one poll request: it re-reads the session's event log
// after the caller's watermark until something arrives or the timeout
// passes, touching the caller's presence every round. Between reads it
// parks on a tick, a Hub wake for the session, or request cancellation.
// Appends go through a Broadcaster, which wakes parked pollers early.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/becmi/internal/metrics"
	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/presence"
	"github.com/alfredjeanlab/becmi/internal/store"
)

// Config tunes the poll loop.
type Config struct {
	DefaultTimeout time.Duration // used when the request gives none
	MaxTimeout     time.Duration // hard ceiling on any request
	Tick           time.Duration // re-read interval while idle
	BatchSize      int           // max events per response
}

// DefaultConfig returns the production poll settings.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 25 * time.Second,
		MaxTimeout:     30 * time.Second,
		Tick:           time.Second,
		BatchSize:      50,
	}
}

// PollRequest is one caller's poll.
type PollRequest struct {
	UserID      int64
	SessionID   int64
	LastEventID int64
	Timeout     time.Duration // zero or negative selects the default
}

// PollResult is the outcome of a poll.
type PollResult struct {
	SessionID   int64
	Events      []*model.Event
	LastEventID int64
	OnlineUsers []*model.OnlineUser
	Timestamp   time.Time
}

// Poller runs long-poll requests against the store.
type Poller struct {
	store    store.Store
	presence *presence.Tracker
	hub      *Hub
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewPoller creates a poller. Zero fields in cfg take DefaultConfig values.
func NewPoller(s store.Store, tracker *presence.Tracker, hub *Hub, cfg Config, logger *slog.Logger) *Poller {
	def := DefaultConfig()
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = def.MaxTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.DefaultTimeout > cfg.MaxTimeout {
		cfg.DefaultTimeout = cfg.MaxTimeout
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:    s,
		presence: tracker,
		hub:      hub,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Config returns the effective poll settings.
func (p *Poller) Config() Config {
	return p.cfg
}

// ClampTimeout maps a requested timeout onto (0, MaxTimeout].
func (p *Poller) ClampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return p.cfg.DefaultTimeout
	}
	if d > p.cfg.MaxTimeout {
		return p.cfg.MaxTimeout
	}
	return d
}

// Poll waits for events after req.LastEventID. It returns as soon as a read
// finds at least one event, or with an empty batch once the clamped timeout
// elapses. Errors: store.ErrNotFound (wrapped) for a missing session,
// ErrForbidden for a caller without access, ctx.Err() on cancellation, and
// any other error for a failed store read.
func (p *Poller) Poll(ctx context.Context, req PollRequest) (*PollResult, error) {
	if _, err := Authorize(ctx, p.store, req.UserID, req.SessionID); err != nil {
		return nil, err
	}

	timeout := p.ClampTimeout(req.Timeout)
	start := p.now()

	outcome := metrics.OutcomeError
	done := metrics.PollStarted()
	defer func() { done(outcome) }()

	// Subscribe before the first read so an append racing it still wakes us.
	wake, unsubscribe := p.hub.Subscribe(req.SessionID)
	defer unsubscribe()

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var (
		evts    []*model.Event
		expired bool
	)
	for {
		var err error
		evts, err = p.store.EventsSince(ctx, req.SessionID, req.LastEventID, p.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				outcome = metrics.OutcomeCancelled
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("reading events for session %d: %w", req.SessionID, err)
		}

		p.touch(ctx, req, model.LastEventID(evts, req.LastEventID))

		if len(evts) > 0 || expired {
			break
		}

		select {
		case <-ctx.Done():
			outcome = metrics.OutcomeCancelled
			return nil, ctx.Err()
		case <-deadline.C:
			// One last read so an append landing right at the deadline is seen.
			expired = true
		case <-ticker.C:
		case <-wake:
		}
	}

	online, err := p.presence.ListOnline(ctx, req.SessionID)
	if err != nil {
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCancelled
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("listing online users for session %d: %w", req.SessionID, err)
	}

	if len(evts) == 0 {
		evts = []*model.Event{}
		outcome = metrics.OutcomeTimeout
	} else {
		outcome = metrics.OutcomeEvents
	}
	res := &PollResult{
		SessionID:   req.SessionID,
		Events:      evts,
		LastEventID: model.LastEventID(evts, req.LastEventID),
		OnlineUsers: online,
		Timestamp:   p.now(),
	}

	p.logger.Debug("realtime: poll complete",
		"session_id", req.SessionID,
		"user_id", req.UserID,
		"events", len(evts),
		"last_event_id", res.LastEventID,
		"waited", p.now().Sub(start))
	return res, nil
}

// touch refreshes the caller's presence. Presence is best effort, so a
// failed upsert is logged and the poll carries on.
func (p *Poller) touch(ctx context.Context, req PollRequest, watermark int64) {
	if err := p.presence.Touch(ctx, req.UserID, req.SessionID, watermark); err != nil && ctx.Err() == nil {
		p.logger.Warn("realtime: presence touch failed",
			"session_id", req.SessionID,
			"user_id", req.UserID,
			"error", err)
	}
}
