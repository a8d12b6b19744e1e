// Package presence tracks which users are actively polling each session.
//
// Every poll iteration touches a (user, session) record in the store. A user
// counts as online while their last touch is within the window; ListOnline
// applies that filter at read time. A background reaper additionally flips
// is_online off for records idle past the window so the table stays tidy
// when nothing reads it.
package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/becmi/internal/metrics"
	"github.com/alfredjeanlab/becmi/internal/model"
)

// DefaultWindow is how recently a user must have polled to count as online.
const DefaultWindow = 30 * time.Second

// Store is the persistence the tracker needs.
type Store interface {
	TouchPresence(ctx context.Context, userID, sessionID, lastEventID int64) error
	ListOnline(ctx context.Context, sessionID int64, since time.Time) ([]*model.OnlineUser, error)
	MarkIdleOffline(ctx context.Context, before time.Time) (int64, error)
}

// ReaperConfig configures the background idle-record reaper.
type ReaperConfig struct {
	// SweepInterval is how often the reaper runs.
	// Default: 60 seconds.
	SweepInterval time.Duration

	// OnSwept is called after each sweep that marked records offline.
	OnSwept func(n int64)
}

// Tracker records and reports session presence.
type Tracker struct {
	store  Store
	window time.Duration
	logger *slog.Logger
	now    func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New creates a tracker. A non-positive window selects DefaultWindow.
func New(s Store, window time.Duration, logger *slog.Logger) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: s, window: window, logger: logger, now: time.Now}
}

// Window returns the online recency window.
func (t *Tracker) Window() time.Duration {
	return t.window
}

// Touch upserts the caller's presence for a session. lastEventID never
// moves the stored watermark backwards.
func (t *Tracker) Touch(ctx context.Context, userID, sessionID, lastEventID int64) error {
	if err := t.store.TouchPresence(ctx, userID, sessionID, lastEventID); err != nil {
		return err
	}
	metrics.PresenceTouches.Inc()
	return nil
}

// ListOnline returns users whose last activity in the session falls within
// the window, most recent first.
func (t *Tracker) ListOnline(ctx context.Context, sessionID int64) ([]*model.OnlineUser, error) {
	users, err := t.store.ListOnline(ctx, sessionID, t.now().Add(-t.window))
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*model.OnlineUser{}
	}
	return users, nil
}

// StartReaper launches a background goroutine that periodically marks idle
// records offline. Call Stop() to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	t.logger.Info("presence: reaper started",
		"window", t.window,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := t.store.MarkIdleOffline(ctx, t.now().Add(-t.window))
	if err != nil {
		t.logger.Warn("presence: reaper sweep failed", "error", err)
		return
	}
	if n == 0 {
		return
	}
	metrics.PresenceReaped.Add(float64(n))
	t.logger.Debug("presence: reaper marked users offline", "count", n, "window", t.window)
	if cfg.OnSwept != nil {
		cfg.OnSwept(n)
	}
}
