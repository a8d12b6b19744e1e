// Package archive periodically copies session events to object storage as
// JSONL, one object per session per page.
//
// Event ids are only committed in order within a session, so a lower id from
// one session can become visible after a higher id from another. Each run
// therefore rescans from a settled floor and tracks a watermark per session.
// The floor only moves past events older than the settle horizon; below it,
// no late commit is expected. A session's watermark only advances once its
// object is written, so a failed upload is retried on the next run.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/becmi/internal/metrics"
	"github.com/alfredjeanlab/becmi/internal/model"
)

const (
	// DefaultPageSize is how many events one page reads.
	DefaultPageSize = 500

	// DefaultSettle bounds how long an append transaction may stay open
	// after its event id was assigned.
	DefaultSettle = 2 * time.Minute
)

// Destination is the interface for an archive target.
type Destination interface {
	// Write stores data under key, replacing any existing object.
	Write(ctx context.Context, key string, data []byte) error
}

// EventReader reads the global event log in id order.
type EventReader interface {
	EventsAfter(ctx context.Context, afterEventID int64, limit int) ([]*model.Event, error)
}

// Scheduler runs periodic archive exports.
type Scheduler struct {
	store    EventReader
	dest     Destination
	interval time.Duration
	pageSize int
	settle   time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	floor    int64
	sessions map[int64]int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to dest at
// the given interval, starting after event id `from`.
func NewScheduler(s EventReader, dest Destination, interval time.Duration, from int64, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     s,
		dest:      dest,
		interval:  interval,
		pageSize: DefaultPageSize,
		settle:   DefaultSettle,
		logger:   logger,
		now:      time.Now,
		floor:    from,
		sessions: make(map[int64]int64),
	}
}

// Watermark returns the settled floor: every event with an id at or below
// it has been archived.
func (s *Scheduler) Watermark() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.floor
}

// sessionMark returns the id of the last archived event of a session.
func (s *Scheduler) sessionMark(sessionID int64) int64 {
	if m, ok := s.sessions[sessionID]; ok && m > s.floor {
		return m
	}
	return s.floor
}

// Start begins periodic export. It runs once immediately, then on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current run (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	n, err := s.ArchiveOnce(ctx)
	if err != nil {
		s.logger.Error("archive run failed", "err", err, "watermark", s.Watermark())
		return
	}
	if n > 0 {
		s.logger.Info("archive completed", "events", n, "watermark", s.Watermark())
	}
}

// ArchiveOnce exports every event not yet archived and returns how many
// were written.
func (s *Scheduler) ArchiveOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.settle)
	cursor, floor := s.floor, s.floor
	settled := true
	total := 0
	for {
		evts, err := s.store.EventsAfter(ctx, cursor, s.pageSize)
		if err != nil {
			return total, fmt.Errorf("read events after %d: %w", cursor, err)
		}
		if len(evts) == 0 {
			break
		}

		for _, g := range groupBySession(evts) {
			mark := s.sessionMark(g.sessionID)
			var pending []*model.Event
			for _, e := range g.events {
				if e.EventID > mark {
					pending = append(pending, e)
				}
			}
			if len(pending) == 0 {
				continue
			}

			var buf bytes.Buffer
			if err := ExportJSONL(&buf, g.sessionID, pending, s.now()); err != nil {
				return total, err
			}
			key := ObjectKey(g.sessionID, pending[0].EventID, pending[len(pending)-1].EventID)
			if err := s.dest.Write(ctx, key, buf.Bytes()); err != nil {
				return total, fmt.Errorf("write %s: %w", key, err)
			}
			s.sessions[g.sessionID] = pending[len(pending)-1].EventID
			total += len(pending)
			metrics.ArchivedEvents.Add(float64(len(pending)))
		}

		for _, e := range evts {
			if !settled || !e.CreatedAt.Before(cutoff) {
				settled = false
				break
			}
			floor = e.EventID
		}
		cursor = model.LastEventID(evts, cursor)

		if len(evts) < s.pageSize {
			break
		}
	}

	s.floor = floor
	for id, m := range s.sessions {
		if m <= floor {
			delete(s.sessions, id)
		}
	}
	return total, nil
}

type sessionGroup struct {
	sessionID int64
	events    []*model.Event
}

// groupBySession splits a page by session, keeping id order within each
// group and ordering groups by session id.
func groupBySession(evts []*model.Event) []sessionGroup {
	idx := make(map[int64]int)
	var groups []sessionGroup
	for _, e := range evts {
		i, ok := idx[e.SessionID]
		if !ok {
			i = len(groups)
			idx[e.SessionID] = i
			groups = append(groups, sessionGroup{sessionID: e.SessionID})
		}
		groups[i].events = append(groups[i].events, e)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].sessionID < groups[j].sessionID })
	return groups
}
