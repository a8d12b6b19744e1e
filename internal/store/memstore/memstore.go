// Package memstore is an in-memory store.Store for tests and local demos.
// It mirrors the Postgres semantics that callers depend on: ids only
// increase, presence upserts keep the highest watermark, and missing rows
// yield store.ErrNotFound.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/store"
)

type presenceKey struct{ user, session int64 }

type playerKey struct{ session, user int64 }

// Store is a thread-safe in-memory store.Store.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextEventID   int64
	nextDrawingID int64

	events   []*model.Event
	presence map[presenceKey]*model.Presence
	users    map[int64]*model.User
	auth     map[string]*model.AuthSession
	sessions map[int64]*model.GameSession
	players  map[playerKey]*model.SessionPlayer
	maps     map[int64]*model.SessionMap
	drawings map[int64]*model.Drawing
	tracks   map[int64]*model.AudioTrack

	// FailReads, when set, is returned by EventsSince and EventsAfter.
	FailReads error
	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		presence: make(map[presenceKey]*model.Presence),
		users:    make(map[int64]*model.User),
		auth:     make(map[string]*model.AuthSession),
		sessions: make(map[int64]*model.GameSession),
		players:  make(map[playerKey]*model.SessionPlayer),
		maps:     make(map[int64]*model.SessionMap),
		drawings: make(map[int64]*model.Drawing),
		tracks:   make(map[int64]*model.AudioTrack),
		Now:      time.Now,
	}
}

// Seeding helpers.

func (m *Store) AddUser(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
}

func (m *Store) AddGameSession(s *model.GameSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
}

func (m *Store) AddPlayer(p *model.SessionPlayer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[playerKey{p.SessionID, p.UserID}] = p
}

func (m *Store) AddSessionMap(sm *model.SessionMap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maps[sm.MapID] = sm
}

func (m *Store) AddAudioTrack(t *model.AudioTrack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[t.TrackID] = t
}

// Drawings returns the drawings currently stored for mapID.
func (m *Store) Drawings(mapID int64) []*model.Drawing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Drawing
	for _, d := range m.drawings {
		if d.MapID == mapID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawingID < out[j].DrawingID })
	return out
}

// Presence returns the raw presence record, if any.
func (m *Store) Presence(userID, sessionID int64) (model.Presence, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presence[presenceKey{userID, sessionID}]
	if !ok {
		return model.Presence{}, false
	}
	return *p, true
}

// SetLastActivity backdates or advances a presence record.
func (m *Store) SetLastActivity(userID, sessionID int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.presence[presenceKey{userID, sessionID}]; ok {
		p.LastActivity = at
	}
}

// Event log

func (m *Store) AppendEvent(ctx context.Context, e *model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[e.SessionID]; !ok {
		return fmt.Errorf("insert event: session %d: %w", e.SessionID, store.ErrNotFound)
	}
	m.nextEventID++
	e.EventID = m.nextEventID
	e.CreatedAt = m.Now()
	if len(e.Data) == 0 {
		e.Data = []byte(`{}`)
	}
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *Store) EventsSince(ctx context.Context, sessionID, afterEventID int64, limit int) ([]*model.Event, error) {
	return m.readEvents(ctx, limit, func(e *model.Event) bool {
		return e.SessionID == sessionID && e.EventID > afterEventID
	})
}

func (m *Store) EventsAfter(ctx context.Context, afterEventID int64, limit int) ([]*model.Event, error) {
	return m.readEvents(ctx, limit, func(e *model.Event) bool {
		return e.EventID > afterEventID
	})
}

func (m *Store) readEvents(ctx context.Context, limit int, match func(*model.Event) bool) ([]*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	var out []*model.Event
	for _, e := range m.events {
		if !match(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Presence

func (m *Store) TouchPresence(ctx context.Context, userID, sessionID, lastEventID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := presenceKey{userID, sessionID}
	p, ok := m.presence[k]
	if !ok {
		p = &model.Presence{UserID: userID, SessionID: sessionID}
		m.presence[k] = p
	}
	p.LastActivity = m.Now()
	p.Online = true
	p.LastEventID = max(p.LastEventID, lastEventID)
	return nil
}

func (m *Store) ListOnline(ctx context.Context, sessionID int64, since time.Time) ([]*model.OnlineUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.OnlineUser{}
	for _, p := range m.presence {
		if p.SessionID != sessionID || !p.Online || p.LastActivity.Before(since) {
			continue
		}
		var name string
		if u, ok := m.users[p.UserID]; ok {
			name = u.Username
		}
		out = append(out, &model.OnlineUser{UserID: p.UserID, Username: name, LastActivity: p.LastActivity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (m *Store) MarkIdleOffline(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.presence {
		if p.Online && p.LastActivity.Before(before) {
			p.Online = false
			n++
		}
	}
	return n, nil
}

// Sessions and membership

func (m *Store) GetGameSession(_ context.Context, sessionID int64) (*model.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("game session: %w", store.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *Store) GetSessionPlayer(_ context.Context, sessionID, userID int64) (*model.SessionPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerKey{sessionID, userID}]
	if !ok {
		return nil, fmt.Errorf("session player: %w", store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// Users and auth sessions

func (m *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user: %w", store.ErrNotFound)
}

func (m *Store) GetUser(_ context.Context, userID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user: %w", store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *Store) CreateAuthSession(_ context.Context, as *model.AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	as.CreatedAt = m.Now()
	cp := *as
	m.auth[as.Token] = &cp
	return nil
}

func (m *Store) GetAuthSession(_ context.Context, token string) (*model.AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, ok := m.auth[token]
	if !ok {
		return nil, fmt.Errorf("auth session: %w", store.ErrNotFound)
	}
	cp := *as
	return &cp, nil
}

func (m *Store) DeleteAuthSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.auth, token)
	return nil
}

// Maps and audio

func (m *Store) GetSessionMap(_ context.Context, mapID int64) (*model.SessionMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sm, ok := m.maps[mapID]
	if !ok {
		return nil, fmt.Errorf("session map: %w", store.ErrNotFound)
	}
	cp := *sm
	return &cp, nil
}

func (m *Store) AddDrawing(_ context.Context, d *model.Drawing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDrawingID++
	d.DrawingID = m.nextDrawingID
	d.CreatedAt = m.Now()
	cp := *d
	m.drawings[d.DrawingID] = &cp
	return nil
}

func (m *Store) ClearDrawings(_ context.Context, mapID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, d := range m.drawings {
		if d.MapID == mapID {
			delete(m.drawings, id)
			n++
		}
	}
	return n, nil
}

func (m *Store) GetAudioTrack(_ context.Context, sessionID, trackID int64) (*model.AudioTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[trackID]
	if !ok || t.SessionID != sessionID {
		return nil, fmt.Errorf("audio track: %w", store.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// RunInTransaction serializes transactions and restores the mutable tables
// when fn fails. Like a sequence, consumed ids are not handed out again.
func (m *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapEvents := append([]*model.Event(nil), m.events...)
	snapDrawings := maps.Clone(m.drawings)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.events = snapEvents
		m.drawings = snapDrawings
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Store) Close() error { return nil }
