package store

import (
	"context"
	"errors"
	"time"

	"github.com/alfredjeanlab/becmi/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for the realtime backend.
type Store interface {
	// Event log
	AppendEvent(ctx context.Context, event *model.Event) error
	EventsSince(ctx context.Context, sessionID, afterEventID int64, limit int) ([]*model.Event, error)
	EventsAfter(ctx context.Context, afterEventID int64, limit int) ([]*model.Event, error)

	// Presence
	TouchPresence(ctx context.Context, userID, sessionID, lastEventID int64) error
	ListOnline(ctx context.Context, sessionID int64, since time.Time) ([]*model.OnlineUser, error)
	MarkIdleOffline(ctx context.Context, before time.Time) (int64, error)

	// Sessions and membership
	GetGameSession(ctx context.Context, sessionID int64) (*model.GameSession, error)
	GetSessionPlayer(ctx context.Context, sessionID, userID int64) (*model.SessionPlayer, error)

	// Users and auth sessions
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	CreateAuthSession(ctx context.Context, s *model.AuthSession) error
	GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error)
	DeleteAuthSession(ctx context.Context, token string) error

	// Maps and audio
	GetSessionMap(ctx context.Context, mapID int64) (*model.SessionMap, error)
	AddDrawing(ctx context.Context, d *model.Drawing) error
	ClearDrawings(ctx context.Context, mapID int64) (int64, error)
	GetAudioTrack(ctx context.Context, sessionID, trackID int64) (*model.AudioTrack, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
