// Package client provides a transport-agnostic interface for the becmi
// realtime service and an HTTP/JSON implementation of it.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/becmi/internal/model"
)

// RealtimeClient is the interface the CLI commands use to talk to the
// server. It is implemented by HTTPClient.
type RealtimeClient interface {
	// Auth
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context) error

	// Realtime
	Poll(ctx context.Context, req *PollRequest) (*PollResponse, error)
	Online(ctx context.Context, sessionID int64) (*OnlineResponse, error)

	// Broadcasts
	SoundboardPlay(ctx context.Context, req *SoundboardPlayRequest) (int64, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// LoginResult is the data returned by a successful login.
type LoginResult struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PollRequest holds the long-poll parameters. A zero Timeout lets the
// server pick its default.
type PollRequest struct {
	SessionID   int64
	LastEventID int64
	Timeout     time.Duration
}

// PollResponse is one long-poll batch.
type PollResponse struct {
	SessionID   int64               `json:"session_id"`
	Events      []*model.Event      `json:"events"`
	EventCount  int                 `json:"event_count"`
	LastEventID int64               `json:"last_event_id"`
	OnlineUsers []*model.OnlineUser `json:"online_users"`
	OnlineCount int                 `json:"online_count"`
	Timestamp   int64               `json:"timestamp"`
}

// OnlineResponse lists the users currently polling a session.
type OnlineResponse struct {
	SessionID   int64               `json:"session_id"`
	OnlineUsers []*model.OnlineUser `json:"online_users"`
	OnlineCount int                 `json:"online_count"`
}

// SoundboardPlayRequest triggers a sound effect for everyone in a session.
type SoundboardPlayRequest struct {
	SessionID int64    `json:"session_id"`
	TrackID   int64    `json:"track_id"`
	Volume    *float64 `json:"volume,omitempty"`
}
