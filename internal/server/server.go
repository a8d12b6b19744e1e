// Package server exposes the realtime backend over HTTP: the long-poll
// endpoint, presence lookups, the event-producing media endpoints and login.
package server

import (
	"log/slog"

	"github.com/alfredjeanlab/becmi/internal/auth"
	"github.com/alfredjeanlab/becmi/internal/presence"
	"github.com/alfredjeanlab/becmi/internal/realtime"
	"github.com/alfredjeanlab/becmi/internal/store"
)

// Options holds the collaborators a Server needs. Logger may be nil.
type Options struct {
	Store       store.Store
	Auth        *auth.Service
	Poller      *realtime.Poller
	Presence    *presence.Tracker
	Broadcaster *realtime.Broadcaster
	Logger      *slog.Logger
}

// Server implements the HTTP API.
type Server struct {
	store       store.Store
	auth        *auth.Service
	poller      *realtime.Poller
	presence    *presence.Tracker
	broadcaster *realtime.Broadcaster
	logger      *slog.Logger
}

// New returns a Server wired to opts.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       opts.Store,
		auth:        opts.Auth,
		poller:      opts.Poller,
		presence:    opts.Presence,
		broadcaster: opts.Broadcaster,
		logger:      logger,
	}
}
