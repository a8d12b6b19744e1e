package server

import (
	"context"
	"net/http"
	"time"

	"github.com/alfredjeanlab/becmi/internal/metrics"
)

// NewHTTPHandler returns an http.Handler with all routes registered behind
// the recovery, logging and auth middleware.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/realtime/poll", only(http.MethodGet, s.handlePoll))
	mux.Handle("/realtime/online", only(http.MethodGet, s.handleOnline))
	mux.Handle("/audio/soundboard/play", only(http.MethodPost, s.handleSoundboardPlay))
	mux.Handle("/session/maps/drawings/add", only(http.MethodPost, s.handleAddDrawing))
	mux.Handle("/session/maps/drawings/clear", only(http.MethodPost, s.handleClearDrawings))
	mux.Handle("/auth/login", only(http.MethodPost, s.handleLogin))
	mux.Handle("/auth/logout", only(http.MethodPost, s.handleLogout))
	mux.Handle("/health", only(http.MethodGet, s.handleHealth))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, errNotFound("Endpoint not found"))
	})

	var h http.Handler = mux
	h = AuthMiddleware(s.auth, h)
	h = LoggingMiddleware(s.logger, h)
	h = RecoveryMiddleware(s.logger, h)
	return h
}

// only rejects other methods with the JSON 405 envelope. The mux's own
// method patterns would answer in plain text.
func only(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeAPIError(w, errMethodNotAllowed())
			return
		}
		h(w, r)
	})
}

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			Logger(r.Context()).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
