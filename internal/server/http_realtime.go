package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/realtime"
)

// pollQuery holds the parsed /realtime/poll parameters.
type pollQuery struct {
	SessionID   int64 `json:"session_id" validate:"gt=0"`
	LastEventID int64 `json:"last_event_id" validate:"gte=0"`
	Timeout     int64 `json:"timeout" validate:"gte=0"`
}

type pollResponse struct {
	Status      string              `json:"status"`
	SessionID   int64               `json:"session_id"`
	Events      []*model.Event      `json:"events"`
	EventCount  int                 `json:"event_count"`
	LastEventID int64               `json:"last_event_id"`
	OnlineUsers []*model.OnlineUser `json:"online_users"`
	OnlineCount int                 `json:"online_count"`
	Timestamp   int64               `json:"timestamp"`
}

type onlineResponse struct {
	Status      string              `json:"status"`
	SessionID   int64               `json:"session_id"`
	OnlineUsers []*model.OnlineUser `json:"online_users"`
	OnlineCount int                 `json:"online_count"`
}

// handlePoll handles GET /realtime/poll.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	q, apiErr := parsePollQuery(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	// Proxies and compression middleware must not hold the response back.
	h := w.Header()
	h.Set("Cache-Control", "no-cache, must-revalidate")
	h.Set("Content-Encoding", "identity")
	h.Set("X-Accel-Buffering", "no")

	res, err := s.poller.Poll(r.Context(), realtime.PollRequest{
		UserID:      UserID(r.Context()),
		SessionID:   q.SessionID,
		LastEventID: q.LastEventID,
		Timeout:     s.pollTimeout(q.Timeout),
	})
	if err != nil {
		s.writeSessionError(w, r, err, "Polling failed")
		return
	}

	writeJSON(w, http.StatusOK, pollResponse{
		Status:      "success",
		SessionID:   res.SessionID,
		Events:      res.Events,
		EventCount:  len(res.Events),
		LastEventID: res.LastEventID,
		OnlineUsers: res.OnlineUsers,
		OnlineCount: len(res.OnlineUsers),
		Timestamp:   res.Timestamp.Unix(),
	})
}

// pollTimeout converts a timeout in seconds, capping it at the ceiling
// before the conversion so huge values cannot overflow.
func (s *Server) pollTimeout(secs int64) time.Duration {
	ceiling := s.poller.Config().MaxTimeout
	if secs > int64(ceiling/time.Second) {
		return ceiling
	}
	return time.Duration(secs) * time.Second
}

// handleOnline handles GET /realtime/online. It answers immediately.
func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	sessionID, msg := queryInt(r, "session_id", true)
	if msg == "" && sessionID <= 0 {
		msg = "Valid session ID required"
	}
	if msg != "" {
		writeAPIError(w, errValidation(map[string]string{"session_id": msg}))
		return
	}

	if _, err := realtime.Authorize(r.Context(), s.store, UserID(r.Context()), sessionID); err != nil {
		s.writeSessionError(w, r, err, "Failed to list online users")
		return
	}
	online, err := s.presence.ListOnline(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err, "Failed to list online users")
		return
	}
	writeJSON(w, http.StatusOK, onlineResponse{
		Status:      "success",
		SessionID:   sessionID,
		OnlineUsers: online,
		OnlineCount: len(online),
	})
}

// writeSessionError names the session in not-found responses.
func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if isNotFound(err) {
		writeAPIError(w, errNotFound("Session not found"))
		return
	}
	writeError(w, r, err, fallback)
}

func parsePollQuery(r *http.Request) (*pollQuery, *apiError) {
	fields := make(map[string]string)
	var q pollQuery
	var msg string

	if q.SessionID, msg = queryInt(r, "session_id", true); msg != "" {
		fields["session_id"] = msg
	}
	if q.LastEventID, msg = queryInt(r, "last_event_id", false); msg != "" {
		fields["last_event_id"] = msg
	}
	if q.Timeout, msg = queryInt(r, "timeout", false); msg != "" {
		fields["timeout"] = msg
	}
	if len(fields) > 0 {
		return nil, errValidation(fields)
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		if _, ok := apiErr.Fields["session_id"]; ok {
			apiErr.Fields["session_id"] = "Valid session ID required"
		}
		return nil, apiErr
	}
	return &q, nil
}

// queryInt parses an integer query parameter. A non-empty message describes
// why the value was rejected.
func queryInt(r *http.Request, name string, required bool) (int64, string) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, "is required"
		}
		return 0, ""
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "must be an integer"
	}
	return n, ""
}
