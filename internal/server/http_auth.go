package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/alfredjeanlab/becmi/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin handles POST /auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	as, u, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		Logger(r.Context()).Info("login rejected", "username", req.Username)
		writeAPIError(w, &apiError{Status: http.StatusUnauthorized, Message: "Invalid username or password"})
		return
	}
	if err != nil {
		writeError(w, r, err, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    as.Token,
		Path:     "/",
		Expires:  as.ExpiresAt,
		MaxAge:   int(s.auth.TTL() / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, "Login successful", loginResponse{
		UserID:    u.UserID,
		Username:  u.Username,
		Token:     as.Token,
		ExpiresAt: as.ExpiresAt,
	})
}

// handleLogout handles POST /auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	if rc == nil || rc.Token == "" {
		writeAPIError(w, errUnauthenticated())
		return
	}
	if err := s.auth.Logout(r.Context(), rc.Token); err != nil {
		writeError(w, r, err, "Logout failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, "Logged out", nil)
}
