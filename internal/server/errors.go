package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfredjeanlab/becmi/internal/auth"
	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/realtime"
	"github.com/alfredjeanlab/becmi/internal/store"
)

// apiError is the error half of every response envelope.
type apiError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *apiError) Error() string { return e.Message }

func errValidation(fields map[string]string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: "Validation failed", Fields: fields}
}

func errBadRequest(msg string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: msg}
}

func errUnauthenticated() *apiError {
	return &apiError{Status: http.StatusUnauthorized, Message: "Authentication required"}
}

func errForbidden(msg string) *apiError {
	return &apiError{Status: http.StatusForbidden, Message: msg}
}

func errNotFound(msg string) *apiError {
	return &apiError{Status: http.StatusNotFound, Message: msg}
}

func errMethodNotAllowed() *apiError {
	return &apiError{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"}
}

func errInternal(msg string) *apiError {
	return &apiError{Status: http.StatusInternalServerError, Message: msg}
}

// envelope is the JSON shape of an error response.
type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess writes {"status":"success","message":...,"data":...}.
func writeSuccess(w http.ResponseWriter, message string, data any) {
	body := map[string]any{"status": "success"}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, http.StatusOK, body)
}

// writeAPIError writes the error envelope for e.
func writeAPIError(w http.ResponseWriter, e *apiError) {
	if e.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="becmi"`)
	}
	writeJSON(w, e.Status, envelope{Status: "error", Message: e.Message, Errors: e.Fields})
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// writeError maps err onto the envelope. Anything unrecognised becomes a 500
// carrying fallback; the detail is logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var ae *apiError
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ae):
		writeAPIError(w, ae)
	case errors.As(err, &ve):
		writeAPIError(w, errValidation(ve.Fields()))
	case errors.Is(err, auth.ErrUnauthenticated):
		writeAPIError(w, errUnauthenticated())
	case errors.Is(err, realtime.ErrForbidden):
		writeAPIError(w, errForbidden("You do not have access to this session"))
	case errors.Is(err, store.ErrNotFound):
		writeAPIError(w, errNotFound("Not found"))
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nobody is reading the response.
		Logger(r.Context()).Debug("request cancelled", "error", err)
	default:
		Logger(r.Context()).Error("request failed", "error", err)
		writeAPIError(w, errInternal(fallback))
	}
}
