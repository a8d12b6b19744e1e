package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alfredjeanlab/becmi/internal/auth"
	"github.com/alfredjeanlab/becmi/internal/idgen"
)

// SessionCookie carries the auth token for browser clients.
const SessionCookie = "becmi_session"

// RequestContext is the per-request state set up by the middleware chain.
type RequestContext struct {
	RequestID string
	UserID    int64 // zero until AuthMiddleware succeeds
	Token     string
	Logger    *slog.Logger
}

type ctxKey struct{}

// WithRequestContext returns a copy of ctx carrying rc.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the request context, or nil outside a request.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// UserID returns the authenticated user's id, or 0.
func UserID(ctx context.Context) int64 {
	if rc := FromContext(ctx); rc != nil {
		return rc.UserID
	}
	return 0
}

// Logger returns the request-scoped logger, falling back to slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if rc := FromContext(ctx); rc != nil && rc.Logger != nil {
		return rc.Logger
	}
	return slog.Default()
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware assigns a request id, installs the RequestContext and
// logs the method, path, status and duration of every request.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			if id, err := idgen.RequestID(); err == nil {
				reqID = id
			}
		}
		w.Header().Set("X-Request-ID", reqID)

		rc := &RequestContext{
			RequestID: reqID,
			Logger:    logger.With("request_id", reqID, "method", r.Method, "path", r.URL.Path),
		}
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(WithRequestContext(r.Context(), rc)))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		attrs := []any{"status", rec.status, "duration", time.Since(start)}
		if rc.UserID != 0 {
			attrs = append(attrs, "user_id", rc.UserID)
		}
		if rec.status >= http.StatusInternalServerError {
			rc.Logger.Error("http request", attrs...)
		} else {
			rc.Logger.Info("http request", attrs...)
		}
	})
}

// RecoveryMiddleware catches panics in downstream handlers, logs the stack
// trace, and answers with a 500 envelope instead of dropping the connection.
func RecoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("panic recovered in HTTP handler",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprintf("%v", v),
					"stack", string(debug.Stack()),
				)
				writeAPIError(w, errInternal("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// publicPaths skip authentication.
var publicPaths = map[string]bool{
	"/health":     true,
	"/metrics":    true,
	"/auth/login": true,
}

// AuthMiddleware resolves the session token from the becmi_session cookie
// or an Authorization: Bearer header and stores the user id in the request
// context. Missing, unknown or expired tokens get a 401.
func AuthMiddleware(svc *auth.Service, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token, bad := tokenFromRequest(r)
		if bad != nil {
			writeAPIError(w, bad)
			return
		}

		as, err := svc.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err, "Authentication failed")
			return
		}

		ctx := r.Context()
		rc := FromContext(ctx)
		if rc == nil {
			rc = &RequestContext{Logger: slog.Default()}
			ctx = WithRequestContext(ctx, rc)
		}
		rc.UserID = as.UserID
		rc.Token = token
		rc.Logger = rc.Logger.With("user_id", as.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tokenFromRequest prefers the Authorization header over the cookie.
func tokenFromRequest(r *http.Request) (string, *apiError) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			return "", &apiError{Status: http.StatusUnauthorized, Message: "Invalid authorization scheme"}
		}
		return token, nil
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errUnauthenticated()
}
