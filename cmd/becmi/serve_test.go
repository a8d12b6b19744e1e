package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"testing"
	"time"
)

func TestNewLogger_Level(t *testing.T) {
	for _, tc := range []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	} {
		l := newLogger(os.Stderr, "text", tc.level)
		if !l.Enabled(context.Background(), tc.want) {
			t.Errorf("%s: level %s not enabled", tc.level, tc.want)
		}
		if tc.want > slog.LevelDebug && l.Enabled(context.Background(), tc.want-4) {
			t.Errorf("%s: level below %s should be disabled", tc.level, tc.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	l := newLogger(os.Stderr, "json", "info")
	if _, ok := l.Handler().(*slog.JSONHandler); !ok {
		t.Errorf("handler = %T, want *slog.JSONHandler", l.Handler())
	}
}

func TestHTTPServer_ShutdownReleasesParkedRequests(t *testing.T) {
	parked := make(chan struct{})
	released := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(parked)
		select {
		case <-r.Context().Done():
			close(released)
		case <-time.After(5 * time.Second):
		}
	})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := newHTTPServer(lis.Addr().String(), h, 30*time.Second)
	go func() { _ = srv.Serve(lis) }()

	go func() {
		resp, err := http.Get("http://" + lis.Addr().String() + "/realtime/poll")
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-parked:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-released:
	default:
		t.Fatal("parked request context was not cancelled")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Shutdown took %v", elapsed)
	}
}
