package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/becmi/internal/archive"
	"github.com/alfredjeanlab/becmi/internal/auth"
	"github.com/alfredjeanlab/becmi/internal/config"
	"github.com/alfredjeanlab/becmi/internal/events"
	"github.com/alfredjeanlab/becmi/internal/presence"
	"github.com/alfredjeanlab/becmi/internal/realtime"
	"github.com/alfredjeanlab/becmi/internal/server"
	"github.com/alfredjeanlab/becmi/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the realtime HTTP server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't build an API client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		archiveFrom, _ := cmd.Flags().GetInt64("archive-from")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("error closing store", "err", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := realtime.NewHub()

		// Cross-instance wakeups. Without NATS, only appends made by this
		// process wake its pollers; the tick still catches everything else.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub

			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				pub.Close()
				return err
			}
			defer sub.Close()
			if err := hub.Bridge(ctx, sub, logger); err != nil {
				pub.Close()
				return fmt.Errorf("subscribing to event bus: %w", err)
			}
			logger.Info("event bus enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("event bus disabled (BECMI_NATS_URL not set)")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()

		tracker := presence.New(store, cfg.OnlineWindow, logger)
		if cfg.PresenceSweep > 0 {
			tracker.StartReaper(&presence.ReaperConfig{
				SweepInterval: cfg.PresenceSweep,
				OnSwept: func(n int64) {
					logger.Debug("presence records marked offline", "count", n)
				},
			})
			defer tracker.Stop()
		}

		poller := realtime.NewPoller(store, tracker, hub, realtime.Config{
			DefaultTimeout: cfg.PollDefaultTimeout,
			MaxTimeout:     cfg.PollMaxTimeout,
			Tick:           cfg.PollTick,
			BatchSize:      cfg.PollBatch,
		}, logger)

		if cfg.ArchiveEnabled() {
			dest, err := archive.NewS3Destination(ctx,
				cfg.ArchiveS3Bucket,
				cfg.ArchiveS3Prefix,
				cfg.ArchiveS3Region,
				cfg.ArchiveS3Endpoint,
			)
			if err != nil {
				logger.Error("failed to create S3 archive destination", "err", err)
			} else {
				scheduler := archive.NewScheduler(store, dest, cfg.ArchiveInterval, archiveFrom, logger)
				scheduler.Start()
				defer scheduler.Stop()
				logger.Info("event archive enabled",
					"bucket", cfg.ArchiveS3Bucket,
					"prefix", cfg.ArchiveS3Prefix,
					"interval", cfg.ArchiveInterval,
					"from", archiveFrom)
			}
		}

		srv := server.New(server.Options{
			Store:       store,
			Auth:        auth.NewService(store, auth.NewHasher(0), cfg.SessionTTL),
			Poller:      poller,
			Presence:    tracker,
			Broadcaster: realtime.NewBroadcaster(store, hub, publisher, logger),
			Logger:      logger,
		})

		httpServer := newHTTPServer(cfg.HTTPAddr, srv.NewHTTPHandler(), cfg.PollMaxTimeout)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			logger.Info("received signal, shutting down")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("HTTP server: %w", err)
			}
		}

		// Shutdown cancels request contexts, so parked polls return at once.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	},
}

// newHTTPServer builds the HTTP server. Request contexts are cancelled as
// soon as Shutdown starts, so parked long polls return instead of holding
// their connections open.
func newHTTPServer(addr string, h http.Handler, maxPoll time.Duration) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		BaseContext:       func(net.Listener) context.Context { return base },
		ReadHeaderTimeout: 10 * time.Second,
		// A long poll may hold the response for up to the max timeout.
		WriteTimeout: maxPoll + 15*time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

func init() {
	serveCmd.Flags().Int64("archive-from", 0, "archive events with ids greater than this")
}

// newLogger builds the process logger from the configured format and level.
// Unknown levels fall back to info.
func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
