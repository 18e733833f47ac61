// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Murmur HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the selected store (PostgreSQL with migrations, MongoDB with indexes, or memory).
//  4. Open Redis when the feed or the challenge store needs it.
//  5. Wire the domain services and HTTP handlers.
//  6. Start the expiry sweeper.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/murmur/internal/api"
	"github.com/taibuivan/murmur/internal/core/comment"
	"github.com/taibuivan/murmur/internal/platform/config"
	"github.com/taibuivan/murmur/internal/platform/constants"
	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/internal/sweeper"
	"github.com/taibuivan/murmur/internal/users/account"
	"github.com/taibuivan/murmur/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String(constants.FieldVersion, constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String(constants.FieldApp, constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver),
		slog.String("feed", cfg.FeedDriver),
		slog.String("challenges", cfg.ChallengeStore),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3-4. Store, Redis and Mailer ──────────────────────────────────────
	b, err := openBackends(startupCtx, cfg, log)
	must(log, err, "open backends")
	defer b.close()

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	codec, err := sec.NewTokenCodec(cfg.SessionSecret, constants.AuthIssuer)
	must(log, err, "initialize token codec")

	clock := clockwork.NewRealClock()

	sessions := auth.NewSessionManager(b.users, codec, clock, cfg.TokenTTL())
	broker := auth.NewBroker(auth.BrokerDependencies{
		Users:      b.users,
		Challenges: b.challenges,
		Sessions:   sessions,
		Mailer:     b.mailer,
		Clock:      clock,
		Policy: auth.Policy{
			CodeTTL:     cfg.CodeTTL(),
			TokenTTL:    cfg.TokenTTL(),
			MailSubject: cfg.MailSubject,
		},
		Logger: log,
	})

	ledger := comment.NewLedger(comment.LedgerDependencies{
		Repository: b.comments,
		Feed:       b.feed,
		Clock:      clock,
		Policy:     comment.Policy{BodyMaxLength: cfg.CommentBodyMaxLength},
		Logger:     log,
	})

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{Checks: b.checks}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(broker, sessions),
		Account:   account.NewHandler(account.NewService(b.users, log)),
		Comment: comment.NewHandler(ledger, comment.LiveOptions{
			OriginPatterns: cfg.OriginHosts(),
			AnyOrigin:      cfg.IsDevelopment(),
		}),
	}

	// Background work stops when the root context is cancelled.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// ── 6. Expiry Sweeper ─────────────────────────────────────────────────
	sweep := sweeper.New(sessions, broker, sweeper.Options{
		Interval: cfg.SweepInterval(),
		Clock:    clock,
		Logger:   log,
	})
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweep.Run(rootCtx)
	}()

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, sessions, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)

	rootCancel()
	<-sweepDone

	if shutdownErr != nil {
		log.Error("shutdown_error", slog.Any("error", shutdownErr))
		b.close()
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
