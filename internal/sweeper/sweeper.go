// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sweeper runs the recurring purge of expired sessions and codes.

A run has two independent phases. A failing phase is logged and reported,
and the other phase still runs. Cancellation is honoured between phases.
*/
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the sweep period when none is configured.
const DefaultInterval = 24 * time.Hour

// SessionPruner removes sessions idle for longer than the token TTL.
type SessionPruner interface {
	PruneExpired(context context.Context) (int64, error)
}

// ChallengePurger removes verification challenges older than the code TTL.
type ChallengePurger interface {
	PurgeExpired(context context.Context) (int64, error)
}

// Options configures a [Sweeper].
type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Report is the outcome of one sweep.
type Report struct {
	Sessions   int64
	Challenges int64
	Err        error
}

// Sweeper owns the background expiry loop.
type Sweeper struct {
	sessions   SessionPruner
	challenges ChallengePurger
	interval   time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
}

// New constructs a [Sweeper]. Zero options fall back to a real clock and a one day interval.
func New(sessions SessionPruner, challenges ChallengePurger, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Sweeper{
		sessions:   sessions,
		challenges: challenges,
		interval:   opts.Interval,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
}

/*
Run sweeps once immediately and then every interval until ctx is cancelled.

It blocks; start it in its own goroutine.
*/
func (sweeper *Sweeper) Run(ctx context.Context) {
	sweeper.logger.InfoContext(ctx, "sweeper_started", slog.Duration("interval", sweeper.interval))

	ticker := sweeper.clock.NewTicker(sweeper.interval)
	defer ticker.Stop()

	sweeper.RunOnce(ctx)

	for {
		select {
		case <-ticker.Chan():
			sweeper.RunOnce(ctx)
		case <-ctx.Done():
			sweeper.logger.InfoContext(context.WithoutCancel(ctx), "sweeper_stopped")
			return
		}
	}
}

// RunOnce performs a single sweep and returns what it removed.
func (sweeper *Sweeper) RunOnce(ctx context.Context) Report {
	var report Report
	var failures []error
	started := sweeper.clock.Now()

	// 1. Sessions
	if err := ctx.Err(); err != nil {
		report.Err = err
		return report
	}
	removed, err := sweeper.sessions.PruneExpired(ctx)
	if err != nil {
		sweeper.logger.ErrorContext(ctx, "sweep_sessions_failed", slog.Any("error", err))
		failures = append(failures, fmt.Errorf("sweeper_sessions_failed: %w", err))
	}
	report.Sessions = removed

	// 2. Challenges
	if err := ctx.Err(); err != nil {
		report.Err = errors.Join(append(failures, err)...)
		return report
	}
	purged, err := sweeper.challenges.PurgeExpired(ctx)
	if err != nil {
		sweeper.logger.ErrorContext(ctx, "sweep_challenges_failed", slog.Any("error", err))
		failures = append(failures, fmt.Errorf("sweeper_challenges_failed: %w", err))
	}
	report.Challenges = purged

	report.Err = errors.Join(failures...)

	sweeper.logger.InfoContext(ctx, "sweep_finished",
		slog.Int64("sessions_removed", report.Sessions),
		slog.Int64("challenges_removed", report.Challenges),
		slog.Duration("duration", sweeper.clock.Since(started)),
		slog.Bool("ok", report.Err == nil),
	)

	return report
}
