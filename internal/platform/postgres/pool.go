// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pgx pool shared by the account, auth and
// comment repositories.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
)

// PoolOptions sizes the pool and sets per-session server parameters.
type PoolOptions struct {
	MaxConns int32
	MinConns int32

	// StatementTimeout is sent as statement_timeout on every new connection.
	StatementTimeout time.Duration

	// ApplicationName labels connections in pg_stat_activity unless the DSN
	// already names one.
	ApplicationName string
}

/*
ParseConfig turns a DSN and pool options into a pgxpool configuration.

Parameters:
  - dsn: libpq keyword string or postgres:// URL
  - opts: PoolOptions

Returns:
  - *pgxpool.Config: Ready for [pgxpool.NewWithConfig]
  - error: Unparseable DSN or inconsistent pool bounds
*/
func ParseConfig(dsn string, opts PoolOptions) (*pgxpool.Config, error) {
	if opts.MaxConns < 1 || opts.MinConns < 0 || opts.MinConns > opts.MaxConns {
		return nil, fmt.Errorf("postgres: pool bounds min=%d max=%d are inconsistent", opts.MinConns, opts.MaxConns)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MinConns = opts.MinConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	params := poolConfig.ConnConfig.RuntimeParams
	if opts.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}
	if _, named := params["application_name"]; !named && opts.ApplicationName != "" {
		params["application_name"] = opts.ApplicationName
	}

	return poolConfig, nil
}

// NewPool connects a pool configured by [ParseConfig] and pings it once.
func NewPool(ctx context.Context, dsn string, opts PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := ParseConfig(dsn, opts)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)

	return pool, nil
}

// Ping checks the pool within a short deadline; /ready calls it per probe.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}
