// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis opens the client behind the live comment feed and the volatile
challenge store.

Every live WebSocket tail holds one pub/sub connection of its own, outside the
command pool sized here.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// ClientOptions sizes the command pool and names the connection.
type ClientOptions struct {
	PoolSize   int
	ClientName string
}

/*
ParseOptions turns a redis:// or rediss:// URL into client options.

Request deadlines bound each command, and a fifth of the pool (at least one
connection) is kept idle.
*/
func ParseOptions(redisURL string, opts ClientOptions) (*redis.Options, error) {
	if opts.PoolSize < 1 {
		return nil, fmt.Errorf("redis: pool size %d must be positive", opts.PoolSize)
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = opts.PoolSize
	options.MinIdleConns = max(opts.PoolSize/5, 1)
	options.MaxIdleConns = max(opts.PoolSize/2, options.MinIdleConns)
	options.ClientName = opts.ClientName
	options.ContextTimeoutEnabled = true

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	return options, nil
}

// NewClient connects a client configured by [ParseOptions] and pings it once.
func NewClient(context stdctx.Context, redisURL string, opts ClientOptions, logger *slog.Logger) (*redis.Client, error) {
	options, err := ParseOptions(redisURL, opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping checks the client within a short deadline; /ready calls it per probe.
func Ping(context stdctx.Context, client redis.UniversalClient) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
