// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mongo provides a managed MongoDB client for the document store adapters.

The document layout mirrors one record per user, one per pending verification,
and one per comment location, so every mutation is a single-document atomic
update.
*/
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/taibuivan/murmur/internal/platform/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 2 * time.Second
	maxPoolSize    = 50
)

// URI assembles a mongodb:// connection string from discrete settings.
// Credentials are escaped so passwords may contain reserved characters.
func URI(cfg config.MongoConfig) string {
	host := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	uri := url.URL{Scheme: "mongodb", Host: host, Path: "/"}
	if cfg.Username != "" {
		uri.User = url.UserPassword(cfg.Username, cfg.Password)
	}

	return uri.String()
}

// Connect opens a client, pings the primary and returns the target database.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	clientOptions := options.Client().
		ApplyURI(URI(cfg)).
		SetMaxPoolSize(maxPoolSize).
		SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: failed to create client: %w", err)
	}

	if err := Ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	logger.Info("mongo_client_connected",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
	)

	return client, client.Database(cfg.Database), nil
}

// Ping verifies that the primary is reachable.
func Ping(ctx context.Context, client *mongo.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping failed: %w", err)
	}

	return nil
}
