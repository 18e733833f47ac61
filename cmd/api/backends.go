// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/murmur/internal/api"
	"github.com/taibuivan/murmur/internal/core/comment"
	"github.com/taibuivan/murmur/internal/platform/config"
	"github.com/taibuivan/murmur/internal/platform/constants"
	"github.com/taibuivan/murmur/internal/platform/mailer"
	"github.com/taibuivan/murmur/internal/platform/migration"
	mongostore "github.com/taibuivan/murmur/internal/platform/mongo"
	pgstore "github.com/taibuivan/murmur/internal/platform/postgres"
	redisstore "github.com/taibuivan/murmur/internal/platform/redis"
	"github.com/taibuivan/murmur/internal/users/account"
	"github.com/taibuivan/murmur/internal/users/auth"
)

// backends holds the driver-selected adapters behind every domain contract.
type backends struct {
	users      account.Repository
	challenges auth.ChallengeRepository
	comments   comment.Repository
	feed       comment.Feed
	mailer     mailer.Mailer

	checks  []api.DependencyCheck
	closers []func()
}

// close releases connections in reverse order of opening.
func (b *backends) close() {
	for index := len(b.closers) - 1; index >= 0; index-- {
		b.closers[index]()
	}
}

// openBackends connects the store, the feed and the mailer chosen by cfg.
func openBackends(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{}

	if err := b.openStore(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}

	if err := b.openRedis(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}

	switch cfg.MailerDriver {
	case config.MailerHTTP:
		b.mailer = mailer.NewHTTPRelay(cfg.MailerURL, constants.MailTimeout)
	default:
		b.mailer = mailer.NewLogMailer(log)
	}

	return b, nil
}

func (b *backends) openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolOptions{
			MaxConns:         int32(cfg.PostgresMaxConns),
			MinConns:         int32(cfg.PostgresMinConns),
			StatementTimeout: constants.GlobalRequestTimeout,
			ApplicationName:  constants.AppName,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		b.closers = append(b.closers, func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		})
		b.checks = append(b.checks, api.DependencyCheck{
			Name: "postgres",
			Ping: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		})

		b.users = account.NewPostgresRepository(pool)
		b.challenges = auth.NewPostgresChallengeRepository(pool)
		b.comments = comment.NewPostgresRepository(pool)

	case config.StoreMongo:
		client, database, err := mongostore.Connect(ctx, cfg.Mongo, log)
		if err != nil {
			return fmt.Errorf("connect to mongo: %w", err)
		}
		b.closers = append(b.closers, func() {
			log.Info("closing_mongo_client")
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error("mongo_disconnect_failed", slog.Any("error", err))
			}
		})
		b.checks = append(b.checks, api.DependencyCheck{
			Name: "mongo",
			Ping: func(ctx context.Context) error { return mongostore.Ping(ctx, client) },
		})

		users := account.NewMongoRepository(database)
		challenges := auth.NewMongoChallengeRepository(database)
		comments := comment.NewMongoRepository(database, comment.MongoOptions{})

		for _, indexed := range []interface{ EnsureIndexes(context.Context) error }{users, challenges, comments} {
			if err := indexed.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("ensure mongo indexes: %w", err)
			}
		}

		b.users, b.challenges, b.comments = users, challenges, comments

	default:
		log.Warn("memory_store_selected", slog.String("note", "data is lost on restart"))
		b.users = account.NewMemoryRepository()
		b.challenges = auth.NewMemoryChallengeRepository()
		b.comments = comment.NewMemoryRepository()
	}

	return nil
}

func (b *backends) openRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if !cfg.UsesRedis() {
		b.feed = comment.NewMemoryFeed()
		return nil
	}

	client, err := redisstore.NewClient(ctx, cfg.RedisURL, redisstore.ClientOptions{
		PoolSize:   cfg.RedisPoolSize,
		ClientName: constants.AppName,
	}, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	b.closers = append(b.closers, func() {
		log.Info("closing_redis_client")
		if err := client.Close(); err != nil {
			log.Error("redis_close_failed", slog.Any("error", err))
		}
	})
	b.checks = append(b.checks, api.DependencyCheck{
		Name: "redis",
		Ping: func(ctx context.Context) error { return redisstore.Ping(ctx, client) },
	})

	var universal redis.UniversalClient = client

	b.feed = comment.NewMemoryFeed()
	if cfg.FeedDriver == config.FeedRedis {
		b.feed = comment.NewRedisFeed(universal)
	}

	// Redis keeps a challenge past its TTL so an expired code reads as EXPIRED, not NOT_FOUND
	if cfg.ChallengeStore == config.ChallengesRedis {
		b.challenges = auth.NewRedisChallengeRepository(universal, 2*cfg.CodeTTL())
	}

	return nil
}
