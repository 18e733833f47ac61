// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: TTLs and limits are handed to components as explicit values.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Backend Drivers

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	FeedRedis  = "redis"
	FeedMemory = "memory"

	ChallengesStore = "store"
	ChallengesRedis = "redis"

	MailerHTTP = "http"
	MailerLog  = "log"
)

// # Configuration Schema

// Config holds all runtime configuration for the Murmur API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreDriver selects the persistence backend (postgres, mongo, memory).
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Document Database (MongoDB)
	Mongo MongoConfig `envPrefix:"MONGODB_"`

	// FeedDriver selects the live comment feed backend (redis, memory).
	FeedDriver string `env:"FEED_DRIVER" envDefault:"redis"`

	// ChallengeStore keeps pending codes in the main store or in Redis (store, redis).
	ChallengeStore string `env:"CHALLENGE_STORE" envDefault:"store"`

	// Pub/Sub (Redis)
	RedisURL string `env:"REDIS_URL"`

	// SessionSecret signs access tokens (HS256).
	SessionSecret string `env:"SESSION_SECRET,required"`

	// Verification and session lifetimes
	CodeTTLMinutes       int `env:"CODE_TTL_MINUTES"        envDefault:"10"`
	TokenTTLDays         int `env:"TOKEN_TTL_DAYS"          envDefault:"30"`
	SweepIntervalSeconds int `env:"SWEEP_INTERVAL_SECONDS"  envDefault:"86400"`

	// CommentBodyMaxLength caps stored comment bodies (in characters).
	CommentBodyMaxLength int `env:"COMMENT_BODY_MAX_LENGTH" envDefault:"5000"`

	// Outbound mail
	MailerDriver string `env:"MAILER_DRIVER" envDefault:"log"`
	MailerURL    string `env:"MAILER_URL"`
	MailSubject  string `env:"MAIL_SUBJECT"  envDefault:"Comment Section - Verify your email"`

	// Cross-Origin Resource Sharing (production only; development allows all)
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Connection pools
	PostgresMaxConns int `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	PostgresMinConns int `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RedisPoolSize    int `env:"REDIS_POOL_SIZE"    envDefault:"10"`

	// Per-IP token bucket
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// MongoConfig holds the discrete MongoDB connection parts.
type MongoConfig struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"27017"`
	Database string `env:"DATABASE" envDefault:"murmur"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFrom parses an explicit environment map instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks cross-field constraints that struct tags cannot express.
func (c *Config) validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the %q store", c.StoreDriver)
		}
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.FeedDriver {
	case FeedRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required for the %q feed", c.FeedDriver)
		}
	case FeedMemory:
	default:
		return fmt.Errorf("config: unknown FEED_DRIVER %q", c.FeedDriver)
	}

	switch c.ChallengeStore {
	case ChallengesRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required for the %q challenge store", c.ChallengeStore)
		}
	case ChallengesStore:
	default:
		return fmt.Errorf("config: unknown CHALLENGE_STORE %q", c.ChallengeStore)
	}

	switch c.MailerDriver {
	case MailerHTTP:
		if c.MailerURL == "" {
			return fmt.Errorf("config: MAILER_URL is required for the %q mailer", c.MailerDriver)
		}
	case MailerLog:
	default:
		return fmt.Errorf("config: unknown MAILER_DRIVER %q", c.MailerDriver)
	}

	if c.CodeTTLMinutes < 1 || c.TokenTTLDays < 1 || c.SweepIntervalSeconds < 1 {
		return fmt.Errorf("config: TTLs and sweep interval must be positive")
	}

	if c.CommentBodyMaxLength < 1 {
		return fmt.Errorf("config: COMMENT_BODY_MAX_LENGTH must be positive")
	}

	if c.PostgresMaxConns < 1 || c.PostgresMinConns < 0 || c.PostgresMinConns > c.PostgresMaxConns {
		return fmt.Errorf("config: POSTGRES_MIN_CONNS must be between 0 and POSTGRES_MAX_CONNS")
	}

	if c.RedisPoolSize < 1 {
		return fmt.Errorf("config: REDIS_POOL_SIZE must be positive")
	}

	return nil
}

// # Derived Values

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.FeedDriver == FeedRedis || c.ChallengeStore == ChallengesRedis
}

// CodeTTL is the lifetime of a pending verification code.
func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLMinutes) * time.Minute
}

// TokenTTL is the idle lifetime of an access token.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLDays) * 24 * time.Hour
}

// SweepInterval is the period of the expiry sweeper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsOriginAllowed reports whether origin is listed in ALLOWED_ORIGINS.
func (c *Config) IsOriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

// OriginHosts returns the host part of each ALLOWED_ORIGINS entry, the form
// the WebSocket origin check matches against.
func (c *Config) OriginHosts() []string {
	hosts := make([]string, 0, len(c.AllowedOrigins))
	for _, allowed := range c.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if parsed, err := url.Parse(allowed); err == nil && parsed.Host != "" {
			allowed = parsed.Host
		}
		if allowed != "" {
			hosts = append(hosts, allowed)
		}
	}
	return hosts
}
