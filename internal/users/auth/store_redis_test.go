// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/users/auth"
)

func newRedisChallenges(t *testing.T) (*auth.RedisChallengeRepository, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewRedisChallengeRepository(client, 20*time.Minute), server
}

/*
TestRedisChallengeRepository_RoundTrip stores and reads both challenge kinds.
*/
func TestRedisChallengeRepository_RoundTrip(t *testing.T) {
	repository, _ := newRedisChallenges(t)
	ctx := context.Background()
	createdAt := time.Date(2026, 5, 1, 9, 0, 0, 123000000, time.UTC)

	require.NoError(t, repository.Upsert(ctx, &auth.Challenge{
		Email: "alice@example.com", PendingUsername: ptr("Alice"), CodeHash: "hash-1", CreatedAt: createdAt,
	}))

	challenge, err := repository.Find(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, challenge.IsRegistration())
	assert.Equal(t, "Alice", *challenge.PendingUsername)
	assert.Equal(t, "hash-1", challenge.CodeHash)
	assert.True(t, createdAt.Equal(challenge.CreatedAt))

	// A login request replaces the registration entirely
	require.NoError(t, repository.Upsert(ctx, &auth.Challenge{
		Email: "alice@example.com", CodeHash: "hash-2", CreatedAt: createdAt,
	}))

	challenge, err = repository.Find(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, challenge.IsRegistration())
	assert.Equal(t, "hash-2", challenge.CodeHash)
}

/*
TestRedisChallengeRepository_DeleteIfMatch deletes only on a matching hash.
*/
func TestRedisChallengeRepository_DeleteIfMatch(t *testing.T) {
	repository, _ := newRedisChallenges(t)
	ctx := context.Background()

	require.NoError(t, repository.Upsert(ctx, &auth.Challenge{
		Email: "alice@example.com", CodeHash: "hash-1", CreatedAt: time.Now(),
	}))

	deleted, err := repository.DeleteIfMatch(ctx, "alice@example.com", "other")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repository.DeleteIfMatch(ctx, "alice@example.com", "hash-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repository.DeleteIfMatch(ctx, "alice@example.com", "hash-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repository.Find(ctx, "alice@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestRedisChallengeRepository_Retention lets Redis expire abandoned challenges.
*/
func TestRedisChallengeRepository_Retention(t *testing.T) {
	repository, server := newRedisChallenges(t)
	ctx := context.Background()

	require.NoError(t, repository.Upsert(ctx, &auth.Challenge{
		Email: "alice@example.com", CodeHash: "hash-1", CreatedAt: time.Now(),
	}))

	server.FastForward(21 * time.Minute)

	_, err := repository.Find(ctx, "alice@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	removed, err := repository.DeleteOlderThan(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

/*
TestRedisChallengeRepository_Outage surfaces connection failures as StoreUnavailable.
*/
func TestRedisChallengeRepository_Outage(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	defer client.Close()
	repository := auth.NewRedisChallengeRepository(client, time.Minute)
	server.Close()

	_, err = repository.Find(context.Background(), "alice@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeStoreUnavailable))
}
