// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/constants"
)

// Hash fields of a stored challenge.
const (
	fieldCode      = "code"
	fieldUsername  = "username"
	fieldCreatedAt = "created_at"
)

// compareAndDelete drops the challenge only while it still holds the expected code hash.
var compareAndDelete = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisChallengeRepository implements [ChallengeRepository] using one Redis hash per email.
//
// Keys carry a native expiry of retention, so [RedisChallengeRepository.DeleteOlderThan]
// has nothing left to remove.
type RedisChallengeRepository struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRedisChallengeRepository creates a new Redis-backed challenge store.
//
// retention should exceed the code TTL so an expired code is still reported
// as expired rather than missing for a while.
func NewRedisChallengeRepository(client redis.UniversalClient, retention time.Duration) *RedisChallengeRepository {
	return &RedisChallengeRepository{client: client, retention: retention}
}

func challengeKey(email string) string {
	return constants.RedisPrefixVerification + email
}

/*
Upsert replaces the hash for the challenge's email and resets its expiry.

Parameters:
  - context: context.Context
  - challenge: *Challenge

Returns:
  - error: Execution errors
*/
func (repository *RedisChallengeRepository) Upsert(context context.Context, challenge *Challenge) error {
	key := challengeKey(challenge.Email)

	fields := map[string]any{
		fieldCode:      challenge.CodeHash,
		fieldCreatedAt: challenge.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if challenge.PendingUsername != nil {
		fields[fieldUsername] = *challenge.PendingUsername
	}

	// Replace atomically so a stale username never survives a login request
	_, err := repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Del(context, key)
		pipe.HSet(context, key, fields)
		pipe.Expire(context, key, repository.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_challenge_upsert_failed: %w", apperr.StoreUnavailable(err))
	}

	return nil
}

/*
Find reads the challenge hash for an email.

Returns:
  - *Challenge: The pending challenge
  - error: apperr.NotFound if absent or expired
*/
func (repository *RedisChallengeRepository) Find(context context.Context, email string) (*Challenge, error) {
	values, err := repository.client.HGetAll(context, challengeKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_challenge_get_failed: %w", apperr.StoreUnavailable(err))
	}
	if len(values) == 0 {
		return nil, apperr.NotFound("Verification challenge")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("redis_challenge_decode_failed: %w", apperr.Internal(err))
	}

	challenge := &Challenge{
		Email:     email,
		CodeHash:  values[fieldCode],
		CreatedAt: createdAt,
	}
	if username, ok := values[fieldUsername]; ok {
		challenge.PendingUsername = &username
	}

	return challenge, nil
}

// DeleteIfMatch runs the compare-and-delete script.
func (repository *RedisChallengeRepository) DeleteIfMatch(context context.Context, email, codeHash string) (bool, error) {
	deleted, err := compareAndDelete.Run(context, repository.client,
		[]string{challengeKey(email)}, fieldCode, codeHash,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis_challenge_delete_failed: %w", apperr.StoreUnavailable(err))
	}

	return deleted == 1, nil
}

// DeleteOlderThan is a no-op: Redis expires challenge keys on its own.
func (repository *RedisChallengeRepository) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}
