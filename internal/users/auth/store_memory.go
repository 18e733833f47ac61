// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/murmur/internal/platform/apperr"
)

// MemoryChallengeRepository implements [ChallengeRepository] in process memory.
type MemoryChallengeRepository struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

// NewMemoryChallengeRepository creates an empty in-memory challenge store.
func NewMemoryChallengeRepository() *MemoryChallengeRepository {
	return &MemoryChallengeRepository{challenges: make(map[string]Challenge)}
}

// Upsert implements [ChallengeRepository].
func (repository *MemoryChallengeRepository) Upsert(_ context.Context, challenge *Challenge) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored := *challenge
	if challenge.PendingUsername != nil {
		username := *challenge.PendingUsername
		stored.PendingUsername = &username
	}
	repository.challenges[challenge.Email] = stored
	return nil
}

// Find implements [ChallengeRepository].
func (repository *MemoryChallengeRepository) Find(_ context.Context, email string) (*Challenge, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	challenge, ok := repository.challenges[email]
	if !ok {
		return nil, apperr.NotFound("Verification challenge")
	}
	return &challenge, nil
}

// DeleteIfMatch implements [ChallengeRepository].
func (repository *MemoryChallengeRepository) DeleteIfMatch(_ context.Context, email, codeHash string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	challenge, ok := repository.challenges[email]
	if !ok || challenge.CodeHash != codeHash {
		return false, nil
	}
	delete(repository.challenges, email)
	return true, nil
}

// DeleteOlderThan implements [ChallengeRepository].
func (repository *MemoryChallengeRepository) DeleteOlderThan(_ context.Context, threshold time.Time) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var removed int64
	for email, challenge := range repository.challenges {
		if challenge.CreatedAt.Before(threshold) {
			delete(repository.challenges, email)
			removed++
		}
	}
	return removed, nil
}
