// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/murmur/internal/platform/apperr"
)

// MemoryRepository implements [Repository] in process memory.
//
// It backs the "memory" store driver and the package tests. A single mutex
// gives every method the same per-user atomicity the real stores provide.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[string]*User
}

// NewMemoryRepository creates an empty in-memory identity store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*User)}
}

// FindByEmail implements [Repository].
func (repository *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[email]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return user.clone(), nil
}

// Create implements [Repository].
func (repository *MemoryRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, exists := repository.users[user.Email]; exists {
		return apperr.Conflict("User already exists")
	}
	repository.users[user.Email] = user.clone()
	return nil
}

// Rename implements [Repository].
func (repository *MemoryRepository) Rename(_ context.Context, email, displayName, initials string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[email]
	if !ok {
		return apperr.NotFound("User")
	}
	user.DisplayName = displayName
	user.Initials = initials
	return nil
}

// AppendSession implements [Repository].
func (repository *MemoryRepository) AppendSession(_ context.Context, email string, session Session) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[email]
	if !ok {
		return apperr.NotFound("User")
	}
	user.Sessions = append(user.Sessions, session)
	return nil
}

// FindSession implements [Repository].
func (repository *MemoryRepository) FindSession(_ context.Context, email, tokenHash string) (*Session, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[email]
	if !ok {
		return nil, apperr.NotFound("Session")
	}
	for _, session := range user.Sessions {
		if session.TokenHash == tokenHash {
			found := session
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

// TouchSession implements [Repository].
func (repository *MemoryRepository) TouchSession(_ context.Context, email, tokenHash string, now, notBefore time.Time) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[email]
	if !ok {
		return false, nil
	}
	for index := range user.Sessions {
		session := &user.Sessions[index]
		if session.TokenHash == tokenHash && !session.LastUsed.Before(notBefore) {
			session.LastUsed = now
			return true, nil
		}
	}
	return false, nil
}

// RemoveSession implements [Repository].
func (repository *MemoryRepository) RemoveSession(_ context.Context, email, tokenHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[email]
	if !ok {
		return nil
	}
	kept := user.Sessions[:0]
	for _, session := range user.Sessions {
		if session.TokenHash != tokenHash {
			kept = append(kept, session)
		}
	}
	user.Sessions = kept
	return nil
}

// PruneSessions implements [Repository].
func (repository *MemoryRepository) PruneSessions(_ context.Context, email string, threshold time.Time) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var removed int64
	for key, user := range repository.users {
		if email != "" && key != email {
			continue
		}
		kept := user.Sessions[:0]
		for _, session := range user.Sessions {
			if session.LastUsed.Before(threshold) {
				removed++
				continue
			}
			kept = append(kept, session)
		}
		user.Sessions = kept
	}
	return removed, nil
}
