// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/internal/users/account"
)

// # Session Manager

// SessionManager mints, validates and renews bearer tokens.
//
// A token is valid while its digest sits in the owner's session set and was
// used within the token TTL. Every successful validation slides last-used
// forward. Sessions of the same user expire independently.
type SessionManager struct {
	users account.Repository
	codec *sec.TokenCodec
	clock clockwork.Clock
	ttl   time.Duration
}

// NewSessionManager constructs a new [SessionManager].
func NewSessionManager(users account.Repository, codec *sec.TokenCodec, clock clockwork.Clock, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionManager{users: users, codec: codec, clock: clock, ttl: ttl}
}

// now is truncated to the millisecond, the coarsest precision among the stores.
func (manager *SessionManager) now() time.Time {
	return manager.clock.Now().UTC().Truncate(time.Millisecond)
}

/*
Issue mints a new token for email and appends its session.

Parameters:
  - context: context.Context
  - email: string (must belong to an existing user)

Returns:
  - string: The bearer token
  - error: apperr.NotFound or storage failures
*/
func (manager *SessionManager) Issue(context context.Context, email string) (string, error) {
	nonce, err := sec.GenerateSecureToken(NonceLength)
	if err != nil {
		return "", apperr.Internal(err)
	}

	now := manager.now()
	token, err := manager.codec.Encode(email, nonce, now)
	if err != nil {
		return "", apperr.Internal(err)
	}

	session := account.Session{TokenHash: sec.HashToken(token), LastUsed: now}
	if err := manager.users.AppendSession(context, email, session); err != nil {
		return "", fmt.Errorf("session_issue_failed: %w", err)
	}

	return token, nil
}

/*
Validate resolves a token to the identity of its owner and renews it.

Returns:
  - sec.Identity: The owner's display attributes
  - error: ErrInvalidFormat, ErrInvalidToken, ErrTokenExpired or storage failures
*/
func (manager *SessionManager) Validate(context context.Context, token string) (sec.Identity, error) {
	email, err := manager.codec.Decode(token)
	if err != nil {
		return sec.Identity{}, ErrInvalidFormat
	}

	user, err := manager.users.FindByEmail(context, email)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return sec.Identity{}, ErrInvalidToken
		}
		return sec.Identity{}, err
	}

	tokenHash := sec.HashToken(token)
	session, err := manager.users.FindSession(context, email, tokenHash)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return sec.Identity{}, ErrInvalidToken
		}
		return sec.Identity{}, err
	}

	now := manager.now()
	notBefore := now.Add(-manager.ttl)
	if session.LastUsed.Before(notBefore) {
		return sec.Identity{}, ErrTokenExpired
	}

	// The guarded update fails if the session aged out or was swept since the read
	renewed, err := manager.users.TouchSession(context, email, tokenHash, now, notBefore)
	if err != nil {
		return sec.Identity{}, err
	}
	if !renewed {
		return sec.Identity{}, ErrTokenExpired
	}

	return user.Identity(), nil
}

/*
Resolve behaves like [SessionManager.Validate] but maps every token failure
to the anonymous identity. Storage failures still propagate.
*/
func (manager *SessionManager) Resolve(context context.Context, token string) (sec.Identity, error) {
	if token == "" {
		return sec.Anonymous(), nil
	}

	identity, err := manager.Validate(context, token)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeInvalidFormat) ||
			apperr.HasCode(err, apperr.CodeInvalidToken) ||
			apperr.HasCode(err, apperr.CodeExpired) {
			return sec.Anonymous(), nil
		}
		return sec.Identity{}, err
	}

	return identity, nil
}

// Revoke removes the session of one token. Its sibling sessions stay valid.
func (manager *SessionManager) Revoke(context context.Context, token string) error {
	email, err := manager.codec.Decode(token)
	if err != nil {
		return ErrInvalidFormat
	}

	if err := manager.users.RemoveSession(context, email, sec.HashToken(token)); err != nil {
		return fmt.Errorf("session_revoke_failed: %w", err)
	}
	return nil
}

// PruneExpired removes every session unused for longer than the token TTL.
func (manager *SessionManager) PruneExpired(context context.Context) (int64, error) {
	return manager.users.PruneSessions(context, "", manager.now().Add(-manager.ttl))
}
