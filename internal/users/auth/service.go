// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements passwordless authentication for Murmur.

# Architecture

  - Broker: Issues numeric codes by email and checks them (registration or login).
  - SessionManager: Mints bearer tokens and validates them with sliding renewal.
  - ChallengeRepository: Pending verifications (PostgreSQL, MongoDB, Redis, memory).

A challenge moves NO_CHALLENGE → PENDING → CONSUMED or EXPIRED. Sending a new
code replaces the pending one, and a matched code is consumed before the
session is minted so it can never be replayed.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/mailer"
	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/internal/platform/validate"
	"github.com/taibuivan/murmur/internal/users/account"
)

// FieldEmail is the JSON field that carries the address being verified.
const FieldEmail = "email"

// # Verification Broker

// Broker runs the challenge/response protocol that precedes every session.
type Broker struct {
	users      account.Repository
	challenges ChallengeRepository
	sessions   *SessionManager
	mailer     mailer.Mailer
	clock      clockwork.Clock
	policy     Policy
	logger     *slog.Logger
}

// BrokerDependencies groups the collaborators required by [NewBroker].
type BrokerDependencies struct {
	Users      account.Repository
	Challenges ChallengeRepository
	Sessions   *SessionManager
	Mailer     mailer.Mailer
	Clock      clockwork.Clock
	Policy     Policy
	Logger     *slog.Logger
}

// NewBroker constructs a new [Broker] with its dependencies.
func NewBroker(deps BrokerDependencies) *Broker {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Broker{
		users:      deps.Users,
		challenges: deps.Challenges,
		sessions:   deps.Sessions,
		mailer:     deps.Mailer,
		clock:      clock,
		policy:     deps.Policy.withDefaults(),
		logger:     deps.Logger,
	}
}

/*
RequestChallenge sends a fresh code to email.

A non-nil username starts a registration, nil starts a login.

Parameters:
  - context: context.Context
  - email: string (raw user input)
  - username: *string

Returns:
  - error: apperr.ValidationError, ErrUserExists, ErrUserNotFound,
    apperr.DeliveryFailed or storage failures
*/
func (broker *Broker) RequestChallenge(context context.Context, email string, username *string) error {
	email = validate.NormalizeEmail(email)
	if !validate.IsEmail(email) {
		return apperr.ValidationError("Validation failed", apperr.FieldError{
			Field: FieldEmail, Message: "Must be a valid email address",
		})
	}

	// 1. Registration and login have opposite preconditions on the user
	_, err := broker.users.FindByEmail(context, email)
	userExists := err == nil
	if err != nil && !apperr.HasCode(err, apperr.CodeNotFound) {
		return fmt.Errorf("broker_user_lookup_failed: %w", err)
	}

	var pending *string
	if username != nil {
		if userExists {
			return ErrUserExists
		}
		name, err := account.NormalizeDisplayName(*username)
		if err != nil {
			return err
		}
		pending = &name
	} else if !userExists {
		return ErrUserNotFound
	}

	// 2. Fresh code, stored hashed
	code, err := sec.NumericCode(broker.policy.CodeLength)
	if err != nil {
		return apperr.Internal(err)
	}
	codeHash, err := sec.HashCode(code, broker.policy.CodeHashCost)
	if err != nil {
		return apperr.Internal(err)
	}

	// 3. Replace any pending challenge so older codes stop working
	challenge := &Challenge{
		Email:           email,
		PendingUsername: pending,
		CodeHash:        codeHash,
		CreatedAt:       broker.now(),
	}
	if err := broker.challenges.Upsert(context, challenge); err != nil {
		return fmt.Errorf("broker_challenge_store_failed: %w", err)
	}

	// 4. Deliver. A failed send leaves the challenge pending
	message, err := mailer.VerificationMessage(email, broker.policy.MailSubject, code, broker.policy.CodeTTL)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := broker.mailer.Send(context, message); err != nil {
		broker.logger.WarnContext(context, "challenge_mail_failed",
			slog.String("email", email),
			slog.Any("error", err),
		)
		return apperr.DeliveryFailed(err)
	}

	broker.logger.InfoContext(context, "challenge_issued",
		slog.String("email", email),
		slog.Bool("registration", pending != nil),
	)

	return nil
}

/*
Verify checks a submitted code and, on success, returns a new access token.

Parameters:
  - context: context.Context
  - email: string (raw user input)
  - code: string

Returns:
  - string: The bearer token
  - error: ErrChallengeNotFound, ErrInvalidCode, ErrCodeExpired,
    ErrUserExists, ErrUserNotFound or storage failures
*/
func (broker *Broker) Verify(context context.Context, email, code string) (string, error) {
	email = validate.NormalizeEmail(email)

	challenge, err := broker.challenges.Find(context, email)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("broker_challenge_lookup_failed: %w", err)
	}

	if !sec.CheckCode(code, challenge.CodeHash) {
		return "", ErrInvalidCode
	}

	now := broker.now()
	if now.Sub(challenge.CreatedAt) > broker.policy.CodeTTL {
		return "", ErrCodeExpired
	}

	// Consume before minting. Losing this race means another request already used the code
	consumed, err := broker.challenges.DeleteIfMatch(context, email, challenge.CodeHash)
	if err != nil {
		return "", fmt.Errorf("broker_challenge_consume_failed: %w", err)
	}
	if !consumed {
		return "", ErrChallengeNotFound
	}

	if challenge.IsRegistration() {
		user, err := account.NewUser(email, *challenge.PendingUsername, now)
		if err != nil {
			return "", err
		}
		if err := broker.users.Create(context, user); err != nil {
			if apperr.HasCode(err, apperr.CodeConflict) {
				return "", ErrUserExists
			}
			return "", fmt.Errorf("broker_user_create_failed: %w", err)
		}
		broker.logger.InfoContext(context, "user_registered", slog.String("email", email))
	} else if _, err := broker.users.FindByEmail(context, email); err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("broker_user_lookup_failed: %w", err)
	}

	token, err := broker.sessions.Issue(context, email)
	if err != nil {
		return "", err
	}

	broker.logger.InfoContext(context, "challenge_verified", slog.String("email", email))
	return token, nil
}

// PurgeExpired removes every challenge older than the code TTL.
func (broker *Broker) PurgeExpired(context context.Context) (int64, error) {
	return broker.challenges.DeleteOlderThan(context, broker.now().Add(-broker.policy.CodeTTL))
}

func (broker *Broker) now() time.Time {
	return broker.clock.Now().UTC().Truncate(time.Millisecond)
}
