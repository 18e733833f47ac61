// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Verification Challenges

// Challenge is a pending email verification.
//
// A non-nil PendingUsername marks a registration; nil marks a login. This is
// the only signal that separates the two flows.
type Challenge struct {
	Email           string    `bson:"email"`
	PendingUsername *string   `bson:"username,omitempty"`
	CodeHash        string    `bson:"code"`
	CreatedAt       time.Time `bson:"created_at"`
}

// IsRegistration reports whether verifying this challenge creates a new user.
func (challenge *Challenge) IsRegistration() bool {
	return challenge.PendingUsername != nil
}

// ChallengeRepository defines the data access contract for pending verifications.
//
// At most one challenge exists per email.
type ChallengeRepository interface {

	/*
		Upsert stores a challenge, replacing any previous one for the same email.

		Parameters:
		  - context: context.Context
		  - challenge: *Challenge

		Returns:
		  - error: Storage failures
	*/
	Upsert(context context.Context, challenge *Challenge) error

	/*
		Find returns the pending challenge for an email.

		Returns:
		  - *Challenge: The stored challenge
		  - error: apperr.NotFound when none is pending
	*/
	Find(context context.Context, email string) (*Challenge, error)

	/*
		DeleteIfMatch removes the challenge only if it still carries codeHash.

		It reports whether a challenge was removed. Two concurrent verifications
		of the same code therefore consume it exactly once.
	*/
	DeleteIfMatch(context context.Context, email, codeHash string) (bool, error)

	/*
		DeleteOlderThan removes every challenge created before threshold and
		returns how many were removed.
	*/
	DeleteOlderThan(context context.Context, threshold time.Time) (int64, error)
}
