// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/murmur/internal/platform/apperr"
)

// # Authentication Constraints

const (
	// CodeLength is the number of decimal digits in a verification code.
	CodeLength = 6

	// NonceLength is the byte length of the random nonce embedded in every access token.
	NonceLength = 32

	// DefaultCodeTTL is how long a verification code stays usable.
	DefaultCodeTTL = 10 * time.Minute

	// DefaultTokenTTL is how long an access token survives without being used.
	DefaultTokenTTL = 30 * 24 * time.Hour

	// DefaultCodeHashCost is the bcrypt cost applied to stored codes.
	DefaultCodeHashCost = bcrypt.DefaultCost
)

// # Sentinel Errors

// Comparable with [errors.Is]: an [apperr.AppError] matches another with the same code.
var (
	ErrChallengeNotFound = apperr.NotFound("Verification challenge")
	ErrInvalidCode       = apperr.InvalidCode("Invalid verification code")
	ErrCodeExpired       = apperr.Expired("Verification code has expired", http.StatusBadRequest)
	ErrUserExists        = apperr.Conflict("User already exists")
	ErrUserNotFound      = apperr.NotFound("User")
	ErrInvalidFormat     = apperr.InvalidFormat("Malformed access token")
	ErrInvalidToken      = apperr.InvalidToken("Access token is not recognized")
	ErrTokenExpired      = apperr.Expired("Access token has expired", http.StatusUnauthorized)
)

// Policy carries the tunables of the verification and session protocols.
type Policy struct {
	CodeLength   int
	CodeTTL      time.Duration
	TokenTTL     time.Duration
	CodeHashCost int
	MailSubject  string
}

// withDefaults fills zero fields with the package defaults.
func (policy Policy) withDefaults() Policy {
	if policy.CodeLength <= 0 {
		policy.CodeLength = CodeLength
	}
	if policy.CodeTTL <= 0 {
		policy.CodeTTL = DefaultCodeTTL
	}
	if policy.TokenTTL <= 0 {
		policy.TokenTTL = DefaultTokenTTL
	}
	if policy.CodeHashCost == 0 {
		policy.CodeHashCost = DefaultCodeHashCost
	}
	if policy.MailSubject == "" {
		policy.MailSubject = "Comment Section - Verify your email"
	}
	return policy
}
