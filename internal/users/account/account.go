// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account implements the identity store: the email-keyed user profile
and the set of live sessions attached to it.

# Architecture

  - Entities: User, Session.
  - Contracts: Repository (single-user atomic operations only).
  - Adapters: PostgreSQL, MongoDB and in-memory implementations.
  - Delivery: GET/PUT /user for the caller's own profile.

Users are created by the verification broker on first successful registration
and are never deleted.
*/
package account

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/pkg/initials"
)

// # Display Name Constraints

const (
	// MinDisplayNameLength is the minimum number of characters in a display name.
	MinDisplayNameLength = 3

	// MaxDisplayNameLength is the maximum number of characters in a display name.
	MaxDisplayNameLength = 32

	// FieldUsername is the JSON field the widget sends the display name in.
	FieldUsername = "username"
)

// palette is the set of avatar accent colors. A user's color is fixed by email.
var palette = []string{
	"#e63946", "#f4a261", "#2a9d8f", "#264653", "#e76f51",
	"#8338ec", "#3a86ff", "#ff006e", "#06d6a0", "#118ab2",
}

// # Domain Entities

// User is a registered commenter.
type User struct {
	ID          string    `json:"id"         bson:"_id"`
	Email       string    `json:"email"      bson:"email"`
	DisplayName string    `json:"username"   bson:"display_name"`
	Color       string    `json:"color"      bson:"color"`
	Initials    string    `json:"initial"    bson:"initials"`
	Sessions    []Session `json:"-"          bson:"sessions"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Session is one live access token of a user, stored as a digest.
type Session struct {
	TokenHash string    `bson:"token"`
	LastUsed  time.Time `bson:"last_used"`
}

// Identity projects the user onto the public caller identity.
func (user *User) Identity() sec.Identity {
	return sec.Identity{
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Color:       user.Color,
		Initials:    user.Initials,
	}
}

// clone returns a deep copy so adapters never share session slices.
func (user *User) clone() *User {
	copied := *user
	copied.Sessions = append([]Session(nil), user.Sessions...)
	return &copied
}

/*
NewUser builds a user record for a freshly verified email.

Parameters:
  - email: string (already normalized)
  - displayName: string (validated by [NormalizeDisplayName])
  - now: time.Time

Returns:
  - *User: Entity ready to be persisted
  - error: apperr.ValidationError for an unusable display name, or the id
    generator's failure
*/
func NewUser(email, displayName string, now time.Time) (*User, error) {
	name, err := NormalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("user_id_generation_failed: %w", err)
	}

	return &User{
		ID:          id.String(),
		Email:       email,
		DisplayName: name,
		Color:       ColorFor(email),
		Initials:    initials.From(name),
		Sessions:    []Session{},
		CreatedAt:   now.UTC(),
	}, nil
}

// NormalizeDisplayName trims and NFC-normalizes a name, then checks its length.
func NormalizeDisplayName(name string) (string, error) {
	normalized := strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	length := utf8.RuneCountInString(normalized)

	if length < MinDisplayNameLength || length > MaxDisplayNameLength {
		return "", apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   FieldUsername,
			Message: "Username must be between 3 and 32 characters",
		})
	}

	return normalized, nil
}

// ColorFor picks a stable palette color for an email.
func ColorFor(email string) string {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(email))
	return palette[hash.Sum32()%uint32(len(palette))]
}

// # Repository Contracts

// Repository defines the persistence contract for users and their sessions.
//
// Every method touches exactly one user record and is atomic on its own.
type Repository interface {
	/*
		FindByEmail returns the user with the given email.

		Returns:
		  - *User: Hydrated entity (Sessions may be omitted)
		  - error: apperr.NotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		Create persists a brand-new user.

		Returns:
		  - error: apperr.Conflict if the email is already registered
	*/
	Create(context context.Context, user *User) error

	/*
		Rename replaces the display name and initials of a user.

		Returns:
		  - error: apperr.NotFound if the email is unknown
	*/
	Rename(context context.Context, email, displayName, initials string) error

	/*
		AppendSession adds a session to a user's set.

		Returns:
		  - error: apperr.NotFound if the email is unknown
	*/
	AppendSession(context context.Context, email string, session Session) error

	/*
		FindSession returns the stored session matching a token digest.

		Returns:
		  - *Session: The session with its latest last-used time
		  - error: apperr.NotFound if the user or session is absent
	*/
	FindSession(context context.Context, email, tokenHash string) (*Session, error)

	/*
		TouchSession sets last-used to now, but only while the session was
		last used at or after notBefore. It reports whether the update applied,
		so a token that expired (or was swept) in the meantime is never revived.
	*/
	TouchSession(context context.Context, email, tokenHash string, now, notBefore time.Time) (bool, error)

	/*
		RemoveSession deletes one session. Removing an absent session is not an error.
	*/
	RemoveSession(context context.Context, email, tokenHash string) error

	/*
		PruneSessions removes sessions last used before threshold. An empty
		email prunes across all users. It returns the number of affected
		records: sessions for the relational store, user documents for the
		document store.
	*/
	PruneSessions(context context.Context, email string, threshold time.Time) (int64, error)
}
