// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the identity store on PostgreSQL.

# Schema Table Mapping
  - murmur.account: One row per registered email.
  - murmur.session: One row per live token digest, cascading from account.
*/
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/database/schema"
	"github.com/taibuivan/murmur/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres implementation of the identity store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
FindByEmail retrieves a user record from the murmur.account table.

Parameters:
  - context: context.Context
  - email: string (normalized)

Returns:
  - *User: Hydrated entity without sessions
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1`,
		schema.MurmurAccount.ID, schema.MurmurAccount.Email, schema.MurmurAccount.DisplayName,
		schema.MurmurAccount.Color, schema.MurmurAccount.Initials, schema.MurmurAccount.CreatedAt,
		schema.MurmurAccount.Table, schema.MurmurAccount.Email,
	)

	user := &User{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Color,
		&user.Initials,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}

	return user, nil
}

/*
Create inserts a new account row.

Returns:
  - error: apperr.Conflict when the email unique constraint fires
*/
func (repository *PostgresRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		schema.MurmurAccount.Table,
		schema.MurmurAccount.ID, schema.MurmurAccount.Email, schema.MurmurAccount.DisplayName,
		schema.MurmurAccount.Color, schema.MurmurAccount.Initials, schema.MurmurAccount.CreatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		user.ID, user.Email, user.DisplayName, user.Color, user.Initials, user.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "User")
	}

	return nil
}

// Rename updates the display name and initials of one account.
func (repository *PostgresRepository) Rename(context context.Context, email, displayName, initials string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3
		WHERE %s = $1`,
		schema.MurmurAccount.Table,
		schema.MurmurAccount.DisplayName, schema.MurmurAccount.Initials,
		schema.MurmurAccount.Email,
	)

	tag, err := repository.pool.Exec(context, query, email, displayName, initials)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_rename_failed: %w", dberr.Wrap(err, "User"))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// # Session Methods

/*
AppendSession inserts a session row for an existing account.

Returns:
  - error: apperr.NotFound when the account foreign key fails
*/
func (repository *PostgresRepository) AppendSession(context context.Context, email string, session Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $3)`,
		schema.MurmurSession.Table,
		schema.MurmurSession.TokenHash, schema.MurmurSession.Email,
		schema.MurmurSession.LastUsed, schema.MurmurSession.CreatedAt,
	)

	if _, err := repository.pool.Exec(context, query, session.TokenHash, email, session.LastUsed); err != nil {
		return dberr.Wrap(err, "User")
	}

	return nil
}

// FindSession loads a session by owner and digest.
func (repository *PostgresRepository) FindSession(context context.Context, email, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2`,
		schema.MurmurSession.TokenHash, schema.MurmurSession.LastUsed,
		schema.MurmurSession.Table,
		schema.MurmurSession.Email, schema.MurmurSession.TokenHash,
	)

	session := &Session{}
	err := repository.pool.QueryRow(context, query, email, tokenHash).Scan(&session.TokenHash, &session.LastUsed)
	if err != nil {
		return nil, dberr.Wrap(err, "Session")
	}

	return session, nil
}

/*
TouchSession bumps lastused with a guarded UPDATE.

The WHERE clause re-checks lastused against notBefore so a concurrent sweep
or expiry cannot be undone by a late renewal.
*/
func (repository *PostgresRepository) TouchSession(context context.Context, email, tokenHash string, now, notBefore time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $3
		WHERE %s = $1 AND %s = $2 AND %s >= $4`,
		schema.MurmurSession.Table, schema.MurmurSession.LastUsed,
		schema.MurmurSession.Email, schema.MurmurSession.TokenHash, schema.MurmurSession.LastUsed,
	)

	tag, err := repository.pool.Exec(context, query, email, tokenHash, now, notBefore)
	if err != nil {
		return false, dberr.Wrap(err, "Session")
	}

	return tag.RowsAffected() == 1, nil
}

// RemoveSession deletes one session row. Missing rows are ignored.
func (repository *PostgresRepository) RemoveSession(context context.Context, email, tokenHash string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.MurmurSession.Table, schema.MurmurSession.Email, schema.MurmurSession.TokenHash,
	)

	if _, err := repository.pool.Exec(context, query, email, tokenHash); err != nil {
		return dberr.Wrap(err, "Session")
	}

	return nil
}

// PruneSessions deletes stale session rows for one email, or for every email when empty.
func (repository *PostgresRepository) PruneSessions(context context.Context, email string, threshold time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s < $1 AND ($2 = '' OR %s = $2)`,
		schema.MurmurSession.Table, schema.MurmurSession.LastUsed, schema.MurmurSession.Email,
	)

	tag, err := repository.pool.Exec(context, query, threshold, email)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_prune_failed: %w", dberr.Wrap(err, "Session"))
	}

	return tag.RowsAffected(), nil
}
