// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/murmur/internal/platform/database/schema"
	"github.com/taibuivan/murmur/internal/platform/dberr"
)

// PostgresChallengeRepository implements [ChallengeRepository] on murmur.verification.
type PostgresChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresChallengeRepository creates a new Postgres challenge store.
func NewPostgresChallengeRepository(pool *pgxpool.Pool) *PostgresChallengeRepository {
	return &PostgresChallengeRepository{pool: pool}
}

/*
Upsert inserts the challenge or overwrites the row held for the same email.

Parameters:
  - context: context.Context
  - challenge: *Challenge

Returns:
  - error: Database execution failures
*/
func (repository *PostgresChallengeRepository) Upsert(context context.Context, challenge *Challenge) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s) DO UPDATE
		SET %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s`,
		schema.MurmurVerification.Table,
		schema.MurmurVerification.Email, schema.MurmurVerification.PendingUsername,
		schema.MurmurVerification.CodeHash, schema.MurmurVerification.CreatedAt,
		schema.MurmurVerification.Email,
		schema.MurmurVerification.PendingUsername, schema.MurmurVerification.PendingUsername,
		schema.MurmurVerification.CodeHash, schema.MurmurVerification.CodeHash,
		schema.MurmurVerification.CreatedAt, schema.MurmurVerification.CreatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		challenge.Email, challenge.PendingUsername, challenge.CodeHash, challenge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_challenge_repo_upsert_failed: %w", dberr.Wrap(err, "Verification challenge"))
	}

	return nil
}

// Find loads the pending challenge for an email.
func (repository *PostgresChallengeRepository) Find(context context.Context, email string) (*Challenge, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s
		FROM %s
		WHERE %s = $1`,
		schema.MurmurVerification.Email, schema.MurmurVerification.PendingUsername,
		schema.MurmurVerification.CodeHash, schema.MurmurVerification.CreatedAt,
		schema.MurmurVerification.Table, schema.MurmurVerification.Email,
	)

	challenge := &Challenge{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&challenge.Email,
		&challenge.PendingUsername,
		&challenge.CodeHash,
		&challenge.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Verification challenge")
	}

	return challenge, nil
}

// DeleteIfMatch removes the row only while it still carries codeHash.
func (repository *PostgresChallengeRepository) DeleteIfMatch(context context.Context, email, codeHash string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.MurmurVerification.Table, schema.MurmurVerification.Email, schema.MurmurVerification.CodeHash,
	)

	tag, err := repository.pool.Exec(context, query, email, codeHash)
	if err != nil {
		return false, dberr.Wrap(err, "Verification challenge")
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteOlderThan purges challenges created before threshold.
func (repository *PostgresChallengeRepository) DeleteOlderThan(context context.Context, threshold time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`,
		schema.MurmurVerification.Table, schema.MurmurVerification.CreatedAt,
	)

	tag, err := repository.pool.Exec(context, query, threshold)
	if err != nil {
		return 0, fmt.Errorf("postgres_challenge_repo_purge_failed: %w", dberr.Wrap(err, "Verification challenge"))
	}

	return tag.RowsAffected(), nil
}
