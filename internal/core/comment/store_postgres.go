// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package comment (Postgres) stores threads in two tables.

  - murmur.location: One counter row per location, the high-water id.
  - murmur.comment: The comments, keyed by (location, id).

The counter upsert takes the row lock that linearizes writers of a location,
and the comment insert commits in the same transaction, so an id is never
assigned without its comment.
*/
package comment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/murmur/internal/platform/database/schema"
	"github.com/taibuivan/murmur/internal/platform/dberr"
)

// Pool is the part of a pgxpool.Pool the comment store needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository constructs a PostgreSQL backed comment store.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Append advances the location counter and inserts the comment atomically.

Parameters:
  - context: context.Context
  - draft: *Comment (ID is ignored)

Returns:
  - *Comment: The stored comment with its assigned id
  - error: Database execution failures
*/
func (repository *PostgresRepository) Append(context context.Context, draft *Comment) (*Comment, error) {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return nil, fmt.Errorf("postgres_comment_repo_begin_failed: %w", dberr.Wrap(err, "Comment"))
	}
	defer transaction.Rollback(context)

	// 1. Claim the next id under the counter row lock
	counterQuery := fmt.Sprintf(`
		INSERT INTO %s AS l (%s, %s) VALUES ($1, 1)
		ON CONFLICT (%s) DO UPDATE SET %s = l.%s + 1
		RETURNING l.%s`,
		schema.MurmurLocation.Table, schema.MurmurLocation.Location, schema.MurmurLocation.MaxCommentID,
		schema.MurmurLocation.Location, schema.MurmurLocation.MaxCommentID, schema.MurmurLocation.MaxCommentID,
		schema.MurmurLocation.MaxCommentID,
	)

	stored := *draft
	if err := transaction.QueryRow(context, counterQuery, draft.Location).Scan(&stored.ID); err != nil {
		return nil, fmt.Errorf("postgres_comment_repo_counter_failed: %w", dberr.Wrap(err, "Comment"))
	}

	// 2. Insert the comment under the claimed id
	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.MurmurComment.Table,
		schema.MurmurComment.Location, schema.MurmurComment.ID, schema.MurmurComment.Email,
		schema.MurmurComment.DisplayName, schema.MurmurComment.Color, schema.MurmurComment.Initials,
		schema.MurmurComment.Body, schema.MurmurComment.PostedAt,
	)

	_, err = transaction.Exec(context, insertQuery,
		stored.Location, stored.ID, stored.Email,
		stored.DisplayName, stored.Color, stored.Initials,
		stored.Body, stored.PostedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres_comment_repo_insert_failed: %w", dberr.Wrap(err, "Comment"))
	}

	if err := transaction.Commit(context); err != nil {
		return nil, fmt.Errorf("postgres_comment_repo_commit_failed: %w", dberr.Wrap(err, "Comment"))
	}

	return &stored, nil
}

// Range reads the half-open id window [from, to) of a location.
func (repository *PostgresRepository) Range(context context.Context, location string, from, to int64, order Order) ([]*Comment, error) {
	direction := "ASC"
	if order == Descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s >= $2 AND %s < $3
		ORDER BY %s %s`,
		schema.MurmurComment.Location, schema.MurmurComment.ID, schema.MurmurComment.Email,
		schema.MurmurComment.DisplayName, schema.MurmurComment.Color, schema.MurmurComment.Initials,
		schema.MurmurComment.Body, schema.MurmurComment.PostedAt,
		schema.MurmurComment.Table,
		schema.MurmurComment.Location, schema.MurmurComment.ID, schema.MurmurComment.ID,
		schema.MurmurComment.ID, direction,
	)

	rows, err := repository.pool.Query(context, query, location, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres_comment_repo_range_failed: %w", dberr.Wrap(err, "Comment"))
	}
	defer rows.Close()

	comments := []*Comment{}
	for rows.Next() {
		found := &Comment{}
		if err := rows.Scan(
			&found.Location, &found.ID, &found.Email,
			&found.DisplayName, &found.Color, &found.Initials,
			&found.Body, &found.PostedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_comment_repo_scan_failed: %w", dberr.Wrap(err, "Comment"))
		}
		found.PostedAt = found.PostedAt.UTC()
		found.Date = found.PostedAt.Format(DateLayout)
		found.Time = found.PostedAt.Format(TimeLayout)
		comments = append(comments, found)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_comment_repo_rows_failed: %w", dberr.Wrap(err, "Comment"))
	}

	return comments, nil
}

// Count returns the counter row of a location, or 0 if it has none.
func (repository *PostgresRepository) Count(context context.Context, location string) (int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.MurmurLocation.MaxCommentID, schema.MurmurLocation.Table, schema.MurmurLocation.Location,
	)

	var count int64
	err := repository.pool.QueryRow(context, query, location).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, dberr.Wrap(err, "Comment")
	}

	return count, nil
}
