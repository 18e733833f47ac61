// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// Both store drivers (pgx and the MongoDB driver) funnel their failures
// through [Wrap], so services see the same [apperr.AppError] codes no matter
// which backend is configured.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taibuivan/murmur/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// resource names the entity for not-found and conflict messages (e.g. "User").
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// 1. Already classified
	if apperr.IsAppError(err) {
		return err
	}

	// 2. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(resource)
	}

	// 3. Constraint violations
	if IsUniqueViolation(err) {
		conflict := apperr.Conflict(fmt.Sprintf("%s already exists", resource))
		conflict.Cause = err
		return conflict
	}

	if IsForeignKeyViolation(err) {
		return apperr.NotFound(resource)
	}

	// 4. Everything else means the store could not serve the request
	return apperr.StoreUnavailable(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL 23505 or a MongoDB
// duplicate key error.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}

// IsForeignKeyViolation reports whether err is a PostgreSQL 23503.
func IsForeignKeyViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.ForeignKeyViolation
}
