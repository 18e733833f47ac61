// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/dberr"
)

/*
TestWrap classifies driver errors from both backends.
*/
func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"pg_no_rows", pgx.ErrNoRows, apperr.CodeNotFound},
		{"pg_no_rows_wrapped", fmt.Errorf("account_select_failed: %w", pgx.ErrNoRows), apperr.CodeNotFound},
		{"mongo_no_documents", mongo.ErrNoDocuments, apperr.CodeNotFound},
		{"pg_unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, apperr.CodeConflict},
		{"pg_foreign_key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, apperr.CodeNotFound},
		{"mongo_duplicate", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, apperr.CodeConflict},
		{"unknown", errors.New("connection reset"), apperr.CodeStoreUnavailable},
		{"already_classified", apperr.InvalidCode("nope"), apperr.CodeInvalidCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "User")
			assert.True(t, apperr.HasCode(wrapped, tt.code), "got %v", wrapped)
		})
	}
}

/*
TestWrap_Nil passes nil through.
*/
func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, dberr.Wrap(nil, "User"))
}
