// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/pkg/pagination"
)

// Request field names used in validation details.
const (
	FieldLocation = "location"
	FieldComment  = "comment"
	FieldOrder    = "order"
)

// DefaultBodyMaxLength is the body cap, in characters, when none is configured.
const DefaultBodyMaxLength = 5000

// publishStripes is the number of ordering locks shared by all locations.
const publishStripes = 64

// Policy holds the tunable limits of the ledger.
type Policy struct {
	BodyMaxLength int
}

func (policy Policy) withDefaults() Policy {
	if policy.BodyMaxLength <= 0 {
		policy.BodyMaxLength = DefaultBodyMaxLength
	}
	return policy
}

// # Comment Ledger

// Ledger numbers, stores, reads and broadcasts comments.
//
// Append and Publish for one location run under the same stripe lock, so the
// feed of a process observes comments in id order. The lock is local: with
// several replicas publishing to a shared Redis feed, a tail sees the order in
// which replicas published, which can differ from id order. Clients that need
// strict order re-read the gap with a range listing.
type Ledger struct {
	repository Repository
	feed       Feed
	clock      clockwork.Clock
	policy     Policy
	logger     *slog.Logger

	stripes [publishStripes]sync.Mutex
}

// LedgerDependencies groups the collaborators required by [NewLedger].
type LedgerDependencies struct {
	Repository Repository
	Feed       Feed
	Clock      clockwork.Clock
	Policy     Policy
	Logger     *slog.Logger
}

// NewLedger constructs a new [Ledger] with its dependencies.
func NewLedger(deps LedgerDependencies) *Ledger {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Ledger{
		repository: deps.Repository,
		feed:       deps.Feed,
		clock:      clock,
		policy:     deps.Policy.withDefaults(),
		logger:     logger,
	}
}

func (ledger *Ledger) stripe(location string) *sync.Mutex {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(location))
	return &ledger.stripes[hash.Sum32()%publishStripes]
}

/*
Post stores a comment by author under the next id of location and announces it.

Bodies longer than the configured cap are truncated, not rejected. A failed
broadcast is logged; the comment stays stored.

Parameters:
  - context: context.Context
  - location: string
  - author: sec.Identity (Anonymous allowed)
  - body: string

Returns:
  - *Comment: The stored comment
  - error: apperr.ValidationError or storage failures
*/
func (ledger *Ledger) Post(context context.Context, location string, author sec.Identity, body string) (*Comment, error) {
	if location == "" {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field: FieldLocation, Message: "Location is required",
		})
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field: FieldComment, Message: "Comment must not be empty",
		})
	}
	body = truncateRunes(body, ledger.policy.BodyMaxLength)

	lock := ledger.stripe(location)
	lock.Lock()
	defer lock.Unlock()

	draft := newDraft(location, author, body, ledger.clock.Now().Truncate(time.Millisecond))
	stored, err := ledger.repository.Append(context, draft)
	if err != nil {
		return nil, fmt.Errorf("ledger_append_failed: %w", err)
	}

	if err := ledger.feed.Publish(context, stored); err != nil {
		ledger.logger.WarnContext(context, "comment_publish_failed",
			slog.String("location", location),
			slog.Int64("id", stored.ID),
			slog.Any("error", err),
		)
	}

	ledger.logger.DebugContext(context, "comment_posted",
		slog.String("location", location),
		slog.Int64("id", stored.ID),
	)

	return stored, nil
}

/*
List returns the comments of location with from <= id < to in the given order.
*/
func (ledger *Ledger) List(context context.Context, location string, from, to int64, order Order) ([]*Comment, error) {
	if !order.Valid() {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field: FieldOrder, Message: "Must be asc or desc",
		})
	}

	comments, err := ledger.repository.Range(context, location, from, to, order)
	if err != nil {
		return nil, fmt.Errorf("ledger_range_failed: %w", err)
	}
	return comments, nil
}

/*
Page returns one page of a location's thread with its pagination metadata.

Oldest-first pages count from id 1, latest-first pages count back from the
highest id. Pages past the end are empty.

Returns:
  - []*Comment: Comments of the page, in page order
  - pagination.Meta: Page, size and total comment count
  - error: apperr.ValidationError if page or perPage is below 1
*/
func (ledger *Ledger) Page(context context.Context, location string, params pagination.Params, latestFirst bool) ([]*Comment, pagination.Meta, error) {
	if !params.Valid() {
		return nil, pagination.Meta{}, apperr.ValidationError("Validation failed",
			apperr.FieldError{Field: pagination.QueryPage, Message: "Must be at least 1"},
			apperr.FieldError{Field: pagination.QueryPerPage, Message: "Must be at least 1"},
		)
	}

	total, err := ledger.repository.Count(context, location)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("ledger_count_failed: %w", err)
	}

	from, to := params.AscendingRange()
	order := Ascending
	if latestFirst {
		from, to = params.DescendingRange(total)
		order = Descending
	}

	comments, err := ledger.repository.Range(context, location, from, to, order)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("ledger_range_failed: %w", err)
	}

	return comments, pagination.NewMeta(params.Page, params.PerPage, total), nil
}

// Subscribe opens a live tail of comments posted to location from now on.
func (ledger *Ledger) Subscribe(context context.Context, location string) (Subscription, error) {
	if location == "" {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field: FieldLocation, Message: "Location is required",
		})
	}

	subscription, err := ledger.feed.Subscribe(context, location)
	if err != nil {
		return nil, fmt.Errorf("ledger_subscribe_failed: %w", err)
	}
	return subscription, nil
}

// truncateRunes cuts s to at most limit characters without splitting one.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	count := 0
	for index := range s {
		if count == limit {
			return s[:index]
		}
		count++
	}
	return s
}
