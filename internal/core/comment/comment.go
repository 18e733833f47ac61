// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package comment implements the comment ledger: gapless per-location ids,
half-open range and page queries, and a live feed of new comments.

# Architecture

  - Entity: Comment (immutable once stored).
  - Contracts: Repository (atomic append plus reads), Feed (publish/subscribe).
  - Adapters: PostgreSQL, MongoDB and memory repositories; Redis and memory feeds.
  - Service: Ledger, which orders publishing after every committed append.
  - Delivery: REST under /comments/* and a WebSocket tail under /live/*.

A location is any opaque string, typically a page URL without its scheme.
*/
package comment

import (
	"context"
	"time"

	"github.com/taibuivan/murmur/internal/platform/sec"
)

// Wire formats for the split timestamp the widget renders.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// # Domain Entities

// Comment is one immutable entry of a location's thread.
type Comment struct {
	Location    string    `json:"location" bson:"location"`
	ID          int64     `json:"id"       bson:"id"`
	Email       string    `json:"email"    bson:"email"`
	DisplayName string    `json:"username" bson:"username"`
	Color       string    `json:"color"    bson:"color"`
	Initials    string    `json:"initial"  bson:"initial"`
	Body        string    `json:"comment"  bson:"comment"`
	Date        string    `json:"date"     bson:"date"`
	Time        string    `json:"time"     bson:"time"`
	PostedAt    time.Time `json:"-"        bson:"posted_at"`
}

// newDraft stamps a not-yet-numbered comment with its author and time.
func newDraft(location string, author sec.Identity, body string, now time.Time) *Comment {
	now = now.UTC()
	return &Comment{
		Location:    location,
		Email:       author.Email,
		DisplayName: author.DisplayName,
		Color:       author.Color,
		Initials:    author.Initials,
		Body:        body,
		Date:        now.Format(DateLayout),
		Time:        now.Format(TimeLayout),
		PostedAt:    now,
	}
}

// Order selects the id direction of a listing.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// Valid reports whether order is one of the known directions.
func (order Order) Valid() bool {
	return order == Ascending || order == Descending
}

// # Repository Contracts

// Repository defines the persistence contract for comments.
type Repository interface {
	/*
		Append assigns the next id of draft.Location and stores the comment in
		one atomic step. Concurrent appends to one location receive distinct,
		consecutive ids starting at 1.

		Returns:
		  - *Comment: The stored comment with its id
		  - error: Storage failures
	*/
	Append(context context.Context, draft *Comment) (*Comment, error)

	/*
		Range returns the comments of a location whose id is in [from, to),
		sorted by id in the given order.
	*/
	Range(context context.Context, location string, from, to int64, order Order) ([]*Comment, error)

	/*
		Count returns the highest id assigned in a location, which equals the
		number of comments because ids are gapless. Unknown locations have 0.
	*/
	Count(context context.Context, location string) (int64, error)
}

// # Live Feed Contracts

// Feed fans committed comments out to live subscribers of their location.
type Feed interface {
	// Publish delivers c to every current subscriber of c.Location.
	Publish(context context.Context, c *Comment) error

	// Subscribe starts receiving comments published to location after this call returns.
	Subscribe(context context.Context, location string) (Subscription, error)
}

// Subscription is a live tail of one location.
type Subscription interface {
	// Next blocks until the next comment arrives, the context ends, or the subscription closes.
	Next(context context.Context) (*Comment, error)

	// Close stops delivery and releases the underlying resources. It is idempotent.
	Close() error
}
