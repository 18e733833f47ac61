// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how page-based navigation is requested via query parameters
// and how the resulting metadata is delivered in the API response envelope.
// Comment ids are gapless, so a page maps directly onto an id range.
package pagination

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
)

const (
	// DefaultPerPage is the number of comments per page if not specified.
	DefaultPerPage = 30
	// MaxPerPage is the upper bound for items per page to prevent system abuse.
	MaxPerPage = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1

	// Query parameter names used by the comment widget.
	QueryPerPage = "comment_per_page"
	QueryPage    = "page"
)

// Params holds the parsed page and page size from a request's query string.
type Params struct {
	Page    int
	PerPage int
}

// Valid reports whether both values are at least 1.
func (p Params) Valid() bool {
	return p.Page >= 1 && p.PerPage >= 1
}

// offset returns the number of ids before page p, or false when that count
// does not fit in an int64.
func (p Params) offset() (int64, bool) {
	skipped, perPage := int64(p.Page-1), int64(p.PerPage)
	if perPage > 0 && skipped > (math.MaxInt64-1)/perPage {
		return 0, false
	}
	return skipped * perPage, true
}

// AscendingRange returns the half-open id range [from, to) of page p when
// ids 1..n are laid out oldest first. A page beyond the id space is empty.
func (p Params) AscendingRange() (from, to int64) {
	offset, ok := p.offset()
	if !ok {
		return math.MaxInt64, math.MaxInt64
	}
	from = offset + 1
	return from, addCapped(from, int64(p.PerPage))
}

// DescendingRange returns the half-open id range [from, to) of page p when
// ids max..1 are laid out newest first. The range may be empty.
func (p Params) DescendingRange(max int64) (from, to int64) {
	offset, ok := p.offset()
	if !ok || offset >= max {
		return 1, 1
	}

	last := max - offset
	from = last - int64(p.PerPage) + 1
	if from < 1 {
		from = 1
	}
	return from, addCapped(last, 1)
}

// ClampSpan bounds a requested id window to at most [MaxPerPage] ids starting
// no lower than id 1.
func ClampSpan(from, to int64) (int64, int64) {
	if from < 1 {
		from = 1
	}
	if limit := addCapped(from, MaxPerPage); to > limit {
		to = limit
	}
	return from, to
}

// addCapped adds two non-negative values, saturating at [math.MaxInt64].
func addCapped(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"comment_per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// NewMeta constructs pagination metadata for a response.
//
// It automatically calculates the TotalPages based on the total count and page size.
func NewMeta(page, perPage int, total int64) Meta {
	var totalPages int64
	if perPage > 0 {
		totalPages = (total + int64(perPage) - 1) / int64(perPage)
	}

	return Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FromRequest parses "comment_per_page" and "page" query parameters.
//
// # Defaults
//
// Missing values fall back to [DefaultPerPage] and [DefaultPage]. Page sizes
// above [MaxPerPage] are clamped. Values below 1 are returned as-is so the
// caller can reject them; non-integers are an error.
func FromRequest(r *http.Request) (Params, error) {
	page, err := parseIntParam(r, QueryPage, DefaultPage)
	if err != nil {
		return Params{}, err
	}

	perPage, err := parseIntParam(r, QueryPerPage, DefaultPerPage)
	if err != nil {
		return Params{}, err
	}

	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	return Params{Page: page, PerPage: perPage}, nil
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("pagination: %s must be an integer", key)
	}

	return n, nil
}
