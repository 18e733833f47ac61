// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"sync"
)

// MemoryRepository implements [Repository] in process memory.
//
// Each location's slice is indexed by id-1, so ranges are slice windows.
type MemoryRepository struct {
	mu        sync.RWMutex
	locations map[string][]Comment
}

// NewMemoryRepository creates an empty in-memory comment store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{locations: make(map[string][]Comment)}
}

// Append implements [Repository].
func (repository *MemoryRepository) Append(_ context.Context, draft *Comment) (*Comment, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	thread := repository.locations[draft.Location]
	stored := *draft
	stored.ID = int64(len(thread)) + 1
	repository.locations[draft.Location] = append(thread, stored)

	return &stored, nil
}

// Range implements [Repository].
func (repository *MemoryRepository) Range(_ context.Context, location string, from, to int64, order Order) ([]*Comment, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	thread := repository.locations[location]
	if from < 1 {
		from = 1
	}
	if last := int64(len(thread)) + 1; to > last {
		to = last
	}
	if from >= to {
		return []*Comment{}, nil
	}

	window := thread[from-1 : to-1]
	comments := make([]*Comment, 0, len(window))
	for index := range window {
		position := index
		if order == Descending {
			position = len(window) - 1 - index
		}
		found := window[position]
		comments = append(comments, &found)
	}

	return comments, nil
}

// Count implements [Repository].
func (repository *MemoryRepository) Count(_ context.Context, location string) (int64, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	return int64(len(repository.locations[location])), nil
}
