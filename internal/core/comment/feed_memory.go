// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"errors"
	"sync"
)

// ErrSubscriptionClosed is returned by Next once the subscription is closed.
var ErrSubscriptionClosed = errors.New("comment: subscription closed")

// MemoryFeed implements [Feed] inside one process.
//
// Every subscriber owns an unbounded queue, so a slow reader never blocks
// publishers and never loses a comment.
type MemoryFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[*memorySubscription]struct{}
}

// NewMemoryFeed creates a feed with no subscribers.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subscribers: make(map[string]map[*memorySubscription]struct{})}
}

// Publish implements [Feed].
func (feed *MemoryFeed) Publish(_ context.Context, c *Comment) error {
	feed.mu.Lock()
	defer feed.mu.Unlock()

	for subscription := range feed.subscribers[c.Location] {
		subscription.push(*c)
	}
	return nil
}

// Subscribe implements [Feed].
func (feed *MemoryFeed) Subscribe(_ context.Context, location string) (Subscription, error) {
	subscription := &memorySubscription{
		feed:     feed,
		location: location,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	feed.mu.Lock()
	defer feed.mu.Unlock()

	if feed.subscribers[location] == nil {
		feed.subscribers[location] = make(map[*memorySubscription]struct{})
	}
	feed.subscribers[location][subscription] = struct{}{}

	return subscription, nil
}

// SubscriberCount reports the live subscriptions of a location.
func (feed *MemoryFeed) SubscriberCount(location string) int {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	return len(feed.subscribers[location])
}

func (feed *MemoryFeed) remove(subscription *memorySubscription) {
	feed.mu.Lock()
	defer feed.mu.Unlock()

	delete(feed.subscribers[subscription.location], subscription)
	if len(feed.subscribers[subscription.location]) == 0 {
		delete(feed.subscribers, subscription.location)
	}
}

type memorySubscription struct {
	feed     *MemoryFeed
	location string

	mu      sync.Mutex
	pending []Comment
	notify  chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func (subscription *memorySubscription) push(c Comment) {
	subscription.mu.Lock()
	subscription.pending = append(subscription.pending, c)
	subscription.mu.Unlock()

	select {
	case subscription.notify <- struct{}{}:
	default:
	}
}

// Next implements [Subscription].
func (subscription *memorySubscription) Next(ctx context.Context) (*Comment, error) {
	for {
		subscription.mu.Lock()
		if len(subscription.pending) > 0 {
			next := subscription.pending[0]
			subscription.pending = subscription.pending[1:]
			subscription.mu.Unlock()
			return &next, nil
		}
		subscription.mu.Unlock()

		select {
		case <-subscription.notify:
		case <-subscription.done:
			return nil, ErrSubscriptionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close implements [Subscription].
func (subscription *memorySubscription) Close() error {
	subscription.closeOnce.Do(func() {
		subscription.feed.remove(subscription)
		close(subscription.done)
	})
	return nil
}
