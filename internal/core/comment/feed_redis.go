// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/constants"
)

// feedChannelSize buffers messages between the Redis connection and a slow reader.
const feedChannelSize = 256

// RedisFeed implements [Feed] over Redis pub/sub, one channel per location.
//
// It lets several API replicas share one live tail.
type RedisFeed struct {
	client redis.UniversalClient
}

// NewRedisFeed creates a feed on an existing client.
func NewRedisFeed(client redis.UniversalClient) *RedisFeed {
	return &RedisFeed{client: client}
}

func feedChannel(location string) string {
	return constants.RedisPrefixCommentFeed + location
}

// Publish implements [Feed].
func (feed *RedisFeed) Publish(context context.Context, c *Comment) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis_feed_encode_failed: %w", err)
	}

	if err := feed.client.Publish(context, feedChannel(c.Location), payload).Err(); err != nil {
		return fmt.Errorf("redis_feed_publish_failed: %w", apperr.StoreUnavailable(err))
	}
	return nil
}

/*
Subscribe opens a pub/sub connection for a location.

It waits for the subscription confirmation so that every comment published
after Subscribe returns is delivered.
*/
func (feed *RedisFeed) Subscribe(context context.Context, location string) (Subscription, error) {
	pubsub := feed.client.Subscribe(context, feedChannel(location))

	if _, err := pubsub.Receive(context); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis_feed_subscribe_failed: %w", apperr.StoreUnavailable(err))
	}

	return &redisSubscription{
		pubsub:   pubsub,
		messages: pubsub.Channel(redis.WithChannelSize(feedChannelSize)),
	}, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	messages  <-chan *redis.Message
	closeOnce sync.Once
	closeErr  error
}

// Next implements [Subscription].
func (subscription *redisSubscription) Next(ctx context.Context) (*Comment, error) {
	select {
	case message, ok := <-subscription.messages:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		c := &Comment{}
		if err := json.Unmarshal([]byte(message.Payload), c); err != nil {
			return nil, fmt.Errorf("redis_feed_decode_failed: %w", err)
		}
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements [Subscription].
func (subscription *redisSubscription) Close() error {
	subscription.closeOnce.Do(func() {
		subscription.closeErr = subscription.pubsub.Close()
	})
	return subscription.closeErr
}
