package tariffcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"correction_pricing/internal/logging"
)

// DefaultChannel is the Pub/Sub channel used when none is configured.
const DefaultChannel = "tariffs:invalidate"

// InvalidationEvent tells peer instances that the catalog changed.
type InvalidationEvent struct {
	Origin string    `json:"origin"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Broadcaster publishes invalidations to other instances.
type Broadcaster interface {
	Publish(ctx context.Context, reason string) error
}

// RedisBroadcaster sends invalidation events over Redis Pub/Sub.
type RedisBroadcaster struct {
	client     *redis.Client
	channel    string
	instanceID string
}

// NewRedisBroadcaster creates a broadcaster. instanceID tags outgoing events
// so the publishing instance can ignore its own messages.
func NewRedisBroadcaster(client *redis.Client, channel, instanceID string) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
	}
}

// Publish sends one event.
func (b *RedisBroadcaster) Publish(ctx context.Context, reason string) error {
	payload, err := sonic.Marshal(InvalidationEvent{
		Origin: b.instanceID,
		Reason: reason,
		At:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Subscribe opens the channel and waits for Redis to confirm the subscription.
func (b *RedisBroadcaster) Subscribe(ctx context.Context) (*Listener, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	return &Listener{pubsub: pubsub, instanceID: b.instanceID}, nil
}

// Listener receives events published by other instances.
type Listener struct {
	pubsub     *redis.PubSub
	instanceID string
}

// Run calls handle for every event not published by this instance. It
// returns nil when ctx ends.
func (l *Listener) Run(ctx context.Context, handle func(context.Context, InvalidationEvent)) error {
	for {
		msg, err := l.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to receive invalidation: %w", err)
		}

		var event InvalidationEvent
		if err := sonic.UnmarshalString(msg.Payload, &event); err != nil {
			logging.Warningf("Ignoring malformed invalidation event: %v", err)
			continue
		}
		if event.Origin == l.instanceID {
			continue
		}

		handle(ctx, event)
	}
}

// Close unsubscribes.
func (l *Listener) Close() error {
	return l.pubsub.Close()
}
