package push

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "gestionale:push:"

// Relay fans push frames out across instances through Redis pub/sub. Every instance
// subscribes to the user channel pattern and delivers to its own registry.
type Relay struct {
	rdb      redis.UniversalClient
	registry *Registry
}

// NewRelay builds a relay from a redis:// URL
func NewRelay(redisURL string, registry *Registry) (*Relay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &Relay{rdb: redis.NewClient(opts), registry: registry}, nil
}

// Channel is the pub/sub channel for a user
func Channel(userID uint64) string {
	return channelPrefix + strconv.FormatUint(userID, 10)
}

// Publish sends msg to every instance holding a channel for userID
func (r *Relay) Publish(ctx context.Context, userID uint64, msg []byte) error {
	return r.rdb.Publish(ctx, Channel(userID), msg).Err()
}

// Ping checks the redis connection
func (r *Relay) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Run subscribes and delivers until ctx is cancelled. It returns once the
// subscription is closed.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription confirmation so publishes after Run starts are not lost
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe failed: %w", err)
	}
	slog.Info("push relay subscribed", "pattern", channelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, channelPrefix), 10, 64)
			if err != nil {
				slog.Warn("push relay ignored message", "channel", msg.Channel)
				continue
			}
			r.registry.Deliver([]byte(msg.Payload), userID)
		}
	}
}

// Close releases the redis client
func (r *Relay) Close() error {
	return r.rdb.Close()
}
