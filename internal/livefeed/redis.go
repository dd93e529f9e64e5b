package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "livefeed:"

// RedisRegistry shares the feed across instances through Redis pub/sub.
type RedisRegistry struct {
	client *redis.Client
	logger *zap.Logger
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedisRegistry wraps a connected client.
func NewRedisRegistry(client *redis.Client, logger *zap.Logger) *RedisRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRegistry{client: client, logger: logger}
}

func channelFor(ownerID string) string {
	return channelPrefix + ownerID
}

// Publish sends msg on the owner's channel.
func (r *RedisRegistry) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("livefeed: marshal message: %w", err)
	}
	if err := r.client.Publish(ctx, channelFor(msg.OwnerID), payload).Err(); err != nil {
		return fmt.Errorf("livefeed: publish: %w", err)
	}
	return nil
}

// Subscribe listens on the owner's channel until ctx ends or Close is called.
func (r *RedisRegistry) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channelFor(ownerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("livefeed: subscribe: %w", err)
	}

	out := make(chan Message, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				closeFn()
				return
			case <-done:
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					r.logger.Warn("livefeed: drop malformed message", zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				default:
				}
			}
		}
	}()
	return &Subscription{C: out, close: closeFn}, nil
}
