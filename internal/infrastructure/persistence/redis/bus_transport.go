package redis

import (
	"context"

	"github.com/reefacademy/progression-hub/internal/infrastructure/messaging"
)

// BusTransport adapts the Cache client to the messaging.RedisClient
// interface, letting RedisEventBus ride on the shared connection pool.
type BusTransport struct {
	cache *Cache
}

// NewBusTransport creates a pub/sub transport backed by the cache client.
func NewBusTransport(cache *Cache) *BusTransport {
	return &BusTransport{cache: cache}
}

var _ messaging.RedisClient = (*BusTransport)(nil)

// Publish publishes a raw message to a channel.
func (t *BusTransport) Publish(ctx context.Context, channel string, message interface{}) error {
	return t.cache.Client().Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to channels and pumps messages into a Go channel.
// The pump goroutine exits when ctx is cancelled.
func (t *BusTransport) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := t.cache.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the underlying client is owned by the Cache.
func (t *BusTransport) Close() error {
	return nil
}
