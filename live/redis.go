package live

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultChannel is the redis channel topics are relayed on
const DefaultChannel = "storefront:live"

// RedisBackplane relays topics between instances over redis pub/sub
type RedisBackplane struct {
	client  *redis.Client
	channel string
}

// NewRedisBackplane wraps an existing client
func NewRedisBackplane(client *redis.Client, channel string) *RedisBackplane {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBackplane{client: client, channel: channel}
}

// Publish sends topic to every subscribed instance, this one included
func (b *RedisBackplane) Publish(ctx context.Context, topic Topic) error {
	return b.client.Publish(ctx, b.channel, string(topic)).Err()
}

// Subscribe returns the relayed topics until ctx is done
func (b *RedisBackplane) Subscribe(ctx context.Context) (<-chan Topic, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Topic)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					zap.S().Warnw("redis subscription closed", "channel", b.channel)
					return
				}
				select {
				case out <- Topic(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
