package realtime

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisPubSub implements PubSub over Redis PUBLISH/SUBSCRIBE.
type RedisPubSub struct {
	Client *redis.Client
}

var _ PubSub = (*RedisPubSub)(nil)

// NewRedisPubSub connects to url (redis://[:password@]host:port/db) and
// verifies the connection with PING.
func NewRedisPubSub(ctx context.Context, url string) (*RedisPubSub, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("realtime: redis ping: %w", err)
	}
	return &RedisPubSub{Client: c}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.Client.Publish(ctx, channel, payload).Err()
}

func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error) {
	sub := r.Client.Subscribe(ctx, channel)
	// wait for the subscription confirmation so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("realtime: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte)
	in := sub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}

// Close releases the client.
func (r *RedisPubSub) Close() error { return r.Client.Close() }
