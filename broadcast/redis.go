package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisChannel publishes signals over Redis Pub/Sub.
type RedisChannel struct {
	redis  redis.UniversalClient
	prefix string
	keys   Keys

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
}

// NewRedisChannel returns a RedisChannel. Channel names are prefix:key.
func NewRedisChannel(client redis.UniversalClient, prefix string, keys Keys) *RedisChannel {
	return &RedisChannel{redis: client, prefix: prefix, keys: keys.normalized()}
}

func (c *RedisChannel) channel(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Publish sends sig on the channel for its kind.
func (c *RedisChannel) Publish(ctx context.Context, sig Signal) error {
	key, ok := c.keys.forKind(sig.Kind)
	if !ok {
		return errors.New("unknown signal kind")
	}
	payload, err := encodeSignal(sig)
	if err != nil {
		return err
	}
	if err := c.redis.Publish(ctx, c.channel(key), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", sig.Kind, err)
	}
	return nil
}

// Subscribe listens on both channels. It returns once Redis confirmed the
// subscription, so signals published afterwards are not missed.
func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan Signal, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	loginCh, logoutCh := c.channel(c.keys.Login), c.channel(c.keys.Logout)
	ps := c.redis.Subscribe(ctx, loginCh, logoutCh)
	for i := 0; i < 2; i++ {
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("subscribe: %w", err)
		}
	}

	c.mu.Lock()
	c.subs = append(c.subs, ps)
	c.mu.Unlock()

	out := make(chan Signal, subscriberBuffer)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				kind := KindLogin
				if msg.Channel == logoutCh {
					kind = KindLogout
				}
				sig, ok := decodeSignal([]byte(msg.Payload), kind)
				if !ok {
					continue
				}
				select {
				case out <- sig:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close ends every subscription. The Redis client is not closed.
func (c *RedisChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, ps := range c.subs {
		// A subscription whose context ended is already closed.
		_ = ps.Close()
	}
	c.subs = nil
	return nil
}
