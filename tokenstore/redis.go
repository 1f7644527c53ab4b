package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const saveTokensScript = `
if ARGV[1] == "" then
  redis.call("DEL", KEYS[1])
else
  redis.call("SET", KEYS[1], ARGV[1])
end
if ARGV[2] == "" then
  redis.call("DEL", KEYS[2])
else
  redis.call("SET", KEYS[2], ARGV[2])
end
if tonumber(ARGV[3]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
  redis.call("PEXPIRE", KEYS[2], ARGV[3])
end
return 1
`

var saveTokensLua = redis.NewScript(saveTokensScript)

// RedisStore keeps the pair under two Redis keys so several instances of
// the same client identity can share one session.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	keys   Keys
	ttl    int64
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL expires both keys ttlMillis after every save. Zero keeps them
// until cleared.
func WithRedisTTL(ttlMillis int64) RedisOption {
	return func(s *RedisStore) {
		if ttlMillis > 0 {
			s.ttl = ttlMillis
		}
	}
}

// NewRedisStore returns a RedisStore namespaced by prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, keys Keys, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		redis:  client,
		prefix: prefix,
		keys:   keys.normalized(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

// Load reads both keys with one MGET.
func (s *RedisStore) Load(ctx context.Context) (Tokens, error) {
	vals, err := s.redis.MGet(ctx, s.key(s.keys.Access), s.key(s.keys.Refresh)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var out Tokens
	if len(vals) == 2 {
		out.AccessToken, _ = vals[0].(string)
		out.RefreshToken, _ = vals[1].(string)
	}
	return out, nil
}

// Save writes both keys atomically.
func (s *RedisStore) Save(ctx context.Context, tokens Tokens) error {
	err := saveTokensLua.Run(ctx, s.redis,
		[]string{s.key(s.keys.Access), s.key(s.keys.Refresh)},
		tokens.AccessToken, tokens.RefreshToken, s.ttl,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear deletes both keys in one command.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key(s.keys.Access), s.key(s.keys.Refresh)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
