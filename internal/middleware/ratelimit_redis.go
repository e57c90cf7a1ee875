package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore фиксированное окно на Redis: счётчики общие для всех инстансов
type RedisStore struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewRedisStore создаёт хранилище; prefix разделяет разные лимитеры
func NewRedisStore(client *redis.Client, prefix string, max int, window time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		max:    max,
		window: window,
	}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	k := s.key(key)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		// TTL выставляется только при создании ключа
		pipe.ExpireNX(ctx, k, s.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return incr.Val() <= int64(s.max), nil
}

func (s *RedisStore) key(key string) string {
	return "ratelimit:" + s.prefix + ":" + key
}
