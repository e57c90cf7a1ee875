//go:build integration

package middleware_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/SergeiKhy/shorturls/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := t.Context()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(ctx).Err())
	return client
}

// TestRedisStore_FixedWindow счётчик общий и сбрасывается по истечении окна
func TestRedisStore_FixedWindow(t *testing.T) {
	client := setupRedis(t)
	ctx := t.Context()

	store := middleware.NewRedisStore(client, "global", 3, time.Second)

	for i := 0; i < 3; i++ {
		ok, err := store.Allow(ctx, "8.8.8.8")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := store.Allow(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.False(t, ok)

	// Другой клиент и другой лимитер считаются отдельно
	ok, _ = store.Allow(ctx, "1.1.1.1")
	assert.True(t, ok)
	ok, _ = middleware.NewRedisStore(client, "create", 3, time.Second).Allow(ctx, "8.8.8.8")
	assert.True(t, ok)

	ttl, err := client.TTL(ctx, "ratelimit:global:8.8.8.8").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	time.Sleep(1100 * time.Millisecond)

	ok, err = store.Allow(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_Middleware(t *testing.T) {
	client := setupRedis(t)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Store: middleware.NewRedisStore(client, "global", 1, time.Minute),
	})

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", okHandler)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/test", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, http.MethodGet, "/test", nil).Code)
}
