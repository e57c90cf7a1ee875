//go:build integration

package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/SergeiKhy/shorturls/internal/config"
	"github.com/SergeiKhy/shorturls/internal/handler"
	"github.com/SergeiKhy/shorturls/internal/middleware"
	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/SergeiKhy/shorturls/internal/repository"
	"github.com/SergeiKhy/shorturls/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupIntegrationEnv поднимает PostgreSQL и Redis и собирает роутер на реальных репозиториях
func setupIntegrationEnv(t *testing.T) *TestEnv {
	t.Helper()
	ctx := t.Context()

	// Запускаем контейнер PostgreSQL
	dbContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("shorturls"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbContainer.Terminate(context.Background()) })

	// Запускаем контейнер Redis
	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisContainer.Terminate(context.Background()) })

	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	dbCfg := config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "shorturls",
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}
	require.NoError(t, repository.RunMigrations(dbCfg))

	db, err := repository.NewPostgresDB(ctx, dbCfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	rdb, err := repository.NewRedisClient(ctx, config.RedisConfig{Host: redisHost, Port: redisPort.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	logger := zap.NewNop()
	svc := service.NewURLService(
		repository.NewURLRepository(db),
		repository.NewAnalyticsRepository(db),
		baseURL,
		logger,
	)

	router, err := handler.NewRouter(handler.RouterDeps{
		URLService: svc,
		Health: handler.NewHealthHandler("1.0.0", map[string]handler.Checker{
			"postgres": db,
			"redis":    rdb,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Store:  middleware.NewRedisStore(rdb.Client, "global", 100, time.Minute),
			Window: time.Minute,
			Skip:   middleware.SkipPaths("/health", "/api/health"),
		}),
		CreateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Store:     middleware.NewRedisStore(rdb.Client, "create", 3, time.Minute),
			Window:    time.Minute,
			ErrorCode: middleware.CodeCreateRateLimitExceeded,
		}),
		Logger: logger,
	})
	require.NoError(t, err)

	return &TestEnv{router: router}
}

func TestIntegration_FullFlow(t *testing.T) {
	env := setupIntegrationEnv(t)

	// Создание
	result := env.create(t, map[string]any{"url": "example.com/docs", "shortcode": "docs42", "validity": 10})
	assert.Equal(t, baseURL+"/docs42", result.ShortLink)

	// Повторный код
	w := env.do(http.MethodPost, "/shorturls", map[string]any{"url": "https://other.example.com", "shortcode": "docs42"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Редиректы
	for i := 0; i < 3; i++ {
		w = env.do(http.MethodGet, "/docs42", nil, map[string]string{"User-Agent": "integration"})
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com/docs", w.Header().Get("Location"))
	}

	// Статистика
	w = env.do(http.MethodGet, "/shorturls/docs42", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.URLStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(3), stats.TotalClicks)
	require.Len(t, stats.ClickData, 3)
	assert.Equal(t, "integration", stats.ClickData[0].UserAgent)

	// Лимит на создание (3 за окно, одна попытка уже потрачена на конфликт)
	env.create(t, map[string]any{"url": "https://example.com/a"})
	w = env.do(http.MethodPost, "/shorturls", map[string]any{"url": "https://example.com/b"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Готовность
	w = env.do(http.MethodGet, "/api/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
