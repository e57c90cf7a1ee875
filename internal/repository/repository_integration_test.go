//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/SergeiKhy/shorturls/internal/config"
	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/SergeiKhy/shorturls/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres запускает контейнер PostgreSQL и применяет миграции
func setupPostgres(t *testing.T) *repository.PostgresDB {
	t.Helper()
	ctx := t.Context()

	container, err := postgres.Run(ctx,
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
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DBConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "user",
		Password: "password",
		Name:     "shorturls",
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	require.NoError(t, repository.RunMigrations(cfg))
	// Повторный запуск не должен падать
	require.NoError(t, repository.RunMigrations(cfg))

	db, err := repository.NewPostgresDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func newShortURL(code string, now time.Time) *models.ShortURL {
	return &models.ShortURL{
		OriginalURL: "https://example.com/" + code,
		ShortCode:   code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(30 * time.Minute),
		IsActive:    true,
	}
}

func TestURLRepository(t *testing.T) {
	db := setupPostgres(t)
	repo := repository.NewURLRepository(db)
	ctx := t.Context()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("create and get", func(t *testing.T) {
		url := newShortURL("abc123", now)
		require.NoError(t, repo.Create(ctx, url))
		assert.NotZero(t, url.ID)

		got, err := repo.GetByShortCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, url.OriginalURL, got.OriginalURL)
		assert.True(t, got.IsActive)
		assert.Zero(t, got.AccessCount)
		assert.Nil(t, got.LastAccessed)
		assert.True(t, got.ExpiresAt.Equal(url.ExpiresAt))
	})

	t.Run("duplicate code", func(t *testing.T) {
		err := repo.Create(ctx, newShortURL("abc123", now))
		assert.ErrorIs(t, err, repository.ErrCodeExists)
	})

	t.Run("codes are case-sensitive", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newShortURL("ABC123", now)))
	})

	t.Run("code exists", func(t *testing.T) {
		exists, err := repo.CodeExists(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.CodeExists(ctx, "nope42")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("update access info", func(t *testing.T) {
		at := now.Add(time.Minute)
		require.NoError(t, repo.UpdateAccessInfo(ctx, "abc123", at))
		require.NoError(t, repo.UpdateAccessInfo(ctx, "abc123", at.Add(time.Second)))

		got, err := repo.GetByShortCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.AccessCount)
		require.NotNil(t, got.LastAccessed)
		assert.True(t, got.LastAccessed.Equal(at.Add(time.Second)))
	})

	t.Run("deactivate keeps code reserved", func(t *testing.T) {
		require.NoError(t, repo.Deactivate(ctx, "abc123"))

		got, err := repo.GetByShortCode(ctx, "abc123")
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		exists, err := repo.CodeExists(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := repo.GetByShortCode(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrURLNotFound)
		assert.ErrorIs(t, repo.UpdateAccessInfo(ctx, "missing", now), repository.ErrURLNotFound)
		assert.ErrorIs(t, repo.Deactivate(ctx, "missing"), repository.ErrURLNotFound)
	})

	t.Run("parameters are not interpolated", func(t *testing.T) {
		code := "x'; DROP TABLE urls; --"
		_, err := repo.GetByShortCode(ctx, code)
		assert.ErrorIs(t, err, repository.ErrURLNotFound)

		exists, err := repo.CodeExists(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestAnalyticsRepository(t *testing.T) {
	db := setupPostgres(t)
	repo := repository.NewAnalyticsRepository(db)
	ctx := t.Context()
	base := time.Now().UTC().Truncate(time.Microsecond)

	records := []*models.AccessRecord{
		{ShortCode: "stats1", AccessedAt: base, IPAddress: "8.8.8.8", UserAgent: "curl/8.0", Location: "North America"},
		{ShortCode: "stats1", AccessedAt: base.Add(2 * time.Minute), Referrer: "https://news.example.com"},
		{ShortCode: "stats1", AccessedAt: base.Add(time.Minute), IPAddress: "81.2.69.160", Location: "Europe"},
		{ShortCode: "other1", AccessedAt: base},
	}
	for _, rec := range records {
		require.NoError(t, repo.Record(ctx, rec))
		assert.NotZero(t, rec.ID)
	}

	got, err := repo.ListByShortCode(ctx, "stats1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Новые первыми
	assert.True(t, got[0].AccessedAt.Equal(base.Add(2*time.Minute)))
	assert.True(t, got[1].AccessedAt.Equal(base.Add(time.Minute)))
	assert.True(t, got[2].AccessedAt.Equal(base))

	// Пустая локация записывается значением по умолчанию
	assert.Equal(t, "Unknown", got[0].Location)
	assert.Equal(t, "https://news.example.com", got[0].Referrer)
	assert.Empty(t, got[0].IPAddress)

	empty, err := repo.ListByShortCode(ctx, "none00")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisClient(t *testing.T) {
	ctx := t.Context()

	container, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := repository.NewRedisClient(ctx, config.RedisConfig{Host: host, Port: port.Port()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(ctx))
}
