package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/shorturls/internal/config"
	"github.com/SergeiKhy/shorturls/internal/handler"
	"github.com/SergeiKhy/shorturls/internal/logger"
	"github.com/SergeiKhy/shorturls/internal/middleware"
	"github.com/SergeiKhy/shorturls/internal/repository"
	"github.com/SergeiKhy/shorturls/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Инициализация логгера
	baseLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer baseLogger.Sync()

	appLogger := baseLogger
	var sink *logger.RemoteSink
	if cfg.Log.RemoteURL != "" {
		// Ошибки отправки пишутся только в локальный логгер, без рекурсии
		sink = logger.NewRemoteSink(logger.RemoteConfig{
			URL:   cfg.Log.RemoteURL,
			Token: cfg.Log.RemoteToken,
		}, baseLogger.Named("logsink"))
		sink.Start()
		appLogger = logger.WithSink(baseLogger, sink, zapcore.InfoLevel)
		appLogger.Info("Remote log sink enabled", zap.String("url", cfg.Log.RemoteURL))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Миграции
	if cfg.DB.Migrate {
		if err := repository.RunMigrations(cfg.DB); err != nil {
			appLogger.Fatal("Failed to run migrations", zap.Error(err))
		}
		appLogger.Info("Migrations applied")
	}

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(ctx, cfg.DB)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	appLogger.Info("Connected to PostgreSQL")

	checkers := map[string]handler.Checker{"postgres": db}

	// Подключение к Redis (опционально)
	var redisDB *repository.RedisDB
	if cfg.Redis.Enabled() {
		redisDB, err = repository.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		checkers["redis"] = redisDB
		appLogger.Info("Connected to Redis")
	}

	// Хранилища rate limiter
	var globalStore, createStore middleware.Store
	var memoryStores []*middleware.MemoryStore
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		globalStore = middleware.NewRedisStore(redisDB.Client, "global", cfg.RateLimit.Max, cfg.RateLimit.Window)
		createStore = middleware.NewRedisStore(redisDB.Client, "create", cfg.RateLimit.CreateMax, cfg.RateLimit.CreateWindow)
	default:
		global := middleware.NewMemoryStore(middleware.MemoryStoreConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		})
		create := middleware.NewMemoryStore(middleware.MemoryStoreConfig{
			Max:    cfg.RateLimit.CreateMax,
			Window: cfg.RateLimit.CreateWindow,
		})
		memoryStores = append(memoryStores, global, create)
		globalStore, createStore = global, create
	}
	appLogger.Info("Rate limiting configured", zap.String("backend", cfg.RateLimit.Backend))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Store:  globalStore,
		Window: cfg.RateLimit.Window,
		Skip:   middleware.SkipPaths("/health", "/api/health", "/api/health/ready"),
		Logger: appLogger.Named("ratelimit"),
	})
	createLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Store:     createStore,
		Window:    cfg.RateLimit.CreateWindow,
		ErrorCode: middleware.CodeCreateRateLimitExceeded,
		Message:   "Too many URL creation requests, please try again later.",
		Logger:    appLogger.Named("ratelimit"),
	})

	var apiKeyMiddleware gin.HandlerFunc
	if len(cfg.Auth.APIKeys) > 0 {
		apiKeyMiddleware = middleware.RequireAPIKey(cfg.Auth.APIKeys, appLogger.Named("auth"))
		appLogger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	}

	// Инициализация репозиториев и сервиса
	urlRepo := repository.NewURLRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	urlService := service.NewURLService(urlRepo, analyticsRepo, cfg.App.BaseURL, appLogger.Named("service"))

	// Настройка роутера
	router, err := handler.NewRouter(handler.RouterDeps{
		URLService:     urlService,
		Health:         handler.NewHealthHandler(cfg.App.Version, checkers, appLogger.Named("health")),
		RateLimiter:    rateLimiter,
		CreateLimiter:  createLimiter,
		APIKey:         apiKeyMiddleware,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.App.TrustedProxies,
		Logger:         appLogger.Named("api"),
	})
	if err != nil {
		appLogger.Fatal("Failed to build router", zap.Error(err))
	}

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful Shutdown по SIGINT/SIGTERM
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		appLogger.Info("Server starting",
			zap.String("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
			zap.String("base_url", cfg.App.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error occurred: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		appLogger.Info("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", zap.Error(err))
	}

	if sink != nil {
		sink.Stop()
	}
	for _, store := range memoryStores {
		store.Close()
	}
	db.Close()
	if redisDB != nil {
		if err := redisDB.Close(); err != nil {
			baseLogger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}

	baseLogger.Info("Server exited")
}
