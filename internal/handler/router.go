package handler

import (
	"fmt"

	"github.com/SergeiKhy/shorturls/internal/middleware"
	"github.com/SergeiKhy/shorturls/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps зависимости HTTP слоя. Nil-middleware не подключаются.
type RouterDeps struct {
	URLService     service.URLService
	Health         *HealthHandler
	RateLimiter    *middleware.RateLimiter
	CreateLimiter  *middleware.RateLimiter
	APIKey         gin.HandlerFunc
	AllowedOrigins []string
	// TrustedProxies nil: X-Forwarded-For игнорируется
	TrustedProxies []string
	Logger         *zap.Logger
}

func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()

	// X-Forwarded-For учитывается только от доверенных прокси
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	router.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: deps.AllowedOrigins}),
	)

	// Rate limiting для всех запросов
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	// Health
	if deps.Health != nil {
		router.GET("/health", deps.Health.Health)
		router.GET("/api/health", deps.Health.Health)
		router.GET("/api/health/ready", deps.Health.Ready)
	}

	urlHandler := NewURLHandler(deps.URLService, logger)

	shorturls := router.Group("/shorturls")
	{
		// API Key middleware только для API, редирект остаётся публичным
		if deps.APIKey != nil {
			shorturls.Use(deps.APIKey)
		}

		create := []gin.HandlerFunc{}
		if deps.CreateLimiter != nil {
			create = append(create, deps.CreateLimiter.Middleware())
		}
		create = append(create, urlHandler.CreateShortURL)

		shorturls.POST("", create...)
		shorturls.GET("/:shortCode", urlHandler.GetStats)
	}

	// Редирект (корневой путь) - без API key проверки
	router.GET("/:shortCode", urlHandler.Redirect)

	router.NoRoute(NotFound)

	return router, nil
}
