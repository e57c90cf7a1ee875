package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ключи контекста gin
const (
	ContextAPIKeyName      = "api_key_name"
	ContextAPIKeyValidated = "api_key_validated"
)

// APIKeyConfig конфигурация для API key аутентификации
type APIKeyConfig struct {
	// ValidKeys карта валидных API ключей к их описаниям
	ValidKeys map[string]string
	// HeaderName имя заголовка для API ключа (по умолчанию: X-API-Key)
	HeaderName string
	Logger     *zap.Logger
}

// APIKey middleware для аутентификации по API ключу
type APIKey struct {
	config APIKeyConfig
}

// NewAPIKey создаёт новый API key middleware
func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &APIKey{config: config}
}

// Middleware возвращает Gin middleware handler для API key аутентификации.
// Ключ принимается из заголовка или из Authorization: Bearer.
func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(ak.config.HeaderName)

		if apiKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			ak.config.Logger.Warn("Missing API key", zap.String("path", c.Request.URL.Path))
			AbortWithError(c, http.StatusUnauthorized, CodeUnauthorized,
				"API key is required. Pass it in the "+ak.config.HeaderName+" header or as Authorization: Bearer")
			return
		}

		// Валидация API ключа с использованием constant-time comparison
		keyName, valid := ak.lookup(apiKey)
		if !valid {
			ak.config.Logger.Warn("Invalid API key", zap.String("path", c.Request.URL.Path))
			AbortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid API key")
			return
		}

		// Устанавливаем значения в контекст для последующих handlers
		c.Set(ContextAPIKeyValidated, true)
		c.Set(ContextAPIKeyName, keyName)

		c.Next()
	}
}

func (ak *APIKey) lookup(apiKey string) (string, bool) {
	var keyName string
	valid := false
	for validKey, name := range ak.config.ValidKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
			valid = true
			keyName = name
		}
	}
	return keyName, valid
}

// RequireAPIKey хелпер для создания middleware, требующего API ключ для определённых роутов
func RequireAPIKey(validKeys map[string]string, logger *zap.Logger) gin.HandlerFunc {
	ak := NewAPIKey(APIKeyConfig{
		ValidKeys: validKeys,
		Logger:    logger,
	})
	return ak.Middleware()
}

// APIKeyName возвращает описание ключа, которым авторизован запрос
func APIKeyName(c *gin.Context) (string, bool) {
	name, exists := c.Get(ContextAPIKeyName)
	if !exists {
		return "", false
	}
	s, ok := name.(string)
	return s, ok
}
