package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Store хранилище счётчиков rate limiter
type Store interface {
	// Allow учитывает запрос по ключу и сообщает, укладывается ли он в лимит
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryStoreConfig конфигурация in-memory хранилища
type MemoryStoreConfig struct {
	Max             int           // Запросов за окно
	Window          time.Duration // Длина окна
	CleanupInterval time.Duration // Интервал очистки неактивных посетителей
}

// visitor представляет rate limiter для одного клиента
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore token bucket на клиента: Max запросов подряд, затем пополнение
// со скоростью Max за Window
type MemoryStore struct {
	config   MemoryStoreConfig
	visitors map[string]*visitor // IP -> visitor
	mu       sync.Mutex
	stop     chan struct{}
	once     sync.Once
}

// NewMemoryStore создаёт хранилище и запускает периодическую очистку
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}

	s := &MemoryStore{
		config:   config,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Close останавливает горутину очистки
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// cleanupLoop периодически удаляет неактивных посетителей
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup(time.Now())
		}
	}
}

// cleanup удаляет посетителей, чей bucket уже полностью восстановился
func (s *MemoryStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.config.Window {
			delete(s.visitors, key)
		}
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	return s.allowAt(key, time.Now()), nil
}

func (s *MemoryStore) allowAt(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.visitors[key]
	if !exists {
		every := s.config.Window / time.Duration(s.config.Max)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), s.config.Max)}
		s.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// Len число отслеживаемых клиентов
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimiterConfig конфигурация rate limiter
type RateLimiterConfig struct {
	Store     Store
	Window    time.Duration // Для заголовка Retry-After
	ErrorCode string
	Message   string
	// KeyFunc ключ клиента, по умолчанию IP
	KeyFunc func(*gin.Context) string
	// Skip исключает запросы из учёта
	Skip   func(*gin.Context) bool
	Logger *zap.Logger
}

// RateLimiter middleware для ограничения числа запросов с одного клиента
type RateLimiter struct {
	config RateLimiterConfig
}

// NewRateLimiter создаёт новый rate limiter middleware
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.ErrorCode == "" {
		config.ErrorCode = CodeRateLimitExceeded
	}
	if config.Message == "" {
		config.Message = "Too many requests from this IP, please try again later."
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &RateLimiter{config: config}
}

// SkipPaths исключает перечисленные пути из учёта
func SkipPaths(paths ...string) func(*gin.Context) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(c *gin.Context) bool {
		_, ok := set[c.Request.URL.Path]
		return ok
	}
}

// Middleware возвращает Gin middleware handler для rate limiting.
// При недоступности хранилища запрос пропускается.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.Skip != nil && rl.config.Skip(c) {
			c.Next()
			return
		}

		key := rl.config.KeyFunc(c)
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := rl.config.Store.Allow(c.Request.Context(), key)
		if err != nil {
			rl.config.Logger.Warn("Rate limit store unavailable",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			rl.config.Logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("code", rl.config.ErrorCode),
				zap.String("path", c.Request.URL.Path),
			)
			if rl.config.Window > 0 {
				c.Header("Retry-After", strconv.Itoa(int(rl.config.Window/time.Second)))
			}
			AbortWithError(c, http.StatusTooManyRequests, rl.config.ErrorCode, rl.config.Message)
			return
		}

		c.Next()
	}
}
