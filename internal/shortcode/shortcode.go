package shortcode

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/SergeiKhy/shorturls/internal/apperr"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// Ошибки генератора
var (
	ErrInvalidCustomCode   = errors.New("invalid custom short code")
	ErrCodeCollision       = errors.New("short code collision")
	ErrGenerationExhausted = errors.New("short code generation exhausted")
)

// Константы генератора
const (
	Alphabet          = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	DefaultLength     = 6
	MinLength         = 3
	MaxLength         = 20
	DefaultMaxRetries = 10
)

var alphanumericRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Зарезервированные слова для кастомных кодов
var reservedWords = []string{"api", "admin", "www", "app", "stats", "analytics", "health"}

// Зарезервированные слова уровня маршрутов: те же плюс префикс API
var routeReservedWords = append(append([]string{}, reservedWords...), "shorturls")

// UniquenessCheck возвращает true, если код свободен
type UniquenessCheck func(ctx context.Context, code string) (bool, error)

// RandomFunc генерирует случайный код заданной длины
type RandomFunc func(length int) (string, error)

// Generator генерирует уникальные короткие коды
type Generator struct {
	length     int
	maxRetries int
	random     RandomFunc
	logger     *zap.Logger
}

// Option настраивает Generator
type Option func(*Generator)

func WithLength(length int) Option {
	return func(g *Generator) { g.length = length }
}

func WithMaxRetries(n int) Option {
	return func(g *Generator) { g.maxRetries = n }
}

// WithRandom подменяет источник случайных кодов
func WithRandom(random RandomFunc) Option {
	return func(g *Generator) { g.random = random }
}

// NewGenerator создаёт генератор с длиной 6 и 10 попытками по умолчанию
func NewGenerator(logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Generator{
		length:     DefaultLength,
		maxRetries: DefaultMaxRetries,
		random:     RandomCode,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// RandomCode генерирует код из алфавита в 62 символа
func RandomCode(length int) (string, error) {
	return gonanoid.Generate(Alphabet, length)
}

// GenerateUniqueCode возвращает кастомный код, если он передан и свободен,
// иначе генерирует случайный код, повторяя попытки при коллизиях.
// Кастомный код никогда не варьируется: занят - ErrCodeCollision.
func (g *Generator) GenerateUniqueCode(ctx context.Context, isUnique UniquenessCheck, customCode string) (string, error) {
	if customCode != "" {
		if err := ValidateCustomCode(customCode); err != nil {
			return "", err
		}

		unique, err := isUnique(ctx, customCode)
		if err != nil {
			return "", fmt.Errorf("failed to check custom code: %w", err)
		}
		if !unique {
			return "", apperr.Conflict(ErrCodeCollision, "Custom short code is already in use")
		}

		g.logger.Info("Using custom short code", zap.String("short_code", customCode))
		return customCode, nil
	}

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		code, err := g.random(g.length)
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}

		unique, err := isUnique(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check short code: %w", err)
		}
		if unique {
			g.logger.Debug("Generated unique short code",
				zap.String("short_code", code),
				zap.Int("attempt", attempt),
			)
			return code, nil
		}

		g.logger.Warn("Short code collision detected",
			zap.String("short_code", code),
			zap.Int("attempt", attempt),
		)
	}

	return "", fmt.Errorf("%w: no unique code after %d attempts", ErrGenerationExhausted, g.maxRetries)
}

// ValidateCustomCode проверяет формат кастомного кода
func ValidateCustomCode(code string) error {
	if code == "" {
		return apperr.Validation(ErrInvalidCustomCode, "Short code cannot be empty")
	}

	if len(code) < MinLength {
		return apperr.Validation(ErrInvalidCustomCode, fmt.Sprintf("Short code must be at least %d characters long", MinLength))
	}

	if len(code) > MaxLength {
		return apperr.Validation(ErrInvalidCustomCode, fmt.Sprintf("Short code cannot exceed %d characters", MaxLength))
	}

	if !alphanumericRe.MatchString(code) {
		return apperr.Validation(ErrInvalidCustomCode, "Short code can only contain alphanumeric characters")
	}

	if IsReserved(code) {
		return apperr.Validation(ErrInvalidCustomCode, "Short code cannot be a reserved word")
	}

	return nil
}

// IsReserved проверяет код по списку зарезервированных слов (без учёта регистра)
func IsReserved(code string) bool {
	return contains(reservedWords, strings.ToLower(code))
}

// IsReservedForRoutes то же, что IsReserved, плюс слова, занятые маршрутами API
func IsReservedForRoutes(code string) bool {
	return contains(routeReservedWords, strings.ToLower(code))
}

func contains(words []string, s string) bool {
	for _, w := range words {
		if w == s {
			return true
		}
	}
	return false
}
