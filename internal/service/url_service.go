package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shorturls/internal/apperr"
	"github.com/SergeiKhy/shorturls/internal/geo"
	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/SergeiKhy/shorturls/internal/repository"
	"github.com/SergeiKhy/shorturls/internal/shortcode"
	"github.com/SergeiKhy/shorturls/internal/validation"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrNotFound = errors.New("short url not found")
	ErrInactive = errors.New("short url is inactive")
	ErrExpired  = errors.New("short url has expired")
)

// Таймаут побочных операций, которые не должны зависеть от отмены запроса
const bestEffortTimeout = 5 * time.Second

// URLService интерфейс сервиса коротких ссылок
type URLService interface {
	CreateShortURL(ctx context.Context, input *models.CreateURLInput) (*models.CreateURLResult, error)
	GetOriginalURL(ctx context.Context, code string, client *models.ClientInfo) (string, error)
	GetURLStats(ctx context.Context, code string) (*models.URLStats, error)
}

// urlService реализация сервиса коротких ссылок
type urlService struct {
	urlRepo       repository.URLRepository
	analyticsRepo repository.AnalyticsRepository
	generator     *shortcode.Generator
	baseURL       string
	now           func() time.Time
	logger        *zap.Logger
}

// Option настраивает сервис
type Option func(*urlService)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *urlService) { s.now = now }
}

// WithGenerator подменяет генератор коротких кодов
func WithGenerator(g *shortcode.Generator) Option {
	return func(s *urlService) { s.generator = g }
}

// NewURLService создаёт новый экземпляр сервиса
func NewURLService(
	urlRepo repository.URLRepository,
	analyticsRepo repository.AnalyticsRepository,
	baseURL string,
	logger *zap.Logger,
	opts ...Option,
) URLService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &urlService{
		urlRepo:       urlRepo,
		analyticsRepo: analyticsRepo,
		baseURL:       baseURL,
		now:           time.Now,
		logger:        logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.generator == nil {
		s.generator = shortcode.NewGenerator(logger.Named("shortcode"))
	}

	return s
}

// CreateShortURL создаёт новую короткую ссылку
func (s *urlService) CreateShortURL(ctx context.Context, input *models.CreateURLInput) (*models.CreateURLResult, error) {
	s.logger.Info("Creating short URL", zap.String("url", input.URL))

	originalURL, err := validation.ValidateURL(input.URL)
	if err != nil {
		return nil, err
	}

	validMinutes, err := validation.ValidateValidity(input.Validity)
	if err != nil {
		return nil, err
	}

	var customCode string
	if input.ShortCode != nil {
		customCode = *input.ShortCode
		// Пустой кастомный код это ошибка, а не запрос случайного
		if customCode == "" {
			return nil, shortcode.ValidateCustomCode(customCode)
		}
	}

	code, err := s.generator.GenerateUniqueCode(ctx, s.isCodeUnique, customCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	url := &models.ShortURL{
		OriginalURL: originalURL,
		ShortCode:   code,
		CreatedAt:   now,
		ExpiresAt:   validation.CalculateExpiry(validMinutes, now),
		IsActive:    true,
		AccessCount: 0,
	}

	if err := s.urlRepo.Create(ctx, url); err != nil {
		// Гонка между проверкой уникальности и вставкой
		if errors.Is(err, repository.ErrCodeExists) {
			return nil, apperr.Conflict(shortcode.ErrCodeCollision, "Short code is already in use")
		}
		return nil, fmt.Errorf("failed to save short url: %w", err)
	}

	s.logger.Info("Short URL created",
		zap.String("short_code", code),
		zap.Time("expires_at", url.ExpiresAt),
	)

	return &models.CreateURLResult{
		ShortLink: s.baseURL + "/" + code,
		Expiry:    models.FormatTime(url.ExpiresAt),
	}, nil
}

// GetOriginalURL возвращает исходный URL и учитывает переход.
// Истёкшая ссылка деактивируется при обращении и не попадает в аналитику.
func (s *urlService) GetOriginalURL(ctx context.Context, code string, client *models.ClientInfo) (string, error) {
	url, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}

	if !url.IsActive {
		s.logger.Info("Inactive short URL accessed", zap.String("short_code", code))
		return "", apperr.Gone(ErrInactive, "Short URL is inactive")
	}

	now := s.now()
	if validation.IsExpired(url.ExpiresAt, now) {
		s.logger.Info("Expired short URL accessed", zap.String("short_code", code))
		s.bestEffort(ctx, "deactivate expired url", code, func(ctx context.Context) error {
			return s.urlRepo.Deactivate(ctx, code)
		})
		return "", apperr.Gone(ErrExpired, "Short URL has expired")
	}

	s.bestEffort(ctx, "record analytics", code, func(ctx context.Context) error {
		return s.analyticsRepo.Record(ctx, newAccessRecord(code, now, client))
	})

	// Счётчик переходов обязан обновиться
	if err := s.urlRepo.UpdateAccessInfo(ctx, code, now); err != nil {
		return "", fmt.Errorf("failed to update access info: %w", err)
	}

	s.logger.Debug("Redirecting", zap.String("short_code", code))

	return url.OriginalURL, nil
}

// GetURLStats возвращает статистику независимо от активности ссылки
func (s *urlService) GetURLStats(ctx context.Context, code string) (*models.URLStats, error) {
	s.logger.Info("Retrieving stats", zap.String("short_code", code))

	url, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	records, err := s.analyticsRepo.ListByShortCode(ctx, code)
	if err != nil {
		s.logger.Error("Failed to list click data",
			zap.String("short_code", code),
			zap.Error(err),
		)
		records = nil
	}

	clickData := make([]models.ClickData, 0, len(records))
	for _, rec := range records {
		clickData = append(clickData, models.NewClickData(rec))
	}

	// totalClicks берётся из счётчика, а не из числа записей аналитики
	return &models.URLStats{
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		CreatedAt:   models.FormatTime(url.CreatedAt),
		ExpiresAt:   models.FormatTime(url.ExpiresAt),
		TotalClicks: url.AccessCount,
		ClickData:   clickData,
	}, nil
}

func (s *urlService) lookup(ctx context.Context, code string) (*models.ShortURL, error) {
	url, err := s.urlRepo.GetByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrURLNotFound) {
			return nil, apperr.NotFound(ErrNotFound, "Short URL not found")
		}
		return nil, fmt.Errorf("failed to find short url: %w", err)
	}
	return url, nil
}

func (s *urlService) isCodeUnique(ctx context.Context, code string) (bool, error) {
	exists, err := s.urlRepo.CodeExists(ctx, code)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// bestEffort выполняет побочную операцию, ошибка которой логируется и не возвращается
func (s *urlService) bestEffort(ctx context.Context, op, code string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bestEffortTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.logger.Warn("Best-effort operation failed",
			zap.String("op", op),
			zap.String("short_code", code),
			zap.Error(err),
		)
	}
}

func newAccessRecord(code string, at time.Time, client *models.ClientInfo) *models.AccessRecord {
	rec := &models.AccessRecord{
		ShortCode:  code,
		AccessedAt: at,
	}

	if client != nil {
		rec.IPAddress = client.IP
		rec.UserAgent = client.UserAgent
		rec.Referrer = client.Referrer
	}
	rec.Location = geo.Lookup(rec.IPAddress)

	return rec
}
