package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/SergeiKhy/shorturls/internal/apperr"
	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/SergeiKhy/shorturls/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type URLHandler struct {
	service service.URLService
	logger  *zap.Logger
}

func NewURLHandler(service service.URLService, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		service: service,
		logger:  logger,
	}
}

type CreateURLRequest struct {
	URL       string  `json:"url" binding:"max=2048" example:"https://example.com/very/long/path"`
	ShortCode *string `json:"shortcode,omitempty" binding:"omitnil,min=3,max=20,alphanum,notreserved" example:"promo2025"`
	Validity  *int    `json:"validity,omitempty" binding:"omitnil,min=1,max=525600" example:"30"`
}

// CreateShortURL godoc
// @Summary Create a short URL
// @Description Create a new shortened URL with an optional custom short code and validity in minutes
// @Tags shorturls
// @Accept json
// @Produce json
// @Param request body CreateURLRequest true "Short URL creation request"
// @Success 201 {object} models.CreateURLResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /shorturls [post]
func (h *URLHandler) CreateShortURL(c *gin.Context) {
	h.logger.Info("Received URL shortening request", zap.String("ip", c.ClientIP()))

	var req CreateURLRequest
	err := c.ShouldBindJSON(&req)
	if errors.Is(err, io.EOF) {
		// Пустое тело: отвечаем как на отсутствующий URL
		err = nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "url" {
		h.logger.Warn("URL is not a string", zap.String("type", typeErr.Value))
		respondError(c, http.StatusBadRequest, CodeValidationError, "URL is required and must be a string")
		return
	}

	var verrs validator.ValidationErrors
	if err != nil && !errors.As(err, &verrs) {
		h.logger.Warn("Invalid request body", zap.Error(err))
		respondError(c, http.StatusBadRequest, CodeValidationError, "Invalid JSON request body")
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		h.logger.Warn("URL shortening request missing URL parameter")
		respondError(c, http.StatusBadRequest, CodeMissingURL, "URL is required")
		return
	}

	if len(verrs) > 0 {
		message := validationMessage(verrs)
		h.logger.Warn("Validation failed", zap.String("errors", message))
		respondError(c, http.StatusBadRequest, CodeValidationError, message)
		return
	}

	result, err := h.service.CreateShortURL(c.Request.Context(), &models.CreateURLInput{
		URL:       req.URL,
		ShortCode: req.ShortCode,
		Validity:  req.Validity,
	})
	if err != nil {
		h.fail(c, err, CodeShorteningFailed, "Failed to create short URL")
		return
	}

	h.logger.Info("URL shortened successfully", zap.String("short_link", result.ShortLink))
	c.JSON(http.StatusCreated, result)
}

// Redirect godoc
// @Summary Redirect to original URL
// @Description Redirect to the original URL by short code and record the access
// @Tags shorturls
// @Produce json
// @Param shortCode path string true "Short code"
// @Success 302 {object} nil
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /{shortCode} [get]
func (h *URLHandler) Redirect(c *gin.Context) {
	code := c.Param("shortCode")
	if code == "" {
		respondError(c, http.StatusBadRequest, CodeMissingShortCode, "Short code is required")
		return
	}

	client := &models.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  referrer(c),
	}

	originalURL, err := h.service.GetOriginalURL(c.Request.Context(), code, client)
	if err != nil {
		h.fail(c, err, CodeRedirectFailed, "Failed to redirect")
		return
	}

	h.logger.Info("Redirecting", zap.String("short_code", code), zap.String("url", originalURL))
	c.Redirect(http.StatusFound, originalURL)
}

// GetStats godoc
// @Summary Get short URL statistics
// @Description Get click statistics for a short URL, most recent clicks first
// @Tags shorturls
// @Produce json
// @Param shortCode path string true "Short code"
// @Success 200 {object} models.URLStats
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /shorturls/{shortCode} [get]
func (h *URLHandler) GetStats(c *gin.Context) {
	code := c.Param("shortCode")
	if code == "" {
		respondError(c, http.StatusBadRequest, CodeMissingShortCode, "Short code is required")
		return
	}

	stats, err := h.service.GetURLStats(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err, CodeStatsRetrievalFailed, "Failed to retrieve statistics")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// fail логирует ошибку и отвечает клиенту. Текст внутренних ошибок клиенту не отдаётся.
func (h *URLHandler) fail(c *gin.Context, err error, code, fallback string) {
	status := statusFor(err)

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Warn("Request rejected", fields...)
	}

	_ = c.Error(err)
	respondError(c, status, code, apperr.MessageOf(err, fallback))
}

func referrer(c *gin.Context) string {
	if ref := c.GetHeader("Referer"); ref != "" {
		return ref
	}
	return c.GetHeader("Referrer")
}
