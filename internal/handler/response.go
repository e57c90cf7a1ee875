package handler

import (
	"net/http"

	"github.com/SergeiKhy/shorturls/internal/apperr"
	"github.com/SergeiKhy/shorturls/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Коды ошибок API
const (
	CodeMissingURL           = "MISSING_URL"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeShorteningFailed     = "SHORTENING_FAILED"
	CodeMissingShortCode     = "MISSING_SHORT_CODE"
	CodeRedirectFailed       = "REDIRECT_FAILED"
	CodeStatsRetrievalFailed = "STATS_RETRIEVAL_FAILED"
	CodeNotFound             = "NOT_FOUND"
)

// ErrorResponse единый формат ошибки API
type ErrorResponse = middleware.ErrorBody

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   code,
		Message: message,
	})
}

// statusFor сопоставляет вид ошибки и HTTP статус
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindGone:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// NotFound обработчик неизвестных маршрутов
func NotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, CodeNotFound, "Route not found")
}
