package middleware

import (
	"github.com/gin-gonic/gin"
)

// Коды ошибок, которые формирует middleware
const (
	CodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	CodeCreateRateLimitExceeded = "CREATE_RATE_LIMIT_EXCEEDED"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeInternalServerError     = "INTERNAL_SERVER_ERROR"
)

// ErrorBody единый формат ошибки API
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AbortWithError прерывает цепочку и отвечает ошибкой в едином формате
func AbortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Success: false,
		Error:   code,
		Message: message,
	})
}
