package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Checker зависимость, доступность которой проверяется при готовности
type Checker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	version  string
	checkers map[string]Checker
	logger   *zap.Logger
}

func NewHealthHandler(version string, checkers map[string]Checker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		version:  version,
		checkers: checkers,
		logger:   logger,
	}
}

type HealthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type ReadinessResponse struct {
	Success bool              `json:"success"`
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
}

// Health godoc
// @Summary Health check
// @Description Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /api/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Success:   true,
		Message:   "URL Shortener service is healthy",
		Timestamp: models.FormatTime(time.Now()),
		Version:   h.version,
	})
}

// Ready godoc
// @Summary Readiness check
// @Description Checks PostgreSQL and Redis availability
// @Tags health
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /api/health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{
		Success: true,
		Status:  "ready",
		Checks:  make(map[string]string, len(h.checkers)),
	}

	for name, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unavailable"
			resp.Success = false
			resp.Status = "not_ready"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
