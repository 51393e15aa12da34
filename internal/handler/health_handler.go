package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/pkg/logger"
)

// HealthChecker is implemented by *database.PostgresDB and *redis.Client
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	serviceName string
	checks      map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler. Nil checkers are skipped.
func NewHealthHandler(serviceName string, checks map[string]HealthChecker) *HealthHandler {
	active := make(map[string]HealthChecker, len(checks))
	for name, check := range checks {
		if check != nil {
			active[name] = check
		}
	}
	return &HealthHandler{serviceName: serviceName, checks: active}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.serviceName,
	})
}

// Ready checks every dependency
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ready", "service": h.serviceName}

	for name, check := range h.checks {
		if err := check.HealthCheck(c.Request.Context()); err != nil {
			logger.Get().Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			body[name] = "disconnected"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "connected"
	}

	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	c.JSON(status, body)
}
