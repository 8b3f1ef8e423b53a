package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// ReadinessChecker checks one backing dependency.
type ReadinessChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	checkers  []ReadinessChecker
	logger    *zap.Logger
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(logger *zap.Logger, checkers ...ReadinessChecker) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{startedAt: time.Now().UTC(), checkers: checkers, logger: logger}
}

// Status reports liveness.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
	})
}

// Ready reports whether every dependency answers.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", StartedAt: h.startedAt, Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK
	for _, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("dependency", checker.Name()), zap.Error(err))
			resp.Checks[checker.Name()] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[checker.Name()] = "ok"
	}

	c.JSON(status, resp)
}
