package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    map[string]ReadinessCheck
	timeout   time.Duration
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, checks map[string]ReadinessCheck) *SystemHandler {
	if checks == nil {
		checks = map[string]ReadinessCheck{}
	}
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    checks,
		timeout:   2 * time.Second,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// ReadinessResponse lists the state of each dependency
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   string            `json:"time"`
}

// Health answers as long as the process serves requests
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)})
}

// Ready runs every readiness check and answers 503 if any fails
// GET /ready
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.FromContext(ctx).Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = "error"
			resp.Status = "not_ready"
			continue
		}
		resp.Checks[name] = "ok"
	}
	resp.Time = time.Now().Format(time.RFC3339)

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// GetSystemInfo returns the service name, version and uptime
// GET /api/v1/system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}
