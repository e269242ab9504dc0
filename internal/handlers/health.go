package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stwalsh4118/streettrees/internal/middleware"
	"github.com/stwalsh4118/streettrees/internal/services"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "1.0.0"
	// HealthCheckTimeout is the timeout for database health checks
	HealthCheckTimeout = 2 * time.Second
)

// Pinger checks a backing store. *database.Database satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check, readiness and info endpoints.
type HealthHandler struct {
	gate      *services.StatsGate
	db        Pinger
	clock     clockwork.Clock
	startTime time.Time
	env       string
	source    string
}

// NewHealthHandler creates a HealthHandler. db may be nil when trees are not
// read from a database.
func NewHealthHandler(gate *services.StatsGate, db Pinger, clock clockwork.Clock, env, source string) *HealthHandler {
	return &HealthHandler{
		gate:      gate,
		db:        db,
		clock:     clock,
		startTime: clock.Now(),
		env:       env,
		source:    source,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status   string `json:"status"`
	Catalog  string `json:"catalog"`
	Database string `json:"database"`
	Trees    int    `json:"trees"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Source      string `json:"source"`
	Uptime      string `json:"uptime"`
	Trees       int    `json:"trees"`
}

// Health handles GET /health. It is a liveness check and always returns 200.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// Ready handles GET /health/ready.
// It returns 200 once the catalog is loaded and, when configured, the
// database answers a ping. Otherwise it returns 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := ReadyResponse{
		Status:   "ready",
		Catalog:  "loaded",
		Database: "not_configured",
	}
	status := http.StatusOK

	if svc, ok := h.gate.Get(); ok {
		resp.Trees = svc.CatalogSize(c.Request.Context())
	} else {
		resp.Catalog = "loading"
		status = http.StatusServiceUnavailable
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
		defer cancel()

		resp.Database = "connected"
		if err := h.db.Ping(ctx); err != nil {
			if log := middleware.GetLogger(c); log != nil {
				log.Error("Database health check failed", err, map[string]interface{}{
					"timeout": HealthCheckTimeout.String(),
				})
			}
			resp.Database = "disconnected"
			status = http.StatusServiceUnavailable
		}
	}

	if status != http.StatusOK {
		resp.Status = "not_ready"
	}
	c.JSON(status, resp)
}

// Info handles GET /api/v1/info.
// Returns API metadata including version, environment, source and uptime.
func (h *HealthHandler) Info(c *gin.Context) {
	resp := InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Source:      h.source,
		Uptime:      formatUptime(h.clock.Since(h.startTime)),
	}
	if svc, ok := h.gate.Get(); ok {
		resp.Trees = svc.CatalogSize(c.Request.Context())
	}
	c.JSON(http.StatusOK, resp)
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
