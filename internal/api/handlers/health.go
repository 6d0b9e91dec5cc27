package handlers

import (
	"net/http"
	"time"

	"github.com/arnav/capsera/internal/repository"
	"github.com/arnav/capsera/internal/service"
	"github.com/arnav/capsera/internal/storage"
	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and dependency health endpoints.
type HealthHandler struct {
	repo    *repository.CaptionRepository
	storage storage.ObjectStorage
	vision  *service.VisionService
	started time.Time
}

// NewHealthHandler creates a new health handler.
// Parameters:
//   - repo: repository used for database pings.
//   - store: object storage checked on detailed health requests.
//   - vision: vision client reporting key pool size.
// Returns:
//   - *HealthHandler: initialized handler.
func NewHealthHandler(repo *repository.CaptionRepository, store storage.ObjectStorage, vision *service.VisionService) *HealthHandler {
	return &HealthHandler{
		repo:    repo,
		storage: store,
		vision:  vision,
		started: time.Now(),
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// HealthDetailed handles GET /health/detailed, probing each dependency.
func (h *HealthHandler) HealthDetailed(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if err := h.repo.Ping(ctx); err != nil {
		checks["database"] = gin.H{"status": "down", "error": err.Error()}
		healthy = false
	} else {
		checks["database"] = gin.H{"status": "up"}
	}

	// Exists on a sentinel key exercises auth and connectivity without
	// needing the object to be present.
	if _, err := h.storage.Exists(ctx, ".healthcheck"); err != nil {
		checks["storage"] = gin.H{"status": "down", "error": err.Error()}
		healthy = false
	} else {
		checks["storage"] = gin.H{"status": "up"}
	}

	checks["vision"] = gin.H{
		"status": "configured",
		"model":  h.vision.Model(),
		"keys":   h.vision.KeyCount(),
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status": overall,
		"uptime": time.Since(h.started).String(),
		"checks": checks,
	})
}
