package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/arnav/capsera/internal/logger"
	"github.com/arnav/capsera/internal/prompts"
	"github.com/arnav/capsera/internal/service"
	"github.com/arnav/capsera/internal/storage"
	"github.com/gin-gonic/gin"
)

// CaptionHandler serves caption generation and history endpoints.
type CaptionHandler struct {
	captions *service.CaptionService
	quota    *service.QuotaService
	storage  storage.ObjectStorage
}

// NewCaptionHandler creates a new caption handler.
// Parameters:
//   - captions: caption pipeline service.
//   - quota: quota tracker gating generation.
//   - store: object storage for cleaning up deleted images.
// Returns:
//   - *CaptionHandler: initialized handler.
func NewCaptionHandler(captions *service.CaptionService, quota *service.QuotaService, store storage.ObjectStorage) *CaptionHandler {
	return &CaptionHandler{
		captions: captions,
		quota:    quota,
		storage:  store,
	}
}

// GenerateRequest is the request body for POST /captions/generate.
type GenerateRequest struct {
	UserID     string `json:"userId" binding:"required"`
	Username   string `json:"username"`
	Mood       string `json:"mood" binding:"required"`
	ImageURL   string `json:"imageUrl" binding:"required"`
	ImageName  string `json:"imageName"`
	StorageKey string `json:"storageKey"`
}

// Generate handles POST /api/v1/captions/generate.
// The quota gate runs before the pipeline; an admitted request always
// produces three captions, from the model or from templates.
func (h *CaptionHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "userId, mood and imageUrl are required",
		})
		return
	}

	if !strings.HasPrefix(req.ImageURL, "http://") && !strings.HasPrefix(req.ImageURL, "https://") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "imageUrl must be an http(s) URL",
		})
		return
	}

	ctx := c.Request.Context()

	decision, err := h.quota.CanMakeRequest(ctx, req.UserID)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Quota check failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to check usage limit",
		})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":   false,
			"error":     "daily caption limit reached",
			"limit":     decision.Limit,
			"used":      decision.Used,
			"remaining": decision.Remaining,
			"resetAt":   decision.ResetAt,
		})
		return
	}

	result, err := h.captions.Generate(ctx, &service.GenerateRequest{
		UserID:     req.UserID,
		Username:   req.Username,
		Mood:       req.Mood,
		ImageURL:   req.ImageURL,
		ImageName:  req.ImageName,
		StorageKey: req.StorageKey,
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Caption generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to generate captions",
		})
		return
	}

	remaining := decision.Remaining
	if !decision.Whitelisted && remaining > 0 {
		remaining--
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"id":        result.ID,
		"imageId":   result.ImageID,
		"captions":  result.Captions,
		"mood":      result.Mood,
		"source":    result.Source,
		"remaining": remaining,
	})
}

// History handles GET /api/v1/captions/history/:userId.
func (h *CaptionHandler) History(c *gin.Context) {
	userID := c.Param("userId")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	records, total, err := h.captions.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("History lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"records": records,
	})
}

// Get handles GET /api/v1/captions/:id.
func (h *CaptionHandler) Get(c *gin.Context) {
	record, err := h.captions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load caption",
		})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "caption not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"record":  record,
	})
}

// Delete handles DELETE /api/v1/captions/:id. The requesting user must own
// the record; its stored image object is removed best-effort.
func (h *CaptionHandler) Delete(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = c.GetHeader("X-User-ID")
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "userId is required",
		})
		return
	}

	ctx := c.Request.Context()
	record, err := h.captions.Delete(ctx, c.Param("id"), userID)
	if errors.Is(err, service.ErrNotOwner) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "caption belongs to another user",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to delete caption",
		})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "caption not found",
		})
		return
	}

	if record.StorageKey != "" {
		if err := h.storage.Delete(ctx, record.StorageKey); err != nil {
			logger.CtxWarn(ctx, "Failed to delete stored image %s: %v", record.StorageKey, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": record.ID,
	})
}

// Moods handles GET /api/v1/moods.
func (h *CaptionHandler) Moods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"core":     prompts.CoreMoods,
		"seasonal": prompts.SeasonalMoods,
	})
}
