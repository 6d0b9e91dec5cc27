package handlers

import (
	"net/http"
	"strconv"

	"github.com/arnav/capsera/internal/logger"
	"github.com/arnav/capsera/internal/service"
	"github.com/gin-gonic/gin"
)

// QuotaHandler serves quota introspection and admin endpoints.
type QuotaHandler struct {
	quota    *service.QuotaService
	captions *service.CaptionService
}

// NewQuotaHandler creates a new quota handler.
// Parameters:
//   - quota: quota tracker service.
//   - captions: caption service, used for the mood breakdown in admin stats.
// Returns:
//   - *QuotaHandler: initialized handler.
func NewQuotaHandler(quota *service.QuotaService, captions *service.CaptionService) *QuotaHandler {
	return &QuotaHandler{quota: quota, captions: captions}
}

// Status handles GET /api/v1/quota/:userId.
func (h *QuotaHandler) Status(c *gin.Context) {
	status, err := h.quota.GetUserStatus(c.Request.Context(), c.Param("userId"))
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to load quota status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load quota status",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"status":   status,
		"resetsIn": h.quota.FormatResetTime(),
	})
}

// History handles GET /api/v1/quota/:userId/history.
func (h *QuotaHandler) History(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days > 90 {
		days = 90
	}

	counts, err := h.quota.GetUserHistory(c.Request.Context(), c.Param("userId"), days)
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to load usage history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load usage history",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"days":    days,
		"history": counts,
	})
}

// WhitelistAdd handles POST /api/v1/admin/whitelist/:userId.
func (h *QuotaHandler) WhitelistAdd(c *gin.Context) {
	userID := c.Param("userId")
	h.quota.AddToWhitelist(userID)
	logger.FromContext(c.Request.Context()).
		WithField(logger.FieldUserID, userID).Info("User whitelisted")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"userId":  userID,
	})
}

// WhitelistRemove handles DELETE /api/v1/admin/whitelist/:userId.
func (h *QuotaHandler) WhitelistRemove(c *gin.Context) {
	userID := c.Param("userId")
	removed := h.quota.RemoveFromWhitelist(userID)
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "user is not whitelisted",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"userId":  userID,
	})
}

// WhitelistList handles GET /api/v1/admin/whitelist.
func (h *QuotaHandler) WhitelistList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"whitelist": h.quota.Whitelist(),
	})
}

// Reset handles POST /api/v1/admin/quota/:userId/reset. Usage is derived
// from records, so this reports status rather than mutating anything; the
// response says so explicitly.
func (h *QuotaHandler) Reset(c *gin.Context) {
	status, err := h.quota.ResetUserLimit(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load quota status",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  status,
		"note":    "usage is derived from stored records and resets automatically at day end; use clear to remove records",
	})
}

// Clear handles POST /api/v1/admin/quota/:userId/clear, deleting the user's
// records and thereby freeing their quota.
func (h *QuotaHandler) Clear(c *gin.Context) {
	deleted, err := h.quota.ClearUserRecords(c.Request.Context(), c.Param("userId"))
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to clear user records: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to clear user records",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": deleted,
	})
}

// Stats handles GET /api/v1/admin/stats.
func (h *QuotaHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := h.quota.GetGlobalStats(ctx)
	if err != nil {
		logger.CtxError(ctx, "Failed to aggregate global stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to aggregate stats",
		})
		return
	}
	moods, err := h.captions.MoodUsage(ctx)
	if err != nil {
		logger.CtxError(ctx, "Failed to aggregate mood usage: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to aggregate stats",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
		"moods":   moods,
	})
}
