package api

import (
	"github.com/arnav/capsera/internal/api/handlers"
	"github.com/arnav/capsera/internal/api/middleware"
	"github.com/arnav/capsera/internal/config"
	"github.com/arnav/capsera/internal/logger"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the handler set the router wires up.
type Handlers struct {
	Caption *handlers.CaptionHandler
	Upload  *handlers.UploadHandler
	Quota   *handlers.QuotaHandler
	Health  *handlers.HealthHandler
}

// NewRouter builds the HTTP router with all routes and middleware.
// Parameters:
//   - cfg: server configuration (mode, CORS).
//   - log: base logger for request logging.
//   - h: handler set.
// Returns:
//   - *gin.Engine: configured router.
func NewRouter(cfg *config.ServerConfig, log *logger.Logger, h *Handlers) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(&cfg.CORS))

	router.GET("/health", h.Health.Health)
	router.GET("/health/detailed", h.Health.HealthDetailed)

	v1 := router.Group("/api/v1")
	{
		captions := v1.Group("/captions")
		{
			captions.POST("/generate", h.Caption.Generate)
			captions.GET("/history/:userId", h.Caption.History)
			captions.GET("/:id", h.Caption.Get)
			captions.DELETE("/:id", h.Caption.Delete)
		}

		v1.GET("/moods", h.Caption.Moods)

		v1.POST("/upload", h.Upload.Upload)
		v1.DELETE("/upload/:userId/:imageId", h.Upload.DeleteImage)

		quota := v1.Group("/quota")
		{
			quota.GET("/:userId", h.Quota.Status)
			quota.GET("/:userId/history", h.Quota.History)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/whitelist", h.Quota.WhitelistList)
			admin.POST("/whitelist/:userId", h.Quota.WhitelistAdd)
			admin.DELETE("/whitelist/:userId", h.Quota.WhitelistRemove)
			admin.POST("/quota/:userId/reset", h.Quota.Reset)
			admin.POST("/quota/:userId/clear", h.Quota.Clear)
			admin.GET("/stats", h.Quota.Stats)
		}
	}

	return router
}
