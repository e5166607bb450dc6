package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hokuto/run-telemetry-go/internal/config"
	"github.com/hokuto/run-telemetry-go/internal/handler"
	"github.com/hokuto/run-telemetry-go/internal/middleware"
)

// SetupRouter wires the HTTP surface
func SetupRouter(cfg *config.Config, tracking *handler.TrackingHandler, streams *handler.StreamHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Run Telemetry API is running",
		})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		activities := api.Group("/activities")
		{
			activities.POST("/start", tracking.StartTracking)
			activities.POST("/stop", tracking.StopTracking)
			activities.POST("/abandon", tracking.AbandonTracking)
		}

		// Fix ingestion runs well above the sampling cadence so bursty
		// providers are not dropped at the door, but still bounded.
		api.POST("/fixes", middleware.RateLimit(600, time.Minute), tracking.PushFix)

		api.GET("/tracking/status", tracking.GetStatus)
		api.GET("/pending", tracking.GetPending)
		api.GET("/pending/count", tracking.GetPendingCount)
		api.POST("/sync", tracking.TriggerSync)

		streamGroup := api.Group("/stream")
		{
			streamGroup.GET("/tracking", streams.StreamTracking)
			streamGroup.GET("/pending", streams.StreamPending)
		}
	}

	return r
}
