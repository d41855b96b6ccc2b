package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pinlens/backend/internal/auth"
	"github.com/pinlens/backend/internal/config"
	"github.com/pinlens/backend/internal/middleware"
	ws "github.com/pinlens/backend/internal/websocket"
)

// SetupRouter wires middleware and routes into a gin engine.
func SetupRouter(cfg *config.Config, h *Handlers, wsHandler *ws.Handler, authMW *auth.Middleware) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	router.Use(middleware.MetricsMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware("pinlens-backend"))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://pinlens.app"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		engagement := api.Group("/engagement")
		{
			engagement.POST("/counts", authMW.OptionalAuth(), h.GetCounts)
			engagement.GET("/stats", h.DedupStats)
		}

		photos := api.Group("/photos")
		{
			photos.POST("/:id/reaction", authMW.RequireAuth(), h.SetReaction)
			photos.DELETE("/:id/reaction", authMW.RequireAuth(), h.RemoveReaction)
			photos.POST("/:id/view", h.RecordView)
		}

		api.GET("/ws", authMW.OptionalAuth(), wsHandler.Serve)
	}

	return router
}
