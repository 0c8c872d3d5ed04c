package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/denisAlshanov/ytproxy/internal/api/handlers"
	"github.com/denisAlshanov/ytproxy/internal/api/middleware"
	"github.com/denisAlshanov/ytproxy/internal/config"
)

const readHeaderTimeout = 10 * time.Second

type Router struct {
	engine *gin.Engine
	config *config.Config
}

func NewRouter(cfg *config.Config, videoHandler *handlers.VideoHandler, healthHandler *handlers.HealthHandler) *Router {
	// Set Gin mode
	if cfg.Server.Host == "0.0.0.0" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CorrelationIDMiddleware())
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))
	if cfg.Metrics.Enabled {
		engine.Use(middleware.MetricsMiddleware())
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Health endpoints
	health := engine.Group("/")
	{
		health.GET("/health", healthHandler.Health)
		health.GET("/ready", healthHandler.Readiness)
		health.GET("/live", healthHandler.Liveness)
	}

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group("/api")
	api.Use(middleware.RateLimitMiddleware(&cfg.API))
	{
		api.GET("/info", videoHandler.GetVideoInfo)       // /api/info?url=
		api.GET("/video-info", videoHandler.GetVideoInfo) // alias used by the mobile app
		api.POST("/download", videoHandler.Download)      // /api/download
	}

	return &Router{
		engine: engine,
		config: cfg,
	}
}

// Server builds the HTTP server. WriteTimeout stays unset since downloads
// stream for as long as the download timeout allows.
func (r *Router) Server() *http.Server {
	return &http.Server{
		Addr:              r.config.Server.Host + ":" + r.config.Server.Port,
		Handler:           r.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
