// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"vehiclepush/internal/config"
	"vehiclepush/internal/constants"
	"vehiclepush/internal/logger"
	"vehiclepush/pkg/health"
	"vehiclepush/pkg/middleware"
	"vehiclepush/pkg/ratelimit"
	"vehiclepush/pkg/tracing"
)

// NewRouter wires middleware, the API routes and the operational
// endpoints (/health, /metrics, /swagger).
func NewRouter(cfg *config.Config, h *Handler, checks *health.CheckerRegistry, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName, "/health", "/metrics"))
	}

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())

	if cfg.API.RateLimit.Enabled {
		rl := rateLimitConfig(cfg.API.RateLimit)
		router.Use(ratelimit.RateLimitMiddleware(rl))
		log.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rl.RPS, "burst", rl.Burst)
	}

	h.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		result := checks.Check(c.Request.Context())
		statusCode := http.StatusOK
		if result.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, result)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

func rateLimitConfig(cfg config.RateLimitConfig) ratelimit.RateLimitConfig {
	rl := ratelimit.DefaultConfig()
	if cfg.RPS > 0 {
		rl.RPS = cfg.RPS
	}
	if cfg.Burst > 0 {
		rl.Burst = cfg.Burst
	}
	if cfg.CleanupInterval > 0 {
		rl.CleanupInterval = time.Duration(cfg.CleanupInterval) * time.Second
	}
	if cfg.MaxAge > 0 {
		rl.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return rl
}
