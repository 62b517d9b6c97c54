package main

import (
	"net/http"
	"time"

	"book-discovery/internal/config"
	"book-discovery/internal/handler"
	"book-discovery/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// newRouter builds the gin engine with middleware and routes
func newRouter(cfg *config.Config, health *handler.HealthHandler, search *handler.SearchHandler) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())

	// Security headers (before CORS)
	r.Use(middleware.SecurityHeaders())

	allowedOrigins := append([]string{}, cfg.Server.AllowedOrigins...)
	if !cfg.IsProduction() {
		allowedOrigins = append(allowedOrigins, "http://localhost:5173")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, middleware.QuotaRemainingHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	ipLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst)
	dailyQuota := middleware.NewDailyQuota(cfg.Server.DailyQuota)
	logrus.Infof("[INFO] Rate limiting enabled rate=%.2f/s burst=%d daily=%d allowed_origins=%v",
		cfg.Server.RatePerSecond, cfg.Server.RateBurst, cfg.Server.DailyQuota, allowedOrigins)

	// Health check endpoints (outside /api group, no rate limiting)
	r.GET("/health", health.HandleHealth)
	r.GET("/ready", health.HandleReadiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		limited := middleware.RateLimitMiddleware(ipLimiter, dailyQuota)
		api.GET("/search", limited, search.HandleSearch)
		api.POST("/search", limited, search.HandleSearch)

		// Clearing the cache forces fresh LLM calls for everyone, so it is
		// a development-only endpoint and still counts against the IP limit
		if !cfg.IsProduction() {
			api.DELETE("/cache", middleware.RateLimitMiddleware(ipLimiter, nil), search.HandleClearCache)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return r
}
