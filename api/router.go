// Package api is the HTTP front door: job submission, status and health.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/postmeta/api/handler"
	"github.com/use-agent/postmeta/api/middleware"
	"github.com/use-agent/postmeta/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work. ctx bounds the
// rate limiter's background sweep.
func NewRouter(ctx context.Context, cfg *config.Config, jobs handler.JobService, build handler.Build, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(jobs, build, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(jobs))
	protected.GET("/jobs/:id", handler.GetJob(jobs))

	return r
}
