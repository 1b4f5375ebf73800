package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/postmeta/models"
)

// Build describes static facts reported by the health endpoint.
type Build struct {
	Version           string
	ProxyConfigured   bool
	CookiesConfigured bool
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when every slot is busy and jobs are waiting.
func Health(jobs JobService, build Build, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := jobs.Stats()

		status := "healthy"
		if stats.Running >= stats.MaxConcurrent && stats.Queued > 0 {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:            status,
			Uptime:            time.Since(startTime).Round(time.Second).String(),
			Jobs:              stats,
			ProxyConfigured:   build.ProxyConfigured,
			CookiesConfigured: build.CookiesConfigured,
			Version:           build.Version,
		})
	}
}
