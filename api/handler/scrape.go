package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/postmeta/models"
)

// JobService is the coordinator surface the handlers use.
type JobService interface {
	Submit(req models.ScrapeRequest) (models.Job, error)
	Get(id string) (models.Job, bool)
	Stats() models.JobStats
}

// Scrape returns a handler for POST /api/v1/scrape. It answers 202 as soon
// as the job is registered; the result arrives on the callback.
func Scrape(jobs JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		job, err := jobs.Submit(req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, models.SubmitResponse{
			Status:  string(models.StatusAccepted),
			JobID:   job.ID,
			Message: "job accepted; the result will be delivered to the callback URL",
		})
	}
}

// GetJob returns a handler for GET /api/v1/jobs/:id.
func GetJob(jobs JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := jobs.Get(c.Param("id"))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "job not found", nil))
			return
		}
		c.JSON(http.StatusOK, models.NewJobResponse(job))
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	c.JSON(mapErrorToStatus(scrapeErr), models.ErrorResponse{Error: scrapeErr.ToDetail()})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
