package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/postmeta/models"
)

// categorizeError maps a session error onto the delivery error taxonomy.
// Codes already attached by the browser layer are preserved.
func categorizeError(err error, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "job canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeInternal, msg, err)
	}
}
