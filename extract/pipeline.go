// Package extract turns a rendered post page into a models.Record by folding
// an ordered chain of strategies under a first-writer-wins merge.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/models"
)

// ErrNotApplicable is returned by a strategy that chose not to run.
var ErrNotApplicable = errors.New("extract: strategy not applicable")

// StrategyFunc returns only the fields it found. It must not rely on its
// fill being kept: the pipeline discards fields already set.
type StrategyFunc func(ctx context.Context, p Page, cur models.Record) (models.Record, error)

// Strategy is a named extraction layer.
type Strategy struct {
	Name string
	Run  StrategyFunc
}

// StrategyReport records what one strategy contributed.
type StrategyReport struct {
	Name    string
	Filled  []string
	Skipped bool
	Err     error
}

// Report describes one pipeline run.
type Report struct {
	Strategies []StrategyReport
}

// Ran reports whether the named strategy executed.
func (r Report) Ran(name string) bool {
	for _, s := range r.Strategies {
		if s.Name == name {
			return !s.Skipped
		}
	}
	return false
}

// Pipeline runs strategies left to right.
type Pipeline struct {
	strategies []Strategy
	maxImages  int
	logger     *slog.Logger
}

// NewPipeline builds a pipeline from an explicit strategy list.
func NewPipeline(logger *slog.Logger, maxImages int, strategies ...Strategy) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{strategies: strategies, maxImages: maxImages, logger: logger}
}

// New builds the standard chain. opener may be nil, which disables the
// mobile-variant pass.
func New(cfg config.ExtractConfig, opener VariantOpener, logger *slog.Logger) *Pipeline {
	strategies := []Strategy{
		OpenGraph(),
		TitleDecomposition(),
		Accessibility(),
		BodyText(cfg.MaxImages),
		DOMFallback(),
	}
	if cfg.MobileFallback && opener != nil {
		strategies = append(strategies, MobileVariant(opener, logger, Accessibility(), BodyText(0)))
	}
	return NewPipeline(logger, cfg.MaxImages, strategies...)
}

// Run folds every strategy into a record and normalizes it. A strategy that
// fails or panics contributes nothing; the rest still run. Once ctx is done
// the remaining strategies are skipped.
func (p *Pipeline) Run(ctx context.Context, page Page) (models.Record, Report) {
	var (
		rec    models.Record
		report Report
	)
	for _, s := range p.strategies {
		if ctx.Err() != nil {
			report.Strategies = append(report.Strategies, StrategyReport{Name: s.Name, Skipped: true, Err: ctx.Err()})
			continue
		}

		fill, err := runIsolated(ctx, s, page, rec)
		sr := StrategyReport{Name: s.Name}
		switch {
		case errors.Is(err, ErrNotApplicable):
			sr.Skipped = true
		case err != nil:
			sr.Err = err
			p.logger.Warn("extraction strategy failed", "strategy", s.Name, "error", err)
		}
		sr.Filled = rec.Merge(fill)
		if len(sr.Filled) > 0 {
			p.logger.Debug("extraction strategy filled fields",
				"strategy", s.Name, "fields", strings.Join(sr.Filled, ","))
		}
		report.Strategies = append(report.Strategies, sr)
	}

	Finalize(&rec, p.maxImages)
	return rec, report
}

func runIsolated(ctx context.Context, s Strategy, page Page, cur models.Record) (fill models.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			fill = models.Record{}
			err = fmt.Errorf("panic in %s: %v", s.Name, r)
		}
	}()
	return s.Run(ctx, page, cur)
}

// Finalize derives the normalized counts and the media fallbacks.
func Finalize(rec *models.Record, maxImages int) {
	rec.ReactionsCount = NormalizeCount(rec.ReactionsRaw)
	rec.SharesCount = NormalizeCount(rec.SharesRaw)
	rec.CommentsCount = NormalizeCount(rec.CommentsRaw)
	rec.ViewsCount = NormalizeCount(rec.ViewsRaw)

	if maxImages > 0 && len(rec.Images) > maxImages {
		rec.Images = rec.Images[:maxImages]
	}
	if rec.Image == "" && len(rec.Images) > 0 {
		rec.Image = rec.Images[0]
	}
	if rec.VideoThumbnail == "" && rec.VideoPoster != "" {
		rec.VideoThumbnail = rec.VideoPoster
	}
}
