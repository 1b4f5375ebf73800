package extract

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/use-agent/postmeta/models"
)

// VariantOpener loads an alternate URL for the mobile-variant pass. The
// returned release func must be called once the page is no longer needed.
type VariantOpener interface {
	OpenVariant(ctx context.Context, variantURL string) (Page, func(), error)
}

// MobileVariants returns the lighter mobile hosts serving the same post,
// or nil when the host has none.
func MobileVariants(pageURL string) []string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil
	}
	switch strings.ToLower(u.Hostname()) {
	case "facebook.com", "www.facebook.com", "web.facebook.com":
	default:
		return nil
	}
	var out []string
	for _, host := range []string{"mbasic.facebook.com", "m.facebook.com"} {
		v := *u
		v.Scheme = "https"
		v.Host = host
		out = append(out, v.String())
	}
	return out
}

// MobileVariant re-runs the given strategies against each mobile variant
// while comments or views are still missing. Only those two fields are
// taken from the variants.
func MobileVariant(opener VariantOpener, logger *slog.Logger, inner ...Strategy) Strategy {
	if logger == nil {
		logger = slog.Default()
	}
	return Strategy{
		Name: "mobile_variant",
		Run: func(ctx context.Context, p Page, cur models.Record) (models.Record, error) {
			if cur.CommentsRaw != "" && cur.ViewsRaw != "" {
				return models.Record{}, ErrNotApplicable
			}
			pageURL, err := p.URL(ctx)
			if err != nil {
				return models.Record{}, err
			}
			variants := MobileVariants(pageURL)
			if len(variants) == 0 {
				return models.Record{}, ErrNotApplicable
			}

			var fill models.Record
			for _, v := range variants {
				if ctx.Err() != nil {
					break
				}
				got := runVariant(ctx, opener, v, inner, logger)
				setIfEmpty(&fill.CommentsRaw, got.CommentsRaw)
				setIfEmpty(&fill.ViewsRaw, got.ViewsRaw)
				if firstNonEmpty(cur.CommentsRaw, fill.CommentsRaw) != "" &&
					firstNonEmpty(cur.ViewsRaw, fill.ViewsRaw) != "" {
					break
				}
			}
			return fill, nil
		},
	}
}

func runVariant(ctx context.Context, opener VariantOpener, variantURL string, inner []Strategy, logger *slog.Logger) models.Record {
	vp, release, err := opener.OpenVariant(ctx, variantURL)
	if err != nil {
		logger.Warn("mobile variant unavailable", "url", variantURL, "error", err)
		return models.Record{}
	}
	defer release()

	var rec models.Record
	for _, s := range inner {
		fill, err := runIsolated(ctx, s, vp, rec)
		if err != nil {
			logger.Warn("mobile variant strategy failed", "url", variantURL, "strategy", s.Name, "error", err)
		}
		rec.Merge(fill)
	}
	logger.Info("mobile variant checked", "url", variantURL,
		"comments", rec.CommentsRaw, "views", rec.ViewsRaw)
	return rec
}
