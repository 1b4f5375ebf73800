package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/use-agent/postmeta/models"
)

// Accessibility reads aria-labels, short numeric spans and button texts
// collected by the page probe.
func Accessibility() Strategy {
	return Strategy{Name: "accessibility", Run: accessibility}
}

func accessibility(ctx context.Context, p Page, _ models.Record) (models.Record, error) {
	probe, err := p.Probe(ctx)
	if err != nil {
		return models.Record{}, err
	}
	return fromProbe(probe), nil
}

func fromProbe(probe *Probe) models.Record {
	var fill models.Record

	if total := sumReactionTypes(probe.AriaLabels); total > 0 {
		fill.ReactionsRaw = strconv.FormatInt(total, 10)
	}
	fill.CommentsRaw = firstMatchIn(commentPatterns, probe.AriaLabels)
	fill.ViewsRaw = firstMatchIn(viewPatterns, probe.AriaLabels)

	texts := make([]string, 0, len(probe.EngagementTexts)+len(probe.ButtonTexts))
	texts = append(texts, probe.EngagementTexts...)
	texts = append(texts, probe.ButtonTexts...)
	setIfEmpty(&fill.CommentsRaw, firstMatchIn(commentPatterns, texts))
	setIfEmpty(&fill.SharesRaw, firstMatchIn(sharePatterns, texts))
	setIfEmpty(&fill.ViewsRaw, firstMatchIn(viewPatterns, texts))
	setIfEmpty(&fill.ReactionsRaw, firstMatchIn(reactionPatterns, texts))

	if v := probe.Video; v != nil {
		if !strings.HasPrefix(v.Src, "blob:") {
			fill.VideoURL = v.Src
		}
		fill.VideoPoster = v.Poster
		if v.Duration > 0 {
			d := v.Duration
			fill.VideoDurationSeconds = &d
		}
	}
	fill.PostDate = strings.TrimSpace(probe.PostDate)
	return fill
}

// sumReactionTypes adds up per-type labels like "Love: 20 people".
func sumReactionTypes(labels []string) int64 {
	var total int64
	for _, label := range labels {
		m := reReactionType.FindStringSubmatch(label)
		if m == nil {
			continue
		}
		if n, err := strconv.ParseInt(stripSeparators(m[1]), 10, 64); err == nil {
			total += n
		}
	}
	return total
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
