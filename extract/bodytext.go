package extract

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/use-agent/postmeta/models"
)

// BodyText matches counters in the visible text, then in JSON embedded in
// the raw HTML, then in captured API responses. It also recovers the image
// gallery from the raw HTML. maxImages <= 0 disables the gallery.
func BodyText(maxImages int) Strategy {
	return Strategy{
		Name: "body_text",
		Run: func(ctx context.Context, p Page, _ models.Record) (models.Record, error) {
			return bodyText(ctx, p, maxImages)
		},
	}
}

func bodyText(ctx context.Context, p Page, maxImages int) (models.Record, error) {
	var fill models.Record

	text, textErr := p.BodyText(ctx)
	if textErr == nil {
		fill.CommentsRaw = firstMatch(commentPatterns, text)
		fill.ViewsRaw = firstMatch(viewPatterns, text)
		fill.ReactionsRaw = firstMatch(reactionPatterns, text)
		fill.SharesRaw = firstMatch(sharePatterns, text)
	}

	raw, htmlErr := p.HTML(ctx)
	if htmlErr == nil {
		applyEmbeddedCounters(&fill, raw)
		if maxImages > 0 {
			fill.Images = GalleryImages(raw, maxImages)
		}
	}

	for _, snippet := range p.NetworkSnippets() {
		if fill.ViewsRaw != "" && fill.CommentsRaw != "" && fill.ReactionsRaw != "" && fill.SharesRaw != "" {
			break
		}
		applyEmbeddedCounters(&fill, snippet)
	}

	if textErr != nil && htmlErr != nil {
		return fill, textErr
	}
	return fill, nil
}

func applyEmbeddedCounters(fill *models.Record, raw string) {
	setIfEmpty(&fill.CommentsRaw, firstMatch(htmlCommentPatterns, raw))
	setIfEmpty(&fill.ReactionsRaw, firstMatch(htmlReactionPatterns, raw))
	setIfEmpty(&fill.SharesRaw, firstMatch(htmlSharePatterns, raw))
	setIfEmpty(&fill.ViewsRaw, firstMatch(htmlViewPatterns, raw))
}

var (
	imageURIPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"(?:uri|src)"\s*:\s*"(https:[^"]+?\.fbcdn\.net[^"]+?\.(?:jpg|png|webp)[^"]*)"`),
		regexp.MustCompile(`https:(?:\\?/){2}scontent[^\s"'<>]+`),
	}
	reSmallThumb = regexp.MustCompile(`[sp]\d{2}x\d{2}`)

	jsonUnescaper = strings.NewReplacer(`\/`, `/`, `\u0026`, `&`, `\u003d`, `=`, `\u0025`, `%`)
)

var imageSkipKeywords = []string{"/safe_image/", "/profile", "/cp/", "emoji", "icon", "sticker", "logo"}

// GalleryImages returns the distinct post images referenced in raw HTML,
// in document order, at most limit of them.
func GalleryImages(raw string, limit int) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	for _, re := range imageURIPatterns {
		for _, m := range re.FindAllStringSubmatch(raw, -1) {
			candidate := m[0]
			if len(m) > 1 {
				candidate = m[1]
			}
			u := html.UnescapeString(jsonUnescaper.Replace(candidate))
			if !isPostImage(u) {
				continue
			}
			key, _, _ := strings.Cut(u, "?")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, u)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func isPostImage(u string) bool {
	if !strings.Contains(u, "fbcdn.net") {
		return false
	}
	path, _, _ := strings.Cut(u, "?")
	if !strings.Contains(path, ".jpg") && !strings.Contains(path, ".png") && !strings.Contains(path, ".webp") {
		return false
	}
	for _, kw := range imageSkipKeywords {
		if strings.Contains(u, kw) {
			return false
		}
	}
	return !reSmallThumb.MatchString(u)
}
