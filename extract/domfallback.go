package extract

import (
	"context"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/postmeta/models"
)

var captionSelectors = []string{
	`div[data-ad-preview="message"]`,
	`div[data-ad-comet-preview="message"]`,
	`div[dir="auto"][style*="text-align"]`,
}

var authorSelectors = []string{
	`h2 a[role="link"]`,
	`h3 a[role="link"]`,
	`strong a[role="link"]`,
	`h2 a`,
	`h3 a`,
	`a[aria-label][role="link"] strong`,
}

// Link texts that are site chrome rather than a poster's name.
var authorStopwords = map[string]struct{}{
	"facebook":       {},
	"log in":         {},
	"sign up":        {},
	"privacy":        {},
	"iniciar sesión": {},
	"registrarte":    {},
}

// DOMFallback queries known element locators for caption and author, and
// as a last resort runs readability for a byline and excerpt.
func DOMFallback() Strategy {
	return Strategy{Name: "dom_fallback", Run: domFallback}
}

func domFallback(ctx context.Context, p Page, cur models.Record) (models.Record, error) {
	if cur.Caption != "" && cur.Author != "" && cur.VideoPoster != "" {
		return models.Record{}, ErrNotApplicable
	}
	var fill models.Record

	if cur.Caption == "" {
		for _, sel := range captionSelectors {
			el, ok, err := p.First(ctx, sel)
			if err != nil || !ok {
				continue
			}
			if text := strings.TrimSpace(el.Text); len(text) > 5 {
				fill.Caption = text
				fill.Description = text
				break
			}
		}
	}

	pageURL, _ := p.URL(ctx)
	if cur.Author == "" {
		for _, sel := range authorSelectors {
			el, ok, err := p.First(ctx, sel, "href")
			if err != nil || !ok {
				continue
			}
			text := strings.TrimSpace(el.Text)
			if _, stop := authorStopwords[strings.ToLower(text)]; len(text) <= 1 || stop {
				continue
			}
			fill.Author = text
			fill.UserLink = resolveLink(pageURL, el.Attr("href"))
			break
		}
	}

	if el, ok, err := p.First(ctx, "video", "src", "poster"); err == nil && ok {
		if src := el.Attr("src"); !strings.HasPrefix(src, "blob:") {
			fill.VideoURL = src
		}
		fill.VideoPoster = el.Attr("poster")
	}

	if firstNonEmpty(cur.Author, fill.Author) == "" || firstNonEmpty(cur.Caption, fill.Caption) == "" {
		byline, excerpt := readabilityFallback(ctx, p, pageURL)
		setIfEmpty(&fill.Author, byline)
		if len(excerpt) > 5 {
			setIfEmpty(&fill.Caption, excerpt)
		}
	}
	return fill, nil
}

func readabilityFallback(ctx context.Context, p Page, pageURL string) (byline, excerpt string) {
	raw, err := p.HTML(ctx)
	if err != nil || raw == "" {
		return "", ""
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", ""
	}
	article, err := readability.FromReader(strings.NewReader(raw), parsed)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(article.Byline), strings.TrimSpace(article.Excerpt)
}

func resolveLink(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := b.Parse(href)
	if err != nil {
		return href
	}
	return ref.String()
}
