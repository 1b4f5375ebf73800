package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/postmeta/models"
)

var ogTags = []string{
	"og:title", "og:description", "og:image", "og:url",
	"og:video", "og:video:url", "og:video:secure_url",
	"og:video:type", "og:video:width", "og:video:height",
	"og:type", "og:site_name",
}

// OpenGraph reads the link-preview meta tags. They are served even to
// anonymous sessions, so this layer provides the baseline.
func OpenGraph() Strategy {
	return Strategy{Name: "open_graph", Run: openGraph}
}

func openGraph(ctx context.Context, p Page, _ models.Record) (models.Record, error) {
	raw, err := p.HTML(ctx)
	if err != nil {
		return models.Record{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return models.Record{}, err
	}

	og := make(map[string]string)
	for _, tag := range ogTags {
		sel := doc.Find(`meta[property="` + tag + `"], meta[name="` + tag + `"]`).First()
		if v := strings.TrimSpace(sel.AttrOr("content", "")); v != "" {
			og["og_"+strings.ReplaceAll(tag[3:], ":", "_")] = v
		}
	}
	if v := strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", "")); v != "" {
		og["meta_description"] = v
	}
	title, err := p.Title(ctx)
	if err != nil || title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title != "" {
		og["page_title"] = title
	}

	fill := models.Record{
		Caption:      og["og_description"],
		Description:  firstNonEmpty(og["og_description"], og["meta_description"]),
		Image:        og["og_image"],
		VideoURL:     firstNonEmpty(og["og_video_secure_url"], og["og_video_url"], og["og_video"]),
		VideoType:    og["og_video_type"],
		CanonicalURL: og["og_url"],
		ContentType:  og["og_type"],
		Author:       strings.TrimSpace(doc.Find(`meta[name="author"]`).First().AttrOr("content", "")),
		RawOG:        og,
	}
	if fill.VideoURL != "" || strings.Contains(fill.ContentType, "video") {
		fill.VideoThumbnail = og["og_image"]
	}
	return fill, nil
}

// OGTagCount counts the og:* entries captured in raw.
func OGTagCount(raw map[string]string) int {
	n := 0
	for k := range raw {
		if strings.HasPrefix(k, "og_") {
			n++
		}
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
