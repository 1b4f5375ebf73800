package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DocumentPage implements Page over a static HTML document. It backs the
// HTTP mobile-variant fetch and makes strategies testable without a browser.
type DocumentPage struct {
	url      string
	raw      string
	doc      *goquery.Document
	snippets []string
}

// NewDocumentPage parses rawHTML served from pageURL.
func NewDocumentPage(pageURL, rawHTML string, snippets []string) (*DocumentPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse document: %w", err)
	}
	return &DocumentPage{url: pageURL, raw: rawHTML, doc: doc, snippets: snippets}, nil
}

func (d *DocumentPage) URL(context.Context) (string, error) { return d.url, nil }

func (d *DocumentPage) Title(context.Context) (string, error) {
	return strings.TrimSpace(d.doc.Find("title").First().Text()), nil
}

func (d *DocumentPage) HTML(context.Context) (string, error) { return d.raw, nil }

func (d *DocumentPage) BodyText(context.Context) (string, error) {
	return visibleText(d.raw), nil
}

func (d *DocumentPage) NetworkSnippets() []string { return d.snippets }

func (d *DocumentPage) First(_ context.Context, selector string, attrs ...string) (Element, bool, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return Element{}, false, fmt.Errorf("extract: compile %q: %w", selector, err)
	}
	s := d.doc.FindMatcher(sel).First()
	if s.Length() == 0 {
		return Element{}, false, nil
	}
	el := Element{Text: strings.TrimSpace(s.Text()), Attrs: make(map[string]string, len(attrs))}
	for _, name := range attrs {
		if v, ok := s.Attr(name); ok {
			el.Attrs[name] = v
		}
	}
	return el, true, nil
}

var (
	reRelativeDate = regexp.MustCompile(`(?i)hora|minuto|día|semana|mes|año|hour|minute|day|week|month|year|ago|hace|ayer|yesterday`)
	reAbsoluteDate = regexp.MustCompile(`(?i)\d{1,2}\s*(de\s+)?\w+\s*(de\s+)?\d{4}`)
	reDigit        = regexp.MustCompile(`\d`)
)

// Probe mirrors ProbeScript on the parsed document.
func (d *DocumentPage) Probe(context.Context) (*Probe, error) {
	p := &Probe{}
	d.doc.Find("[aria-label]").Each(func(_ int, s *goquery.Selection) {
		if label, _ := s.Attr("aria-label"); label != "" {
			p.AriaLabels = append(p.AriaLabels, label)
		}
	})
	d.doc.Find("span").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" && len(text) < 150 && reDigit.MatchString(text) {
			p.EngagementTexts = append(p.EngagementTexts, text)
		}
	})
	d.doc.Find(`div[role="button"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" && len(text) < 100 {
			p.ButtonTexts = append(p.ButtonTexts, text)
		}
	})

	if v := d.doc.Find("video").First(); v.Length() > 0 {
		video := &Video{Src: v.AttrOr("src", ""), Poster: v.AttrOr("poster", "")}
		if video.Src == "" {
			video.Src = v.Find("source[src]").First().AttrOr("src", "")
		}
		if dur, err := strconv.ParseFloat(v.AttrOr("data-duration", ""), 64); err == nil {
			video.Duration = dur
		}
		p.Video = video
	}

	d.doc.Find(`a[role="link"][aria-label]`).Each(func(_ int, s *goquery.Selection) {
		label := s.AttrOr("aria-label", "")
		if reDigit.MatchString(label) && (reRelativeDate.MatchString(label) || reAbsoluteDate.MatchString(label)) {
			p.PostDate = label
		}
	})
	if p.PostDate == "" {
		d.doc.Find("abbr, time").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v := s.AttrOr("title", "")
			if v == "" {
				v = s.AttrOr("datetime", "")
			}
			p.PostDate = v
			return v == ""
		})
	}
	return p, nil
}

// visibleText returns the text inside <body>, skipping script, style and
// noscript content.
func visibleText(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String())
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					buf.WriteString(text)
					buf.WriteByte('\n')
				}
			}
		}
	}
}
