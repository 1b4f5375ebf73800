package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/use-agent/postmeta/models"
)

var titleReactions = []*regexp.Regexp{ci(num + `\s*(?:reactions?|reacciones)`)}

// TitleDecomposition parses composite titles of the form
// "322 reactions · 40 shares | Great sunset! | Mario".
func TitleDecomposition() Strategy {
	return Strategy{Name: "title_decomposition", Run: titleDecomposition}
}

// Only og:title is decomposed. The document title of an empty page is
// "<name> | Facebook", which would otherwise read as caption and author.
func titleDecomposition(_ context.Context, _ Page, cur models.Record) (models.Record, error) {
	title := cur.RawOG["og_title"]
	if title == "" {
		return models.Record{}, ErrNotApplicable
	}
	return DecomposeTitle(title), nil
}

// siteNames are trailing title segments that name the site, not the author.
var siteNames = map[string]bool{"facebook": true, "instagram": true}

// DecomposeTitle extracts counts, caption and author from a composite title.
func DecomposeTitle(title string) models.Record {
	fill := models.Record{
		ReactionsRaw: firstMatch(titleReactions, title),
		SharesRaw:    firstMatch(sharePatterns, title),
		CommentsRaw:  firstMatch(commentPatterns, title),
		ViewsRaw:     firstMatch(viewPatterns, title),
	}

	if !strings.Contains(title, "|") {
		return fill
	}
	parts := strings.Split(title, "|")
	if len(parts) > 1 && siteNames[strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))] {
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return fill
	}
	if author := strings.TrimSpace(parts[len(parts)-1]); len(author) > 1 && len(author) < 100 {
		fill.Author = author
	}
	var caption string
	if len(parts) >= 3 {
		caption = parts[1]
	} else {
		caption = stripEngagementPrefix(parts[0])
	}
	fill.Caption = strings.TrimSpace(caption)
	return fill
}

// stripEngagementPrefix removes leading "291 reactions · 38 shares" runs.
func stripEngagementPrefix(s string) string {
	s = strings.TrimSpace(s)
	for {
		loc := reEngagementPrefix.FindStringIndex(s)
		if loc == nil || loc[1] == 0 {
			return s
		}
		s = strings.TrimSpace(s[loc[1]:])
	}
}
