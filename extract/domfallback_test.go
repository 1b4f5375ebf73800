package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/postmeta/models"
)

const postURL = "https://www.facebook.com/ana.perez/posts/1"

func docPage(t *testing.T, html string) *DocumentPage {
	t.Helper()
	page, err := NewDocumentPage(postURL, html, nil)
	require.NoError(t, err)
	return page
}

func TestDOMFallback_AlreadyFilled(t *testing.T) {
	cur := models.Record{Caption: "c", Author: "a", VideoPoster: "https://scontent.xx.fbcdn.net/p.jpg"}

	_, err := domFallback(context.Background(), docPage(t, "<html><body></body></html>"), cur)
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestDOMFallback_SelectorsSkipSiteChrome(t *testing.T) {
	page := docPage(t, `<html><body>
<h2><a role="link" href="/">Facebook</a></h2>
<h3><a role="link" href="/ana.perez?ref=post">Ana Pérez</a></h3>
<div data-ad-preview="message">Sunrise at the pier today</div>
</body></html>`)

	fill, err := domFallback(context.Background(), page, models.Record{})
	require.NoError(t, err)
	assert.Equal(t, "Sunrise at the pier today", fill.Caption)
	assert.Equal(t, "Sunrise at the pier today", fill.Description)
	assert.Equal(t, "Ana Pérez", fill.Author)
	assert.Equal(t, "https://www.facebook.com/ana.perez?ref=post", fill.UserLink)
}

func TestDOMFallback_ShortCaptionIgnored(t *testing.T) {
	page := docPage(t, `<html><body><div data-ad-preview="message">ok</div></body></html>`)

	fill, err := domFallback(context.Background(), page, models.Record{Author: "Ana"})
	require.NoError(t, err)
	assert.Empty(t, fill.Caption)
}

func TestDOMFallback_Video(t *testing.T) {
	filled := models.Record{Caption: "c", Author: "a"}

	tests := []struct {
		name    string
		html    string
		wantURL string
	}{
		{
			name:    "blob source skipped",
			html:    `<video src="blob:https://www.facebook.com/1a2b" poster="https://scontent.xx.fbcdn.net/p.jpg"></video>`,
			wantURL: "",
		},
		{
			name:    "direct source kept",
			html:    `<video src="https://video.xx.fbcdn.net/v.mp4" poster="https://scontent.xx.fbcdn.net/p.jpg"></video>`,
			wantURL: "https://video.xx.fbcdn.net/v.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := docPage(t, "<html><body>"+tt.html+"</body></html>")

			fill, err := domFallback(context.Background(), page, filled)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, fill.VideoURL)
			assert.Equal(t, "https://scontent.xx.fbcdn.net/p.jpg", fill.VideoPoster)
			assert.Empty(t, fill.Author)
		})
	}
}

func TestDOMFallback_ReadabilityBylineAndExcerpt(t *testing.T) {
	page := docPage(t, `<html><head>
<meta name="author" content="Ana Pérez">
<meta name="description" content="A quiet morning by the lake">
</head><body><p>Post</p></body></html>`)

	fill, err := domFallback(context.Background(), page, models.Record{})
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", fill.Author)
	assert.Equal(t, "A quiet morning by the lake", fill.Caption)
	assert.Empty(t, fill.UserLink)
}

func TestResolveLink(t *testing.T) {
	assert.Equal(t, "https://www.facebook.com/ana", resolveLink(postURL, "/ana"))
	assert.Equal(t, "https://m.facebook.com/ana", resolveLink(postURL, "https://m.facebook.com/ana"))
	assert.Empty(t, resolveLink(postURL, ""))
}
