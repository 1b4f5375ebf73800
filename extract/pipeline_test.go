package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/postmeta/models"
)

func static(fill models.Record) Strategy {
	return Strategy{Name: "static", Run: func(context.Context, Page, models.Record) (models.Record, error) {
		return fill, nil
	}}
}

func TestPipeline_FirstWriterWins(t *testing.T) {
	first := static(models.Record{Caption: "from first"})
	second := static(models.Record{Caption: "from second", Author: "Mario"})

	rec, _ := NewPipeline(nil, 0, first, second).Run(context.Background(), nil)
	assert.Equal(t, "from first", rec.Caption)
	assert.Equal(t, "Mario", rec.Author)

	rec, _ = NewPipeline(nil, 0, second).Run(context.Background(), nil)
	assert.Equal(t, "from second", rec.Caption)
}

const ogFixture = `<html><head>
<title>Mario | Facebook</title>
<meta property="og:title" content="322 reactions · 40 shares | Great sunset! | Mario">
%s
<meta property="og:image" content="https://scontent.xx.fbcdn.net/v/t39.30808-6/1_n.jpg">
<meta property="og:url" content="https://www.facebook.com/mario/posts/1">
<meta property="og:type" content="article">
</head><body><p>Post</p></body></html>`

func fixture(t *testing.T, description string) *DocumentPage {
	t.Helper()
	meta := ""
	if description != "" {
		meta = `<meta property="og:description" content="` + description + `">`
	}
	page, err := NewDocumentPage("https://www.facebook.com/mario/posts/1", fmt.Sprintf(ogFixture, meta), nil)
	require.NoError(t, err)
	return page
}

func TestPipeline_OpenGraphThenTitle(t *testing.T) {
	p := NewPipeline(nil, 20, OpenGraph(), TitleDecomposition())

	rec, _ := p.Run(context.Background(), fixture(t, "Sunset over the bay"))
	assert.Equal(t, "Sunset over the bay", rec.Caption)
	assert.Equal(t, "Mario", rec.Author)
	require.NotNil(t, rec.ReactionsCount)
	assert.Equal(t, int64(322), *rec.ReactionsCount)
	require.NotNil(t, rec.SharesCount)
	assert.Equal(t, int64(40), *rec.SharesCount)
	assert.Equal(t, "https://www.facebook.com/mario/posts/1", rec.CanonicalURL)
	assert.Equal(t, "article", rec.ContentType)
	assert.Equal(t, "Mario | Facebook", rec.RawOG["page_title"])
	assert.Equal(t, 5, OGTagCount(rec.RawOG))

	// Without og:description the title layer supplies the caption.
	rec, _ = p.Run(context.Background(), fixture(t, ""))
	assert.Equal(t, "Great sunset!", rec.Caption)
}

func TestPipeline_StrategyPanicIsIsolated(t *testing.T) {
	boom := Strategy{Name: "boom", Run: func(context.Context, Page, models.Record) (models.Record, error) {
		panic("selector exploded")
	}}
	after := static(models.Record{ViewsRaw: "10"})

	rec, report := NewPipeline(nil, 0, boom, after).Run(context.Background(), nil)
	assert.Equal(t, "10", rec.ViewsRaw)
	require.Len(t, report.Strategies, 2)
	assert.Error(t, report.Strategies[0].Err)
	assert.Equal(t, []string{"views_raw"}, report.Strategies[1].Filled)
}

func TestPipeline_CanceledContextSkipsStrategies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, report := NewPipeline(nil, 0, static(models.Record{Caption: "x"})).Run(ctx, nil)
	assert.Empty(t, rec.Caption)
	assert.False(t, report.Ran("static"))
}

func TestFinalize(t *testing.T) {
	rec := models.Record{
		CommentsRaw: "lots",
		ViewsRaw:    "5,5 mil",
		Images:      []string{"a.jpg", "b.jpg", "c.jpg"},
		VideoPoster: "poster.jpg",
	}
	Finalize(&rec, 2)

	assert.Equal(t, "lots", rec.CommentsRaw)
	assert.Nil(t, rec.CommentsCount)
	require.NotNil(t, rec.ViewsCount)
	assert.Equal(t, int64(5500), *rec.ViewsCount)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, rec.Images)
	assert.Equal(t, "a.jpg", rec.Image)
	assert.Equal(t, "poster.jpg", rec.VideoThumbnail)
}

func TestPipeline_DocumentTitleAloneIsNotContent(t *testing.T) {
	page, err := NewDocumentPage("https://www.facebook.com/mario.rossi",
		"<html><head><title>Mario Rossi | Facebook</title></head><body></body></html>", nil)
	require.NoError(t, err)

	rec, _ := NewPipeline(nil, 20, OpenGraph(), TitleDecomposition(), DOMFallback()).Run(context.Background(), page)
	assert.Empty(t, rec.Author)
	assert.Empty(t, rec.Caption)
	assert.False(t, rec.HasContent())
	assert.Equal(t, "Mario Rossi | Facebook", rec.RawOG["page_title"])
}
