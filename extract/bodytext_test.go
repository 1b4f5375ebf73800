package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const galleryHTML = `<html><body>
<script>{"uri":"https:\/\/scontent-mad1-1.xx.fbcdn.net\/v\/t39.30808-6\/111_n.jpg?_nc_cat=1&oh=abc"},
{"uri":"https:\/\/scontent-mad1-1.xx.fbcdn.net\/v\/t39.30808-6\/111_n.jpg?_nc_cat=2&oh=def"},
{"uri":"https:\/\/scontent.xx.fbcdn.net\/v\/t39.30808-1\/p40x40\/avatar.jpg"},
{"uri":"https:\/\/scontent.xx.fbcdn.net\/images\/emoji\/smile.png"},
{"src":"https:\/\/scontent.xx.fbcdn.net\/v\/t39.30808-6\/333_n.webp"}</script>
<img src="https://scontent.xx.fbcdn.net/v/t39.30808-6/222_n.jpg?a=1&amp;b=2">
<img src="https://example.com/not-cdn.jpg">
</body></html>`

func TestGalleryImages_DedupesAndFilters(t *testing.T) {
	images := GalleryImages(galleryHTML, 20)

	assert.Equal(t, []string{
		"https://scontent-mad1-1.xx.fbcdn.net/v/t39.30808-6/111_n.jpg?_nc_cat=1&oh=abc",
		"https://scontent.xx.fbcdn.net/v/t39.30808-6/333_n.webp",
		"https://scontent.xx.fbcdn.net/v/t39.30808-6/222_n.jpg?a=1&b=2",
	}, images)
}

func TestGalleryImages_RespectsLimit(t *testing.T) {
	assert.Len(t, GalleryImages(galleryHTML, 2), 2)
}

func TestBodyText_EmbeddedCountersAndSnippets(t *testing.T) {
	raw := `<html><body><p>Nice post</p><script>{"total_comment_count":42,"share_count":{"count":7}}</script></body></html>`
	page, err := NewDocumentPage("https://www.facebook.com/p/1", raw, []string{`{"video_view_count":"12K"}`})
	require.NoError(t, err)

	fill, err := BodyText(20).Run(context.Background(), page, fill0())
	require.NoError(t, err)
	assert.Equal(t, "42", fill.CommentsRaw)
	assert.Equal(t, "7", fill.SharesRaw)
	assert.Equal(t, "12K", fill.ViewsRaw)
	assert.Empty(t, fill.ReactionsRaw)
}

func TestBodyText_VisibleTextWinsOverEmbedded(t *testing.T) {
	raw := `<html><body><div>Todas las reacciones: 291</div><div>16 comentarios</div>
<script>{"reaction_count":5,"comment_count":3}</script></body></html>`
	page, err := NewDocumentPage("https://www.facebook.com/p/1", raw, nil)
	require.NoError(t, err)

	fill, err := BodyText(0).Run(context.Background(), page, fill0())
	require.NoError(t, err)
	assert.Equal(t, "291", fill.ReactionsRaw)
	assert.Equal(t, "16", fill.CommentsRaw)
	assert.Empty(t, fill.Images)
}
