package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecomposeTitle_ThreeParts(t *testing.T) {
	rec := DecomposeTitle("322 reactions · 40 shares | Great sunset! | Mario")

	assert.Equal(t, "322", rec.ReactionsRaw)
	assert.Equal(t, "40", rec.SharesRaw)
	assert.Contains(t, rec.Caption, "Great sunset!")
	assert.Contains(t, rec.Author, "Mario")
	assert.Empty(t, rec.CommentsRaw)
}

func TestDecomposeTitle_TwoPartsStripsEngagementPrefix(t *testing.T) {
	rec := DecomposeTitle("1.2K reactions · 5 comments · Nice day at the beach | Ana")

	assert.Equal(t, "1.2K", rec.ReactionsRaw)
	assert.Equal(t, "5", rec.CommentsRaw)
	assert.Equal(t, "Nice day at the beach", rec.Caption)
	assert.Equal(t, "Ana", rec.Author)
}

func TestDecomposeTitle_Spanish(t *testing.T) {
	rec := DecomposeTitle("291 reacciones · 38 veces compartido | Atardecer | Lucía")

	assert.Equal(t, "291", rec.ReactionsRaw)
	assert.Equal(t, "38", rec.SharesRaw)
	assert.Equal(t, "Lucía", rec.Author)
}

func TestDecomposeTitle_PlainTitle(t *testing.T) {
	rec := DecomposeTitle("Facebook")
	assert.False(t, rec.HasContent())
}

func TestDecomposeTitle_SiteNameIsNotAuthor(t *testing.T) {
	rec := DecomposeTitle("Mario Rossi | Facebook")
	assert.Empty(t, rec.Author)
	assert.Empty(t, rec.Caption)

	rec = DecomposeTitle("12 comments | Great sunset! | Mario | Facebook")
	assert.Equal(t, "Mario", rec.Author)
	assert.Equal(t, "Great sunset!", rec.Caption)
	assert.Equal(t, "12", rec.CommentsRaw)
}
