package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/postmeta/models"
)

func filled() models.Record {
	return models.Record{Caption: "Great sunset!", ReactionsRaw: "1.2K"}
}

func TestClassify(t *testing.T) {
	c := New(2000)

	tests := []struct {
		name string
		in   Input
		want Verdict
	}{
		{
			name: "checkpoint redirect",
			in:   Input{FinalURL: "https://www.facebook.com/checkpoint/?next", HTMLLength: 50000, Record: filled()},
			want: Verdict{Kind: KindBlocked, Reason: ReasonLoginWall},
		},
		{
			name: "login redirect",
			in:   Input{FinalURL: "https://www.facebook.com/login/?next=%2Fpost", HTMLLength: 50000},
			want: Verdict{Kind: KindBlocked, Reason: ReasonLoginWall},
		},
		{
			name: "login title",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", Title: "Log in to Facebook", HTMLLength: 50000},
			want: Verdict{Kind: KindBlocked, Reason: ReasonLoginWall},
		},
		{
			name: "short html with challenge title",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", Title: "Just a moment...", HTMLLength: 900},
			want: Verdict{Kind: KindBlocked, Reason: ReasonSoftBlock},
		},
		{
			name: "short html alone",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", HTMLLength: 1999, Record: filled()},
			want: Verdict{Kind: KindBlocked, Reason: ReasonSoftBlock},
		},
		{
			name: "challenge title on long page",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", Title: "Security Check", HTMLLength: 90000},
			want: Verdict{Kind: KindBlocked, Reason: ReasonSoftBlock},
		},
		{
			name: "generic shell",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", Title: "Facebook", HTMLLength: 90000},
			want: Verdict{Kind: KindBlocked, Reason: ReasonShellPage},
		},
		{
			name: "empty record after timeout",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", HTMLLength: 90000, NavTimedOut: true},
			want: Verdict{Kind: KindTimedOut},
		},
		{
			name: "empty record",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", HTMLLength: 90000},
			want: Verdict{Kind: KindParsingFailed},
		},
		{
			name: "timeout with content",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", HTMLLength: 90000, NavTimedOut: true, Record: filled()},
			want: Verdict{Kind: KindSuccess},
		},
		{
			name: "post mentioning login in caption title",
			in:   Input{FinalURL: "https://www.facebook.com/p/1", Title: "How I fixed my login bug | Dev Page", HTMLLength: 90000, Record: filled()},
			want: Verdict{Kind: KindSuccess},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.in))
		})
	}
}

func TestVerdictErrorCode(t *testing.T) {
	assert.Equal(t, models.ErrCodeLoginWall, Verdict{Kind: KindBlocked, Reason: ReasonLoginWall}.ErrorCode())
	assert.Equal(t, models.ErrCodeSoftBlock, Verdict{Kind: KindBlocked, Reason: ReasonSoftBlock}.ErrorCode())
	assert.Equal(t, models.ErrCodeSoftBlock, Verdict{Kind: KindBlocked, Reason: ReasonShellPage}.ErrorCode())
	assert.Equal(t, models.ErrCodeTimeout, Verdict{Kind: KindTimedOut}.ErrorCode())
	assert.Equal(t, models.ErrCodeParsingFailed, Verdict{Kind: KindParsingFailed}.ErrorCode())
	assert.Empty(t, Verdict{Kind: KindSuccess}.ErrorCode())
	assert.Equal(t, "blocked:login_wall", Verdict{Kind: KindBlocked, Reason: ReasonLoginWall}.String())
}
