package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the post page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// CallbackURL receives the terminal payload. When empty the
	// process-wide default webhook is used, if any.
	CallbackURL string `json:"callback_url,omitempty" binding:"omitempty,url"`

	// DebugRaw attaches truncated raw HTML and body text to the payload.
	DebugRaw bool `json:"debug_raw,omitempty"`

	// RawSnippetLen is the snippet length for DebugRaw. Default: 5000.
	RawSnippetLen int `json:"raw_snippet_len,omitempty" binding:"omitempty,min=0,max=200000"`

	// ExtraWaitSeconds is added to the pre-extraction delay.
	ExtraWaitSeconds float64 `json:"extra_wait_seconds,omitempty" binding:"omitempty,min=0,max=120"`

	// Screenshot saves a PNG of the viewport for offline diagnosis.
	Screenshot bool `json:"screenshot,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.DebugRaw && r.RawSnippetLen == 0 {
		r.RawSnippetLen = 5000
	}
}

// DebugOptions returns the per-job debug flags.
func (r *ScrapeRequest) DebugOptions() DebugOptions {
	return DebugOptions{
		Raw:              r.DebugRaw,
		RawSnippetLen:    r.RawSnippetLen,
		ExtraWaitSeconds: r.ExtraWaitSeconds,
		Screenshot:       r.Screenshot,
	}
}
