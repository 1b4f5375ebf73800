package models

import "time"

// JobStatus is the lifecycle state of a scrape job.
type JobStatus string

const (
	StatusAccepted JobStatus = "accepted"
	StatusRunning  JobStatus = "running"
	StatusSuccess  JobStatus = "success"
	StatusError    JobStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// DebugOptions are the optional per-job diagnostic flags.
type DebugOptions struct {
	Raw              bool
	RawSnippetLen    int
	ExtraWaitSeconds float64
	Screenshot       bool
}

// Job tracks one accepted scrape request. Values handed out by the
// coordinator are snapshots; mutating them has no effect.
type Job struct {
	ID          string
	URL         string
	CallbackURL string
	Debug       DebugOptions
	Status      JobStatus
	CreatedAt   time.Time
	CompletedAt time.Time
	Payload     *Payload // set once the job is terminal
}

// Payload is the terminal message delivered to the callback.
type Payload struct {
	JobID      string      `json:"job_id"`
	URL        string      `json:"url"`
	Status     JobStatus   `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       *Record     `json:"data"`
	Error      *string     `json:"error"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
	Debug      *Artifacts  `json:"debug,omitempty"`
}

// Diagnostic summarises the final page state and session setup.
type Diagnostic struct {
	FinalURL          string `json:"final_url,omitempty"`
	PageTitle         string `json:"page_title,omitempty"`
	HTMLLength        int    `json:"html_length"`
	OGTagsFound       int    `json:"og_tags_found"`
	NavTimedOut       bool   `json:"nav_timed_out"`
	ProxyConfigured   bool   `json:"proxy_configured"`
	CookiesInjected   int    `json:"cookies_injected"`
	NetworkSnippets   int    `json:"network_snippets"`
	MobileFallbackRun bool   `json:"mobile_fallback_run"`
	Verdict           string `json:"verdict,omitempty"`
}

// Artifacts are optional operator-facing debug captures.
type Artifacts struct {
	RawHTMLSnippet     string `json:"raw_html_snippet,omitempty"`
	RawBodyTextSnippet string `json:"raw_body_text_snippet,omitempty"`
	ScreenshotPath     string `json:"screenshot_path,omitempty"`
}

// Clone returns a deep copy of p. A nil payload clones to nil.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := *p
	if p.Data != nil {
		rec := p.Data.Clone()
		out.Data = &rec
	}
	if p.Error != nil {
		e := *p.Error
		out.Error = &e
	}
	if p.Diagnostic != nil {
		d := *p.Diagnostic
		out.Diagnostic = &d
	}
	if p.Debug != nil {
		a := *p.Debug
		out.Debug = &a
	}
	return &out
}

// Snapshot returns a copy of j that shares no memory with it.
func (j Job) Snapshot() Job {
	j.Payload = j.Payload.Clone()
	return j
}
