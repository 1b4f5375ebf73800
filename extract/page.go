package extract

import "context"

// Page is the read surface strategies run against. It is implemented by the
// live browser page and by DocumentPage over static HTML.
type Page interface {
	// URL is the page's current address after redirects.
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)

	// BodyText is the visible text of <body>.
	BodyText(ctx context.Context) (string, error)

	// Probe collects the accessibility and engagement hints in one pass.
	Probe(ctx context.Context) (*Probe, error)

	// First returns the first element matching selector, with the values
	// of the requested attributes.
	First(ctx context.Context, selector string, attrs ...string) (Element, bool, error)

	// NetworkSnippets returns captured API response bodies, if any.
	NetworkSnippets() []string
}

// Element is the subset of an element the DOM fallback reads.
type Element struct {
	Text  string
	Attrs map[string]string
}

// Attr returns the named attribute or "".
func (e Element) Attr(name string) string { return e.Attrs[name] }

// Probe is the result of the in-page accessibility scan.
type Probe struct {
	AriaLabels      []string `json:"aria_labels"`
	EngagementTexts []string `json:"engagement_texts"`
	ButtonTexts     []string `json:"button_texts"`
	Video           *Video   `json:"video"`
	PostDate        string   `json:"post_date"`
}

// Video describes the first <video> element on the page.
type Video struct {
	Src      string  `json:"src"`
	Poster   string  `json:"poster"`
	Duration float64 `json:"duration"`
}

// ProbeScript is evaluated in the page by browser-backed implementations.
// Its result decodes into Probe.
const ProbeScript = `() => {
	const data = { aria_labels: [], engagement_texts: [], button_texts: [], video: null, post_date: "" };
	document.querySelectorAll('[aria-label]').forEach(el => {
		const label = el.getAttribute('aria-label');
		if (label) data.aria_labels.push(label);
	});
	document.querySelectorAll('span').forEach(span => {
		const text = (span.innerText || '').trim();
		if (text && text.length < 150 && /\d/.test(text)) data.engagement_texts.push(text);
	});
	document.querySelectorAll('div[role="button"]').forEach(div => {
		const text = (div.innerText || '').trim();
		if (text && text.length < 100) data.button_texts.push(text);
	});
	const video = document.querySelector('video');
	if (video) {
		data.video = {
			src: video.currentSrc || video.src || '',
			poster: video.poster || '',
			duration: isFinite(video.duration) ? video.duration : 0,
		};
	}
	const relative = /hora|minuto|día|semana|mes|año|hour|minute|day|week|month|year|ago|hace|ayer|yesterday/i;
	const absolute = /\d{1,2}\s*(de\s+)?\w+\s*(de\s+)?\d{4}/i;
	document.querySelectorAll('a[role="link"][aria-label]').forEach(link => {
		const label = link.getAttribute('aria-label');
		if (/\d/.test(label) && (relative.test(label) || absolute.test(label))) data.post_date = label;
	});
	if (!data.post_date) {
		for (const el of document.querySelectorAll('abbr, time')) {
			const v = el.getAttribute('title') || el.getAttribute('datetime');
			if (v) { data.post_date = v; break; }
		}
	}
	return data;
}`
