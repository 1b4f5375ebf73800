// Package scraper runs one job end to end: open a render session, drive the
// behavior simulator, extract, classify and build the terminal payload.
package scraper

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/use-agent/postmeta/behavior"
	"github.com/use-agent/postmeta/classify"
	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/extract"
	"github.com/use-agent/postmeta/models"
)

// Scraper holds the process-wide collaborators. It is safe for concurrent
// use; every call to Scrape gets its own session.
type Scraper struct {
	opener     Opener
	static     extract.VariantOpener
	simulator  *behavior.Simulator
	classifier *classify.Classifier

	browserCfg      config.BrowserConfig
	extractCfg      config.ExtractConfig
	proxyConfigured bool
	logger          *slog.Logger
	now             func() time.Time
}

// Options wires optional collaborators.
type Options struct {
	// Static serves the mobile-variant pass when the fallback engine is
	// "http". Nil falls back to the browser session.
	Static extract.VariantOpener

	ProxyConfigured bool
	Logger          *slog.Logger
}

// New creates a Scraper.
func New(cfg *config.Config, opener Opener, opts Options) *Scraper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		opener:          opener,
		static:          opts.Static,
		simulator:       behavior.New(cfg.Behavior, logger),
		classifier:      classify.New(cfg.Extract.MinHTMLLength),
		browserCfg:      cfg.Browser,
		extractCfg:      cfg.Extract,
		proxyConfigured: opts.ProxyConfigured,
		logger:          logger,
		now:             time.Now,
	}
}

// Scrape processes job and always returns a terminal payload.
//
// Pipeline:
//  1. Job deadline         – hard bound on the whole job
//  2. Open session         – launch, fingerprint, cookies, navigate
//  3. Behave               – scroll, dismiss overlays, settle
//  4. Extract              – strategy chain with optional mobile pass
//  5. Classify             – login wall, soft block, empty, success
//  6. Debug artifacts      – raw snippets, screenshot
func (s *Scraper) Scrape(ctx context.Context, job models.Job) *models.Payload {
	logger := s.logger.With("job_id", job.ID)
	payload := &models.Payload{JobID: job.ID, URL: job.URL}

	// ── 1. Job deadline ─────────────────────────────────────────────
	if s.browserCfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.browserCfg.JobTimeout)
		defer cancel()
	}

	// ── 2. Open session ─────────────────────────────────────────────
	start := s.now()
	sess, err := s.opener.Open(ctx, job.URL)
	if err != nil {
		se := categorizeError(err, "failed to open render session")
		logger.Error("render session failed", "code", se.Code, "error", err)
		return s.fail(payload, se.Code, &models.Diagnostic{ProxyConfigured: s.proxyConfigured})
	}
	defer sess.Close()
	logger.Info("page loaded", "nav_timed_out", sess.NavTimedOut(), "elapsed", s.now().Sub(start))

	// ── 3. Behave ───────────────────────────────────────────────────
	extraWait := time.Duration(job.Debug.ExtraWaitSeconds * float64(time.Second))
	if err := s.simulator.Run(ctx, sess, extraWait); err != nil {
		logger.Warn("job deadline reached during interaction", "error", err)
		// Extract whatever the page already shows, without the mobile pass.
		readCtx, cancel := detachedRead(ctx)
		defer cancel()
		rec, _ := extract.New(s.extractCfg, nil, logger).Run(readCtx, sess)
		if rec.HasContent() {
			payload.Data = &rec
		}
		return s.fail(payload, models.ErrCodeTimeout, s.diagnostic(ctx, sess, &rec))
	}

	// ── 4. Extract ──────────────────────────────────────────────────
	var opener extract.VariantOpener = sess
	if s.extractCfg.FallbackEngine == "http" && s.static != nil {
		opener = s.static
	}
	pipeline := extract.New(s.extractCfg, opener, logger)
	rec, report := pipeline.Run(ctx, sess)

	// ── 5. Classify ─────────────────────────────────────────────────
	diag := s.diagnostic(ctx, sess, &rec)
	diag.MobileFallbackRun = report.Ran("mobile_variant")
	verdict := s.classifier.Classify(classify.Input{
		FinalURL:    diag.FinalURL,
		Title:       diag.PageTitle,
		HTMLLength:  diag.HTMLLength,
		NavTimedOut: sess.NavTimedOut(),
		Record:      rec,
	})
	diag.Verdict = verdict.String()

	// ── 6. Debug artifacts ──────────────────────────────────────────
	payload.Debug = s.artifacts(ctx, sess, job, logger)

	if code := verdict.ErrorCode(); code != "" {
		logger.Warn("job classified as failure", "verdict", diag.Verdict, "final_url", diag.FinalURL)
		if rec.HasContent() {
			payload.Data = &rec
		}
		return s.fail(payload, code, diag)
	}

	logger.Info("job extracted",
		"caption", rec.Caption != "",
		"reactions", rec.ReactionsRaw,
		"comments", rec.CommentsRaw,
		"views", rec.ViewsRaw,
		"images", len(rec.Images),
	)
	payload.Status = models.StatusSuccess
	payload.Data = &rec
	payload.Diagnostic = diag
	payload.Timestamp = s.now().UTC()
	return payload
}

func (s *Scraper) fail(p *models.Payload, code string, diag *models.Diagnostic) *models.Payload {
	p.Status = models.StatusError
	p.Error = &code
	p.Diagnostic = diag
	p.Timestamp = s.now().UTC()
	return p
}

// diagnostic collects the final page state. Page reads are best-effort.
func (s *Scraper) diagnostic(ctx context.Context, sess Session, rec *models.Record) *models.Diagnostic {
	readCtx, cancel := detachedRead(ctx)
	defer cancel()

	d := &models.Diagnostic{
		NavTimedOut:     sess.NavTimedOut(),
		ProxyConfigured: s.proxyConfigured,
		CookiesInjected: sess.CookiesInjected(),
		NetworkSnippets: len(sess.NetworkSnippets()),
	}
	d.FinalURL, _ = sess.URL(readCtx)
	d.PageTitle, _ = sess.Title(readCtx)
	if html, err := sess.HTML(readCtx); err == nil {
		d.HTMLLength = len(html)
	}
	if rec != nil {
		d.OGTagsFound = extract.OGTagCount(rec.RawOG)
	}
	return d
}

func (s *Scraper) artifacts(ctx context.Context, sess Session, job models.Job, logger *slog.Logger) *models.Artifacts {
	if !job.Debug.Raw && !job.Debug.Screenshot {
		return nil
	}
	readCtx, cancel := detachedRead(ctx)
	defer cancel()

	a := &models.Artifacts{}
	if job.Debug.Raw {
		html, _ := sess.HTML(readCtx)
		text, _ := sess.BodyText(readCtx)
		a.RawHTMLSnippet = truncate(html, job.Debug.RawSnippetLen)
		a.RawBodyTextSnippet = truncate(text, job.Debug.RawSnippetLen)
	}
	if job.Debug.Screenshot {
		path, err := sess.Screenshot(readCtx, s.browserCfg.DebugDir, "postmeta-"+job.ID)
		if err != nil {
			logger.Warn("screenshot failed", "error", err)
		} else {
			a.ScreenshotPath = path
		}
	}
	return a
}

// detachedRead returns a short context for final page reads that still
// works after the job deadline has passed.
func detachedRead(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

// truncate cuts s to at most n bytes on a rune boundary. n <= 0 keeps s.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
