// Package browser owns the per-job Chromium session: launch, stealth,
// fingerprint, credentials, navigation and cleanup.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/models"
)

// domStableTimeout bounds the post-load settle wait.
const domStableTimeout = 10 * time.Second

// Manager opens isolated render sessions. It holds only read-only
// configuration and is safe for concurrent use.
type Manager struct {
	browserCfg config.BrowserConfig
	sessionCfg config.SessionConfig
	logger     *slog.Logger
}

// NewManager creates a Manager.
func NewManager(browserCfg config.BrowserConfig, sessionCfg config.SessionConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{browserCfg: browserCfg, sessionCfg: sessionCfg, logger: logger}
}

// ProxyConfigured reports whether sessions go through a proxy.
func (m *Manager) ProxyConfigured() bool { return m.sessionCfg.Proxy.Configured() }

// CookiesConfigured reports whether session cookies will be injected.
func (m *Manager) CookiesConfigured() bool { return HasSessionCookies(m.sessionCfg.Cookies) }

// Open launches a dedicated browser, prepares a page with a fresh
// fingerprint and navigates to target.
//
// A navigation timeout is not an error: the session is returned with
// NavTimedOut set. On any error every acquired resource is released before
// returning.
func (m *Manager) Open(ctx context.Context, target string) (_ *Session, err error) {
	fp := PickFingerprint(m.sessionCfg, nil)
	logger := m.logger.With("viewport", fmt.Sprintf("%dx%d", fp.Width, fp.Height))

	s := &Session{fingerprint: fp, logger: logger, navTimeout: m.browserCfg.NavigationTimeout}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	// ── 1. Launch ───────────────────────────────────────────────────
	s.launcher = m.newLauncher(fp)
	controlURL, err := s.launcher.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to launch browser", err)
	}
	s.launched = true

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to connect to browser", err)
	}

	// ── 2. Proxy authentication ─────────────────────────────────────
	if proxy := m.sessionCfg.Proxy; proxy.Configured() && proxy.Username != "" {
		wait := s.browser.HandleAuth(proxy.Username, proxy.Password)
		go func() {
			if authErr := wait(); authErr != nil {
				logger.Debug("proxy auth handler stopped", "error", authErr)
			}
		}()
	}

	// ── 3. Page with stealth and fingerprint (before navigation) ────
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to create page", err)
	}
	m.preparePage(page, fp, target, logger)

	// ── 4. Cookies ──────────────────────────────────────────────────
	s.cookiesInjected = m.injectCookies(page, logger)

	// ── 5. Resource blocking and network capture ────────────────────
	if n, blockErr := blockResources(page, m.browserCfg.BlockedResourceTypes); blockErr != nil {
		logger.Warn("resource blocking unavailable", "error", blockErr)
	} else if n > 0 {
		logger.Debug("resource blocking installed", "patterns", n)
	}
	captureCtx, stopCapture := context.WithCancel(context.Background())
	s.stopCapture = stopCapture
	s.renderedPage = &renderedPage{page: page, capture: startCapture(captureCtx, page, logger)}

	// ── 6. Navigate ─────────────────────────────────────────────────
	if err := s.navigate(ctx, target); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) newLauncher(fp Fingerprint) *launcher.Launcher {
	l := launcher.New().
		Headless(m.browserCfg.Headless).
		NoSandbox(m.browserCfg.NoSandbox)

	if m.browserCfg.BrowserBin != "" {
		l = l.Bin(m.browserCfg.BrowserBin)
	}
	if m.sessionCfg.Proxy.Configured() {
		l = l.Proxy(m.sessionCfg.Proxy.Server)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", fp.Width, fp.Height))
	if fp.Locale != "" {
		l.Set(flags.Flag("lang"), fp.Locale)
	}
	return l
}

// preparePage applies stealth, fingerprint and headers. Failures degrade
// stealth but never abort the session.
func (m *Manager) preparePage(page *rod.Page, fp Fingerprint, target string, logger *slog.Logger) {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"user_agent", func() error {
			if fp.UserAgent == "" {
				return nil
			}
			return page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
				UserAgent:      fp.UserAgent,
				AcceptLanguage: fp.Locale,
			})
		}},
		{"viewport", func() error {
			return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
				Width:             fp.Width,
				Height:            fp.Height,
				DeviceScaleFactor: fp.ScaleFactor,
			})
		}},
		{"touch", func() error {
			return proto.EmulationSetTouchEmulationEnabled{Enabled: fp.Touch}.Call(page)
		}},
		{"locale", func() error {
			if fp.Locale == "" {
				return nil
			}
			return proto.EmulationSetLocaleOverride{Locale: fp.Locale}.Call(page)
		}},
		{"timezone", func() error {
			if fp.Timezone == "" {
				return nil
			}
			return proto.EmulationSetTimezoneOverride{TimezoneID: fp.Timezone}.Call(page)
		}},
		{"referer", func() error {
			u, err := url.Parse(target)
			if err != nil {
				return err
			}
			return proto.NetworkSetExtraHTTPHeaders{Headers: proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
			}}.Call(page)
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			logger.Warn("fingerprint step failed", "step", step.name, "error", err)
		}
	}
}

// injectCookies sets the session cookies when the c_user/xs pair is
// configured. It returns how many were set.
func (m *Manager) injectCookies(page *rod.Page, logger *slog.Logger) int {
	if !HasSessionCookies(m.sessionCfg.Cookies) {
		logger.Warn("no session cookies configured, browsing anonymously")
		return 0
	}
	n := 0
	for _, c := range m.sessionCfg.Cookies {
		_, err := proto.NetworkSetCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   m.sessionCfg.CookieDomain,
			Path:     "/",
			Secure:   true,
			HTTPOnly: c.HTTPOnly,
			SameSite: proto.NetworkCookieSameSiteNone,
		}.Call(page)
		if err != nil {
			logger.Warn("cookie injection failed", "cookie", c.Name, "error", err)
			continue
		}
		n++
	}
	logger.Info("session cookies injected", "count", n)
	return n
}

// isTimeout reports whether err is a deadline rather than a failure.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
