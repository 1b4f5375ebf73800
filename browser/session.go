package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/postmeta/extract"
	"github.com/use-agent/postmeta/models"
)

// Session is one job's browser: a dedicated Chromium process with a single
// prepared page. It implements extract.Page and extract.VariantOpener.
type Session struct {
	*renderedPage

	launcher    *launcher.Launcher
	launched    bool
	browser     *rod.Browser
	stopCapture context.CancelFunc
	logger      *slog.Logger
	navTimeout  time.Duration

	fingerprint     Fingerprint
	cookiesInjected int
	navTimedOut     bool

	closeOnce sync.Once
}

// NavTimedOut reports whether navigation hit NavigationTimeout. The DOM
// present at that moment is still usable.
func (s *Session) NavTimedOut() bool { return s.navTimedOut }

// Fingerprint returns the profile this session was opened with.
func (s *Session) Fingerprint() Fingerprint { return s.fingerprint }

// CookiesInjected returns how many session cookies were set.
func (s *Session) CookiesInjected() int { return s.cookiesInjected }

// CaptureStats returns how many API responses matched and how many body
// reads failed.
func (s *Session) CaptureStats() (matches, failed int) {
	if s.renderedPage == nil || s.capture == nil {
		return 0, 0
	}
	return s.capture.Stats()
}

func (s *Session) navigate(ctx context.Context, target string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	err := p.Navigate(target)
	if err == nil {
		err = p.WaitLoad()
	}
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return models.NewScrapeError(models.ErrCodeTimeout, "job deadline reached during navigation", ctx.Err())
	case isTimeout(err):
		s.navTimedOut = true
		s.logger.Warn("navigation timed out, continuing with current DOM",
			"url", target, "timeout", s.navTimeout)
		return nil
	default:
		return models.NewScrapeError(models.ErrCodeInternal, "navigation to target URL failed", err)
	}

	if stableErr := s.page.Context(ctx).Timeout(domStableTimeout).WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		s.logger.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}
	return nil
}

// OpenVariant opens variantURL in a new page of the same browser. The
// returned release func closes that page.
func (s *Session) OpenVariant(ctx context.Context, variantURL string) (extract.Page, func(), error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, fmt.Errorf("create variant page: %w", err)
	}
	release := func() { _ = page.Close() }

	if s.fingerprint.UserAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.fingerprint.UserAgent})
	}

	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()
	p := page.Context(navCtx)
	if err := p.Navigate(variantURL); err != nil {
		release()
		return nil, nil, fmt.Errorf("navigate variant: %w", err)
	}
	if err := p.WaitLoad(); err != nil && !isTimeout(err) {
		release()
		return nil, nil, fmt.Errorf("load variant: %w", err)
	}
	return &renderedPage{page: page}, release, nil
}

// Screenshot writes a PNG of the viewport into dir and returns its path.
func (s *Session) Screenshot(ctx context.Context, dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("no debug directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

// Close releases the page, the browser and the Chromium process. It is safe
// to call more than once and on a partially opened session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.stopCapture != nil {
			s.stopCapture()
		}
		if s.renderedPage != nil && s.page != nil {
			if err := s.page.Close(); err != nil {
				s.logger.Debug("page close failed", "error", err)
			}
		}
		if s.renderedPage != nil && s.capture != nil {
			s.capture.drain()
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.logger.Debug("browser close failed", "error", err)
			}
		}
		switch {
		case s.launched:
			s.launcher.Kill()
			s.launcher.Cleanup()
		case s.launcher != nil:
			// Cleanup blocks until the process exits, which never happens
			// when it failed to start.
			_ = os.RemoveAll(s.launcher.Get(flags.UserDataDir))
		}
	})
}
