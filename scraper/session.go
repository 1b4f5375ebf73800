package scraper

import (
	"context"

	"github.com/use-agent/postmeta/behavior"
	"github.com/use-agent/postmeta/browser"
	"github.com/use-agent/postmeta/extract"
)

// Session is an open render session as the scraper uses it.
type Session interface {
	extract.Page
	extract.VariantOpener
	behavior.Surface

	NavTimedOut() bool
	CookiesInjected() int
	CaptureStats() (matches, failed int)
	Screenshot(ctx context.Context, dir, name string) (string, error)
	Close()
}

// Opener opens a render session navigated to target.
type Opener interface {
	Open(ctx context.Context, target string) (Session, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, target string) (Session, error)

func (f OpenerFunc) Open(ctx context.Context, target string) (Session, error) { return f(ctx, target) }

// BrowserOpener opens sessions through a browser.Manager.
func BrowserOpener(m *browser.Manager) Opener {
	return OpenerFunc(func(ctx context.Context, target string) (Session, error) {
		s, err := m.Open(ctx, target)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
