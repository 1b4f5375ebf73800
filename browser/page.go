package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/postmeta/extract"
)

// renderedPage adapts a live rod page to extract.Page. Every call binds the
// caller's context so a finished job cannot hang on the browser.
type renderedPage struct {
	page    *rod.Page
	capture *capture
}

var _ extract.Page = (*renderedPage)(nil)

func (r *renderedPage) URL(ctx context.Context) (string, error) {
	return r.evalString(ctx, `() => window.location.href`)
}

func (r *renderedPage) Title(ctx context.Context) (string, error) {
	return r.evalString(ctx, `() => document.title`)
}

func (r *renderedPage) HTML(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *renderedPage) BodyText(ctx context.Context) (string, error) {
	return r.evalString(ctx, `() => document.body ? document.body.innerText : ""`)
}

func (r *renderedPage) Probe(ctx context.Context) (*extract.Probe, error) {
	res, err := r.page.Context(ctx).Eval(extract.ProbeScript)
	if err != nil {
		return nil, fmt.Errorf("browser: probe: %w", err)
	}
	var probe extract.Probe
	if err := res.Value.Unmarshal(&probe); err != nil {
		return nil, fmt.Errorf("browser: decode probe: %w", err)
	}
	return &probe, nil
}

func (r *renderedPage) First(ctx context.Context, selector string, attrs ...string) (extract.Element, bool, error) {
	els, err := r.page.Context(ctx).Elements(selector)
	if err != nil {
		return extract.Element{}, false, err
	}
	if els.Empty() {
		return extract.Element{}, false, nil
	}
	el := els.First()
	text, err := el.Text()
	if err != nil {
		return extract.Element{}, false, err
	}
	out := extract.Element{Text: text, Attrs: make(map[string]string, len(attrs))}
	for _, name := range attrs {
		if v, err := el.Attribute(name); err == nil && v != nil {
			out.Attrs[name] = *v
		}
	}
	return out, true, nil
}

func (r *renderedPage) NetworkSnippets() []string { return r.capture.Snippets() }

func (r *renderedPage) evalString(ctx context.Context, js string) (string, error) {
	res, err := r.page.Context(ctx).Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// ── behavior.Surface ────────────────────────────────────────────────

func (r *renderedPage) MoveMouse(ctx context.Context, x, y float64) error {
	return r.page.Context(ctx).Mouse.MoveLinear(proto.Point{X: x, Y: y}, 8)
}

func (r *renderedPage) ScrollBy(ctx context.Context, dy int) error {
	_, err := r.page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (r *renderedPage) ScrollToBottom(ctx context.Context) error {
	_, err := r.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`)
	return err
}

func (r *renderedPage) ScrollToTop(ctx context.Context) error {
	_, err := r.page.Context(ctx).Eval(`() => window.scrollTo(0, 0)`)
	return err
}

// ClickFirst clicks the first element matching any selector. It reports
// whether something was clicked.
func (r *renderedPage) ClickFirst(ctx context.Context, selectors ...string) (bool, error) {
	p := r.page.Context(ctx)
	for _, sel := range selectors {
		has, el, err := p.Has(sel)
		if err != nil {
			return false, err
		}
		if !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// UnlockScroll clears the overflow lock modals leave on html and body.
func (r *renderedPage) UnlockScroll(ctx context.Context) error {
	_, err := r.page.Context(ctx).Eval(`() => {
		document.documentElement.style.overflow = '';
		if (document.body) document.body.style.overflow = '';
	}`)
	return err
}
