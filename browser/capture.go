package browser

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	maxSnippets     = 25
	maxSnippetBytes = 50_000
	maxBodyBytes    = 1_000_000
)

// apiMarkers identify responses likely to carry engagement counters.
var apiMarkers = []string{
	"graphql", "/ajax/", "/api/", "/video/", "/reel/",
	"video_view_count", "play_count", "comment_count", "reaction_count",
}

var skippedTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeImage:      {},
	proto.NetworkResourceTypeMedia:      {},
	proto.NetworkResourceTypeFont:       {},
	proto.NetworkResourceTypeStylesheet: {},
}

// capture records API-looking response bodies while a page is open.
type capture struct {
	page   *rod.Page
	logger *slog.Logger

	mu       sync.Mutex
	pending  map[proto.NetworkRequestID]string
	snippets []string
	matches  int
	errors   int
	closed   bool // set by drain; no body reads start afterwards
	wg       sync.WaitGroup
}

// startCapture subscribes to network events until ctx is done.
func startCapture(ctx context.Context, page *rod.Page, logger *slog.Logger) *capture {
	c := &capture{
		page:    page,
		logger:  logger,
		pending: make(map[proto.NetworkRequestID]string),
	}
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		logger.Debug("network capture: enable failed", "error", err)
	}
	wait := page.Context(ctx).EachEvent(
		func(e *proto.NetworkResponseReceived) { c.onResponse(e) },
		func(e *proto.NetworkLoadingFinished) { c.onFinished(ctx, e) },
	)
	go wait()
	return c
}

func (c *capture) onResponse(e *proto.NetworkResponseReceived) {
	if e.Response == nil || !looksLikeAPI(e.Response.URL) {
		return
	}
	if _, skip := skippedTypes[e.Type]; skip {
		return
	}
	if contentLength(e.Response.Headers) > maxBodyBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches++
	if len(c.snippets)+len(c.pending) >= maxSnippets {
		return
	}
	c.pending[e.RequestID] = e.Response.URL
}

func (c *capture) onFinished(ctx context.Context, e *proto.NetworkLoadingFinished) {
	c.mu.Lock()
	url, ok := c.pending[e.RequestID]
	delete(c.pending, e.RequestID)
	if !ok || c.closed || e.EncodedDataLength > maxBodyBytes {
		c.mu.Unlock()
		return
	}
	// Body retrieval is a CDP round-trip and must not block the event loop.
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		res, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(c.page.Context(ctx))
		if err != nil {
			c.mu.Lock()
			c.errors++
			c.mu.Unlock()
			c.logger.Debug("network capture: body unavailable", "url", url, "error", err)
			return
		}
		body := res.Body
		if res.Base64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(body)
			if err != nil {
				return
			}
			body = string(decoded)
		}
		if body == "" {
			return
		}
		if len(body) > maxSnippetBytes {
			body = body[:maxSnippetBytes]
		}

		c.mu.Lock()
		if len(c.snippets) < maxSnippets {
			c.snippets = append(c.snippets, body)
		}
		c.mu.Unlock()
	}()
}

// Snippets returns a copy of the captured bodies.
func (c *capture) Snippets() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.snippets...)
}

// Stats returns the number of matching responses and failed body reads.
func (c *capture) Stats() (matches, errors int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matches, c.errors
}

// drain waits for in-flight body reads.
func (c *capture) drain() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

func looksLikeAPI(u string) bool {
	lower := strings.ToLower(u)
	for _, m := range apiMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func contentLength(h proto.NetworkHeaders) int {
	for k, v := range h {
		if strings.EqualFold(k, "content-length") {
			n, _ := strconv.Atoi(strings.TrimSpace(v.Str()))
			return n
		}
	}
	return 0
}
