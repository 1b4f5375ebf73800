// Package webhook delivers terminal job payloads to callback URLs.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/models"
)

const (
	// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
	SignatureHeader = "X-Postmeta-Signature"
	userAgent       = "Postmeta-Webhook/1.0"
)

// Client posts payloads. It makes exactly one attempt per call.
type Client struct {
	http         *http.Client
	secret       string
	maxStrLen    int
	maxListItems int
}

// New creates a Client from the webhook settings.
func New(cfg config.WebhookConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:         &http.Client{Timeout: timeout},
		secret:       cfg.Secret,
		maxStrLen:    cfg.MaxStrLen,
		maxListItems: cfg.MaxListItems,
	}
}

// Deliver POSTs p to url. Non-2xx responses, timeouts and connection
// errors are returned.
func (c *Client) Deliver(ctx context.Context, url string, p *models.Payload) error {
	body, err := json.Marshal(c.bounded(p))
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(c.secret, body))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// bounded returns a copy of p with long strings and lists cut to the
// configured limits. p is not modified.
func (c *Client) bounded(p *models.Payload) *models.Payload {
	out := *p
	if p.Data != nil {
		rec := *p.Data
		for _, f := range []*string{
			&rec.Author, &rec.UserLink, &rec.Caption, &rec.Description,
			&rec.Image, &rec.VideoURL, &rec.VideoThumbnail, &rec.CanonicalURL, &rec.PostDate,
		} {
			*f = cut(*f, c.maxStrLen)
		}
		if c.maxListItems > 0 && len(rec.Images) > c.maxListItems {
			rec.Images = rec.Images[:c.maxListItems]
		}
		if rec.Images != nil {
			rec.Images = append([]string(nil), rec.Images...)
		}
		if p.Data.RawOG != nil {
			rec.RawOG = make(map[string]string, len(p.Data.RawOG))
			for k, v := range p.Data.RawOG {
				rec.RawOG[k] = cut(v, c.maxStrLen)
			}
		}
		out.Data = &rec
	}
	if p.Debug != nil {
		dbg := *p.Debug
		out.Debug = &dbg
	}
	return &out
}

// cut shortens s to at most n bytes on a rune boundary. n <= 0 disables it.
func cut(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
