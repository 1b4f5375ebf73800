package browser

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"

	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/extract"
)

const (
	chromeUA        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	maxStaticBody   = 10 << 20
	defaultStaticTO = 30 * time.Second
)

// StaticFetcher performs plain HTTP requests with a Chrome TLS fingerprint
// (utls) and the configured session cookies. It implements
// extract.VariantOpener for the HTTP fallback engine.
type StaticFetcher struct {
	proxy     string
	userAgent string
	cookies   []config.Cookie
	timeout   time.Duration
	rootCAs   *x509.CertPool
}

var _ extract.VariantOpener = (*StaticFetcher)(nil)

// NewStaticFetcher creates a StaticFetcher from the session settings.
func NewStaticFetcher(cfg config.SessionConfig, timeout time.Duration) *StaticFetcher {
	if timeout <= 0 {
		timeout = defaultStaticTO
	}
	ua := chromeUA
	if len(cfg.UserAgents) > 0 {
		ua = cfg.UserAgents[0]
	}
	var cookies []config.Cookie
	if HasSessionCookies(cfg.Cookies) {
		cookies = cfg.Cookies
	}
	return &StaticFetcher{
		proxy:     cfg.Proxy.Server,
		userAgent: ua,
		cookies:   cookies,
		timeout:   timeout,
	}
}

// OpenVariant fetches variantURL and wraps the body as a document page.
func (f *StaticFetcher) OpenVariant(ctx context.Context, variantURL string) (extract.Page, func(), error) {
	body, err := f.Fetch(ctx, variantURL)
	if err != nil {
		return nil, nil, err
	}
	page, err := extract.NewDocumentPage(variantURL, string(body), nil)
	if err != nil {
		return nil, nil, err
	}
	return page, func() {}, nil
}

// Fetch retrieves targetURL and returns the response body.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return f.dialTLSChrome(ctx, network, addr)
		},
	}
	if f.proxy != "" {
		proxyURL, err := url.Parse(f.proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			// HTTPS through an HTTP proxy uses the stock TLS stack.
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	if cookie := f.cookieHeader(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticBody))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read body: %w", err)
	}
	return body, nil
}

func (f *StaticFetcher) cookieHeader() string {
	parts := make([]string, 0, len(f.cookies))
	for _, c := range f.cookies {
		if c.Value != "" {
			parts = append(parts, c.Name+"="+c.Value)
		}
	}
	return strings.Join(parts, "; ")
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint,
// dialing through the SOCKS5 proxy when one is configured. ALPN is pinned
// to http/1.1 because the transport speaks HTTP/1 on custom TLS conns.
func (f *StaticFetcher) dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	rawConn, err := f.dialRaw(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
		RootCAs:    f.rootCAs,
	}, tls2.HelloCustom)

	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("httpfetch: chrome hello spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("httpfetch: apply hello: %w", err)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (f *StaticFetcher) dialRaw(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	if f.proxy == "" {
		return dialer.DialContext(ctx, network, addr)
	}
	proxyURL, err := url.Parse(f.proxy)
	if err != nil || (proxyURL.Scheme != "socks5" && proxyURL.Scheme != "socks5h") {
		return dialer.DialContext(ctx, network, addr)
	}

	var auth *proxy.Auth
	if proxyURL.User != nil {
		pass, _ := proxyURL.User.Password()
		auth = &proxy.Auth{User: proxyURL.User.Username(), Password: pass}
	}
	socks, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, dialer)
	if err != nil {
		return nil, fmt.Errorf("socks5 dial: %w", err)
	}
	if cd, ok := socks.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}
	return socks.Dial(network, addr)
}
