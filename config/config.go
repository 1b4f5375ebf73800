package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is built once at start-up
// and treated as read-only afterwards.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Session   SessionConfig
	Behavior  BehaviorConfig
	Extract   ExtractConfig
	Jobs      JobsConfig
	Webhook   WebhookConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how a Chromium process is launched for each job.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout bounds page.Navigate plus the load wait. Exceeding
	// it is recoverable: extraction still runs on the current DOM.
	NavigationTimeout time.Duration // default: 60s

	// JobTimeout is the hard deadline for one job's render+extract stages.
	JobTimeout time.Duration // default: 4m

	// BlockedResourceTypes lists resource types to block.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// DebugDir is where screenshots are written when requested.
	DebugDir string // default: os.TempDir()
}

// SessionConfig carries the shared credentials and fingerprint pool.
type SessionConfig struct {
	Proxy        ProxyConfig
	CookieDomain string // default: ".facebook.com"
	Cookies      []Cookie
	UserAgents   []string
	Viewports    []Viewport
	ScaleFactors []float64
	Locale       string // default: "en-US"
	Timezone     string // default: "America/New_York"
}

// ProxyConfig is the optional upstream proxy for every render session.
type ProxyConfig struct {
	// Server is "http://host:port" or "socks5://host:port". Empty means direct.
	Server   string
	Username string
	Password string
}

// Configured reports whether a proxy server is set.
func (p ProxyConfig) Configured() bool { return p.Server != "" }

// Cookie is one session cookie injected before navigation.
type Cookie struct {
	Name     string
	Value    string
	HTTPOnly bool
}

// Viewport is a browser window size.
type Viewport struct {
	Width  int
	Height int
}

// BehaviorConfig controls the human-like interaction pacing.
type BehaviorConfig struct {
	// Enabled toggles the simulator entirely.
	Enabled bool // default: true

	// ScrollSteps is the number of incremental scrolls.
	ScrollSteps int // default: 5

	// StepDelayMin/Max bound the random pause after each scroll step.
	StepDelayMin time.Duration // default: 1.5s
	StepDelayMax time.Duration // default: 3s

	// SettleDelayMin/Max bound the random pause before extraction.
	SettleDelayMin time.Duration // default: 5s
	SettleDelayMax time.Duration // default: 10s
}

// ExtractConfig controls the extraction pipeline and classifier thresholds.
type ExtractConfig struct {
	// MaxImages caps the gallery list recovered from raw HTML.
	MaxImages int // default: 20

	// MobileFallback enables the mobile-variant pass for comments/views.
	MobileFallback bool // default: true

	// FallbackEngine selects how the mobile variant is loaded:
	// "browser" re-renders in the session, "http" fetches static HTML.
	FallbackEngine string // default: "browser"

	// MinHTMLLength is the HTML size below which a page is a soft block.
	MinHTMLLength int // default: 2000
}

// JobsConfig controls the job coordinator.
type JobsConfig struct {
	// MaxConcurrent bounds jobs holding a browser at the same time.
	MaxConcurrent int // default: 1

	// Retention is how long terminal jobs remain queryable.
	Retention time.Duration // default: 1h
}

// WebhookConfig controls terminal payload delivery.
type WebhookConfig struct {
	// DefaultURL is used when a job carries no callback address.
	DefaultURL string

	// Secret signs payloads with HMAC-SHA256 when non-empty.
	Secret string

	Timeout      time.Duration // default: 10s
	MaxStrLen    int           // default: 2000
	MaxListItems int           // default: 200
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

var defaultViewports = []Viewport{
	{Width: 1920, Height: 1080},
	{Width: 1366, Height: 768},
	{Width: 1440, Height: 900},
	{Width: 1536, Height: 864},
	{Width: 1280, Height: 720},
}

// cookieEnv maps session cookie names to their env keys and httpOnly flag.
var cookieEnv = []struct {
	name     string
	key      string
	httpOnly bool
}{
	{"c_user", "POSTMETA_COOKIE_C_USER", false},
	{"xs", "POSTMETA_COOKIE_XS", true},
	{"datr", "POSTMETA_COOKIE_DATR", true},
	{"fr", "POSTMETA_COOKIE_FR", true},
	{"sb", "POSTMETA_COOKIE_SB", true},
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("POSTMETA_HOST", "0.0.0.0"),
			Port: envIntOr("POSTMETA_PORT", 8080),
			Mode: envOr("POSTMETA_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("POSTMETA_HEADLESS", true),
			NoSandbox:         envBoolOr("POSTMETA_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("POSTMETA_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("POSTMETA_NAV_TIMEOUT", 60*time.Second),
			JobTimeout:        envDurationOr("POSTMETA_JOB_TIMEOUT", 4*time.Minute),
			BlockedResourceTypes: envSliceOr("POSTMETA_BLOCKED_RESOURCES", ",", []string{
				"Font", "Media",
			}),
			DebugDir: envOr("POSTMETA_DEBUG_DIR", os.TempDir()),
		},
		Session: SessionConfig{
			Proxy: ProxyConfig{
				Server:   os.Getenv("POSTMETA_PROXY"),
				Username: os.Getenv("POSTMETA_PROXY_USERNAME"),
				Password: os.Getenv("POSTMETA_PROXY_PASSWORD"),
			},
			CookieDomain: envOr("POSTMETA_COOKIE_DOMAIN", ".facebook.com"),
			Cookies:      loadCookies(),
			UserAgents:   envSliceOr("POSTMETA_USER_AGENTS", "|", defaultUserAgents),
			Viewports:    envViewportsOr("POSTMETA_VIEWPORTS", defaultViewports),
			ScaleFactors: envFloatSliceOr("POSTMETA_SCALE_FACTORS", []float64{1, 1.5, 2}),
			Locale:       envOr("POSTMETA_LOCALE", "en-US"),
			Timezone:     envOr("POSTMETA_TIMEZONE", "America/New_York"),
		},
		Behavior: BehaviorConfig{
			Enabled:        envBoolOr("POSTMETA_BEHAVIOR", true),
			ScrollSteps:    envIntOr("POSTMETA_SCROLL_STEPS", 5),
			StepDelayMin:   envDurationOr("POSTMETA_STEP_DELAY_MIN", 1500*time.Millisecond),
			StepDelayMax:   envDurationOr("POSTMETA_STEP_DELAY_MAX", 3*time.Second),
			SettleDelayMin: envDurationOr("POSTMETA_SETTLE_DELAY_MIN", 5*time.Second),
			SettleDelayMax: envDurationOr("POSTMETA_SETTLE_DELAY_MAX", 10*time.Second),
		},
		Extract: ExtractConfig{
			MaxImages:      envIntOr("POSTMETA_MAX_IMAGES", 20),
			MobileFallback: envBoolOr("POSTMETA_MOBILE_FALLBACK", true),
			FallbackEngine: envOr("POSTMETA_FALLBACK_ENGINE", "browser"),
			MinHTMLLength:  envIntOr("POSTMETA_MIN_HTML_LENGTH", 2000),
		},
		Jobs: JobsConfig{
			MaxConcurrent: envIntOr("POSTMETA_MAX_CONCURRENT_JOBS", 1),
			Retention:     envDurationOr("POSTMETA_JOB_RETENTION", time.Hour),
		},
		Webhook: WebhookConfig{
			DefaultURL:   os.Getenv("POSTMETA_WEBHOOK_URL"),
			Secret:       os.Getenv("POSTMETA_WEBHOOK_SECRET"),
			Timeout:      envDurationOr("POSTMETA_WEBHOOK_TIMEOUT", 10*time.Second),
			MaxStrLen:    envIntOr("POSTMETA_WEBHOOK_MAX_STR_LEN", 2000),
			MaxListItems: envIntOr("POSTMETA_WEBHOOK_MAX_LIST_ITEMS", 200),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("POSTMETA_AUTH_ENABLED", true),
			APIKeys: envSliceOr("POSTMETA_API_KEYS", ",", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("POSTMETA_RATE_RPS", 2.0),
			Burst:             envIntOr("POSTMETA_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("POSTMETA_LOG_LEVEL", "info"),
			Format: envOr("POSTMETA_LOG_FORMAT", "json"),
		},
	}
}

func loadCookies() []Cookie {
	var cookies []Cookie
	for _, def := range cookieEnv {
		if v := os.Getenv(def.key); v != "" {
			cookies = append(cookies, Cookie{Name: def.name, Value: v, HTTPOnly: def.httpOnly})
		}
	}
	return cookies
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envSliceOr splits on sep. User agents contain commas, so they use "|".
func envSliceOr(key, sep string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, sep)
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envFloatSliceOr(key string, fallback []float64) []float64 {
	var result []float64
	for _, p := range envSliceOr(key, ",", nil) {
		if f, err := strconv.ParseFloat(p, 64); err == nil && f > 0 {
			result = append(result, f)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

// envViewportsOr parses "1920x1080,1366x768".
func envViewportsOr(key string, fallback []Viewport) []Viewport {
	var result []Viewport
	for _, p := range envSliceOr(key, ",", nil) {
		w, h, ok := strings.Cut(strings.ToLower(p), "x")
		if !ok {
			continue
		}
		wi, errW := strconv.Atoi(strings.TrimSpace(w))
		hi, errH := strconv.Atoi(strings.TrimSpace(h))
		if errW != nil || errH != nil || wi <= 0 || hi <= 0 {
			continue
		}
		result = append(result, Viewport{Width: wi, Height: hi})
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
