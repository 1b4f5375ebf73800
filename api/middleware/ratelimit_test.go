package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/postmeta/config"
)

func init() { gin.SetMode(gin.TestMode) }

func limitedEngine(t *testing.T, cfg config.RateLimitConfig) *gin.Engine {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := gin.New()
	r.Use(Auth([]string{"k1", "k2"}), RateLimit(ctx, cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func get(r http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_PerKeyBurst(t *testing.T) {
	r := limitedEngine(t, config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 2})

	assert.Equal(t, http.StatusNoContent, get(r, "k1").Code)
	assert.Equal(t, http.StatusNoContent, get(r, "k1").Code)

	w := get(r, "k1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, get(r, "k2").Code, "separate bucket per key")
}

func TestRateLimit_DisabledWhenRateIsZero(t *testing.T) {
	r := limitedEngine(t, config.RateLimitConfig{})
	for range 10 {
		assert.Equal(t, http.StatusNoContent, get(r, "k1").Code)
	}
}

func TestLimiterStore_Sweep(t *testing.T) {
	s := &limiterStore{limiters: map[string]*limiterEntry{}, limit: 1, burst: 1}
	now := time.Now()
	s.get("old", now.Add(-2*time.Hour))
	s.get("fresh", now)

	s.sweep(now.Add(-time.Hour))

	assert.NotContains(t, s.limiters, "old")
	assert.Contains(t, s.limiters, "fresh")
}

func TestAuth_OpenWhenNoKeys(t *testing.T) {
	r := gin.New()
	r.Use(Auth([]string{""}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, get(r, "").Code)
}
