package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 1, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, 2000, cfg.Extract.MinHTMLLength)
	assert.Equal(t, 20, cfg.Extract.MaxImages)
	assert.Equal(t, "browser", cfg.Extract.FallbackEngine)
	assert.Len(t, cfg.Session.UserAgents, 5)
	assert.Len(t, cfg.Session.Viewports, 5)
	assert.False(t, cfg.Session.Proxy.Configured())
}

func TestLoad_SessionOverrides(t *testing.T) {
	t.Setenv("POSTMETA_PROXY", "http://proxy.local:3128")
	t.Setenv("POSTMETA_USER_AGENTS", "UA one (KHTML, like Gecko)|UA two")
	t.Setenv("POSTMETA_VIEWPORTS", "800x600, bogus, 1024X768")
	t.Setenv("POSTMETA_SCALE_FACTORS", "1,x,2")
	t.Setenv("POSTMETA_COOKIE_C_USER", "100")
	t.Setenv("POSTMETA_COOKIE_XS", "secret")

	cfg := Load()

	assert.True(t, cfg.Session.Proxy.Configured())
	assert.Equal(t, []string{"UA one (KHTML, like Gecko)", "UA two"}, cfg.Session.UserAgents)
	assert.Equal(t, []Viewport{{800, 600}, {1024, 768}}, cfg.Session.Viewports)
	assert.Equal(t, []float64{1, 2}, cfg.Session.ScaleFactors)

	require.Len(t, cfg.Session.Cookies, 2)
	assert.Equal(t, Cookie{Name: "c_user", Value: "100", HTTPOnly: false}, cfg.Session.Cookies[0])
	assert.Equal(t, Cookie{Name: "xs", Value: "secret", HTTPOnly: true}, cfg.Session.Cookies[1])
}

func TestEnvDurationOr_InvalidFallsBack(t *testing.T) {
	t.Setenv("POSTMETA_NAV_TIMEOUT", "soon")
	assert.Equal(t, 60*time.Second, Load().Browser.NavigationTimeout)
}
