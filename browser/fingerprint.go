package browser

import (
	"math/rand/v2"

	"github.com/use-agent/postmeta/config"
)

// Fingerprint is the device profile one render session presents.
type Fingerprint struct {
	UserAgent   string
	Width       int
	Height      int
	ScaleFactor float64
	Touch       bool
	Locale      string
	Timezone    string
}

// PickFingerprint draws a profile from the configured pools. rng may be nil.
func PickFingerprint(cfg config.SessionConfig, rng *rand.Rand) Fingerprint {
	intn := rand.IntN
	if rng != nil {
		intn = rng.IntN
	}

	fp := Fingerprint{
		Width:       1366,
		Height:      768,
		ScaleFactor: 1,
		Touch:       intn(2) == 1,
		Locale:      cfg.Locale,
		Timezone:    cfg.Timezone,
	}
	if n := len(cfg.UserAgents); n > 0 {
		fp.UserAgent = cfg.UserAgents[intn(n)]
	}
	if n := len(cfg.Viewports); n > 0 {
		vp := cfg.Viewports[intn(n)]
		fp.Width, fp.Height = vp.Width, vp.Height
	}
	if n := len(cfg.ScaleFactors); n > 0 {
		fp.ScaleFactor = cfg.ScaleFactors[intn(n)]
	}
	return fp
}

// HasSessionCookies reports whether the authenticating pair (c_user and xs)
// is configured. Other cookies are only injected alongside it.
func HasSessionCookies(cookies []config.Cookie) bool {
	var user, xs bool
	for _, c := range cookies {
		switch c.Name {
		case "c_user":
			user = c.Value != ""
		case "xs":
			xs = c.Value != ""
		}
	}
	return user && xs
}
