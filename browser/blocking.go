package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourcePatterns maps config resource type names to URL patterns for
// Network.setBlockedURLs. URL blocking leaves the Fetch domain free for
// proxy authentication and keeps response events intact for capture.
var resourcePatterns = map[string][]string{
	"Image":      {"*.png*", "*.jpg*", "*.jpeg*", "*.gif*", "*.webp*", "*.svg*"},
	"Stylesheet": {"*.css*"},
	"Font":       {"*.woff*", "*.woff2*", "*.ttf*", "*.otf*", "*.eot*"},
	"Media":      {"*.mp4*", "*.webm*", "*.m4a*", "*.m4s*", "*.mp3*", "*.ogg*"},
}

// blockedPatterns expands resource type names into URL patterns, ignoring
// unknown names.
func blockedPatterns(types []string) []string {
	var out []string
	for _, name := range types {
		out = append(out, resourcePatterns[name]...)
	}
	return out
}

// blockResources installs the URL block list on page. It returns the number
// of patterns installed.
func blockResources(page *rod.Page, types []string) (int, error) {
	patterns := blockedPatterns(types)
	if len(patterns) == 0 {
		return 0, nil
	}
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return 0, err
	}
	if err := (proto.NetworkSetBlockedURLs{Urls: patterns}).Call(page); err != nil {
		return 0, err
	}
	return len(patterns), nil
}
