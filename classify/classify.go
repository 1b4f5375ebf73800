// Package classify turns the final page state into exactly one outcome
// verdict per job.
package classify

import (
	"regexp"
	"strings"

	"github.com/use-agent/postmeta/models"
)

// Kind is the outcome category.
type Kind string

const (
	KindSuccess       Kind = "success"
	KindBlocked       Kind = "blocked"
	KindTimedOut      Kind = "timed_out"
	KindParsingFailed Kind = "parsing_failed"
)

// Block reasons.
const (
	ReasonLoginWall = "login_wall"
	ReasonSoftBlock = "soft_block"
	ReasonShellPage = "shell_page"
)

// Verdict is the classifier output.
type Verdict struct {
	Kind   Kind
	Reason string
}

func (v Verdict) String() string {
	if v.Reason == "" {
		return string(v.Kind)
	}
	return string(v.Kind) + ":" + v.Reason
}

// ErrorCode maps the verdict onto the delivery error taxonomy. Success maps
// to the empty string.
func (v Verdict) ErrorCode() string {
	switch v.Kind {
	case KindBlocked:
		if v.Reason == ReasonLoginWall {
			return models.ErrCodeLoginWall
		}
		return models.ErrCodeSoftBlock
	case KindTimedOut:
		return models.ErrCodeTimeout
	case KindParsingFailed:
		return models.ErrCodeParsingFailed
	default:
		return ""
	}
}

// Input is the final page state.
type Input struct {
	FinalURL    string
	Title       string
	HTMLLength  int
	NavTimedOut bool
	Record      models.Record
}

var loginURLMarkers = []string{"/login", "login.php", "/checkpoint"}

var loginTitleKeywords = []string{
	"log in to facebook", "log into facebook", "inicia sesión", "iniciar sesión",
	"sign up", "registrarse",
}

var (
	reChallenge  = regexp.MustCompile(`(?i)just a moment|attention required|security check|captcha|verif(y|ication) (you|that you)|checking your browser|comprobaci[oó]n de seguridad`)
	// reShellTitle is the bare site title served instead of a post.
	reShellTitle = regexp.MustCompile(`(?i)^\s*facebook\s*$`)
)

// Classifier holds the thresholds.
type Classifier struct {
	minHTMLLength int
}

// New creates a Classifier. Pages shorter than minHTMLLength bytes count as
// soft blocks.
func New(minHTMLLength int) *Classifier {
	return &Classifier{minHTMLLength: minHTMLLength}
}

// Classify applies login wall, soft block, empty record and success in that
// order.
func (c *Classifier) Classify(in Input) Verdict {
	if isLoginWall(in.FinalURL, in.Title) {
		return Verdict{Kind: KindBlocked, Reason: ReasonLoginWall}
	}
	if in.HTMLLength < c.minHTMLLength || reChallenge.MatchString(in.Title) {
		return Verdict{Kind: KindBlocked, Reason: ReasonSoftBlock}
	}
	if !in.Record.HasContent() {
		if reShellTitle.MatchString(in.Title) {
			return Verdict{Kind: KindBlocked, Reason: ReasonShellPage}
		}
		if in.NavTimedOut {
			return Verdict{Kind: KindTimedOut}
		}
		return Verdict{Kind: KindParsingFailed}
	}
	return Verdict{Kind: KindSuccess}
}

func isLoginWall(finalURL, title string) bool {
	lower := strings.ToLower(finalURL)
	for _, m := range loginURLMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	title = strings.ToLower(title)
	for _, k := range loginTitleKeywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}
