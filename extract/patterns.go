package extract

import (
	"regexp"
	"strings"
)

// num captures a count with an optional magnitude suffix: "291", "1,2K",
// "5,5 mil", "3 millones".
const num = `(\d[\d.,]*(?:\s*(?:millones|millón|millon|million|mil|thousand)|[KkMm]\b)?)`

func ci(expr string) *regexp.Regexp { return regexp.MustCompile(`(?i)` + expr) }

var (
	commentPatterns = []*regexp.Regexp{
		ci(`view\s+all\s+` + num + `\s*comments?`),
		ci(`ver\s+los\s+` + num + `\s*comentarios`),
		ci(num + `\s*(?:comments?|comentarios)`),
	}
	sharePatterns = []*regexp.Regexp{
		ci(num + `\s*(?:veces\s+compartido|shares?|compartidos?)`),
	}
	viewPatterns = []*regexp.Regexp{
		ci(num + `\s*(?:de\s+)?(?:views?|visualizaciones|reproducciones|plays?|vistas)`),
	}
	reactionPatterns = []*regexp.Regexp{
		ci(`(?:todas las reacciones|all reactions|total reactions):?\s*` + num),
		ci(num + `\s*(?:reactions?|reacciones|personas reaccionaron)`),
	}

	// Per-type reaction labels such as "Like: 263 people" or
	// "Me gusta: 263 personas" are summed into one total.
	reReactionType = ci(`(?:me gusta|me encanta|me importa|me divierte|me asombra|me entristece|me enoja|like|love|care|haha|wow|sad|angry):\s*([\d.,]+)\s*(?:personas?|people|person)`)

	reEngagementPrefix = ci(`^` + num + `\s*(?:reactions?|reacciones|shares?|compartidos?|comments?|comentarios|views?|visualizaciones|reproducciones)\s*·?\s*`)
)

// Embedded JSON counters found in inline scripts and API responses.
var (
	htmlCommentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"total_comment_count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"comment_count"\s*:\s*\{"total_count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"comment_count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"comments"\s*:\s*\{[^}]{0,500}?"total_count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"commentsCount"\s*:\s*(\d+)`),
		regexp.MustCompile(`"commentCount"\s*:\s*(\d+)`),
		regexp.MustCompile(`"comment_rendering_instance_count"\s*:\s*(\d+)`),
	}
	htmlReactionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"reaction_count"\s*:\s*\{"count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"reaction_count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"reactionCount"\s*:\s*(\d+)`),
		regexp.MustCompile(`"i18n_reaction_count"\s*:\s*\{[^}]{0,200}?"count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"reactions"\s*:\s*\{"count"\s*:\s*(\d+)`),
	}
	htmlSharePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"share_count"\s*:\s*\{"count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"share_count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"reshare_count"\s*:\s*(\d+)`),
	}
	htmlViewPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"(?:play_count|view_count|viewCount|video_view_count|videoViewCount|playCount|videoPlayCount)"\s*:\s*(\d+)`),
		regexp.MustCompile(`"(?:play_count|view_count|viewCount|video_view_count|videoViewCount|playCount|videoPlayCount)"\s*:\s*"([^"]{1,20})"`),
		regexp.MustCompile(`"i18n_view_count"\s*:\s*\{[^}]{0,200}?"count"\s*:\s*(\d+)`),
		regexp.MustCompile(`"i18n_view_count"\s*:\s*\{[^}]{0,200}?"count"\s*:\s*"([^"]{1,20})"`),
	}
)

// firstMatch returns the first capture of the first pattern that matches.
func firstMatch(patterns []*regexp.Regexp, text string) string {
	if text == "" {
		return ""
	}
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstMatchIn tries each text in order.
func firstMatchIn(patterns []*regexp.Regexp, texts []string) string {
	for _, t := range texts {
		if v := firstMatch(patterns, t); v != "" {
			return v
		}
	}
	return ""
}
