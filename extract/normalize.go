package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reCount = regexp.MustCompile(`(?i)^(\d[\d.,]*)\s*(millones|millón|millon|million|mil|thousand|k|m)?$`)

	// A plain count is either bare digits or digits grouped by threes.
	rePlainCount = regexp.MustCompile(`^\d{1,3}(?:[.,]\d{3})+$|^\d+$`)
)

var multipliers = map[string]float64{
	"k":        1e3,
	"mil":      1e3,
	"thousand": 1e3,
	"m":        1e6,
	"million":  1e6,
	"millón":   1e6,
	"millon":   1e6,
	"millones": 1e6,
}

// NormalizeCount parses a captured engagement count such as "1,234",
// "5,5 mil" or "5.5K". It returns nil when raw does not match a known shape.
func NormalizeCount(raw string) *int64 {
	s := strings.TrimSpace(raw)
	m := reCount.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	digits, unit := m[1], strings.ToLower(m[2])

	if unit == "" {
		if !rePlainCount.MatchString(digits) {
			return nil
		}
		n, err := strconv.ParseInt(stripSeparators(digits), 10, 64)
		if err != nil {
			return nil
		}
		return &n
	}

	// With a unit the last separator is the decimal point:
	// "5,5 mil" and "5.5K" are both 5500.
	f, ok := parseDecimal(digits)
	if !ok {
		return nil
	}
	n := int64(math.Round(f * multipliers[unit]))
	return &n
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", ".", "").Replace(s)
}

func parseDecimal(s string) (float64, bool) {
	intPart, frac := s, ""
	if i := strings.LastIndexAny(s, ".,"); i >= 0 {
		intPart, frac = s[:i], s[i+1:]
	}
	intPart = stripSeparators(intPart)
	if intPart == "" {
		intPart = "0"
	}
	if frac != "" {
		intPart += "." + frac
	}
	f, err := strconv.ParseFloat(intPart, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
