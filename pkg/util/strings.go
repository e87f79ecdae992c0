package util

import (
	"regexp"
	"strings"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// LooksLikeSymbol reports whether a normalized ticker is syntactically plausible.
func LooksLikeSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}
