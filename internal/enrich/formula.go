package enrich

import (
	"regexp"
	"strings"
)

var (
	texCommandRe = regexp.MustCompile(`\\(frac|sum|int|sqrt|alpha|beta|gamma|delta|theta|lambda|mu|sigma|pi|infty|partial|nabla|cdot|times|leq|geq|neq|approx|left|right|begin|end)\b`)
	mathDelimRe  = regexp.MustCompile(`^\s*\$\$?.*\$\$?\s*$`)
	mathSymbolRe = regexp.MustCompile(`[=+\-*/^_<>≤≥≠±∑∏∫√∂∇·×÷]`)
	proseWordRe  = regexp.MustCompile(`^[a-zA-Z]{3,}$`)
)

// LooksLikeFormula reports whether a text block is probably a displayed
// mathematical formula rather than prose.
func LooksLikeFormula(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, "\n\n") {
		return false
	}

	if mathDelimRe.MatchString(text) {
		return true
	}
	if texCommandRe.MatchString(text) {
		return true
	}

	// Short single-line expressions dense in math symbols and thin on words.
	if len(text) > 120 || strings.Count(text, "\n") > 2 {
		return false
	}
	symbols := len(mathSymbolRe.FindAllString(text, -1))
	if symbols == 0 {
		return false
	}
	words := 0
	for _, f := range strings.Fields(text) {
		if proseWordRe.MatchString(f) {
			words++
		}
	}
	return symbols >= 2 && words <= 2
}
