package enrich

import (
	"regexp"
	"strings"
)

// Code recognition works on un-fenced text blocks that PDF and plain-text
// parsers cannot tag themselves. The scoring is line-based: enough lines
// with code-shaped endings, indentation, or keywords tips a paragraph over.

var codeLineRe = regexp.MustCompile(`[;{}()\[\]]\s*$|^\s*(//|#|/\*|\*)`)

var codeKeywords = map[string][]string{
	"go":     {"func ", "package ", ":= ", "defer ", "go func", "chan "},
	"python": {"def ", "import ", "elif ", "self.", "lambda ", "print("},
	"javascript": {
		"function ", "const ", "=> ", "let ", "console.log", "require(",
	},
	"java": {"public class", "private ", "void ", "System.out"},
	"c":    {"#include", "int main", "printf(", "->", "struct "},
	"sql":  {"select ", "insert into", "create table", "where ", "group by"},
	"bash": {"#!/bin", "echo ", "fi\n", "done\n", "export "},
}

// LooksLikeCode reports whether a text block is probably source code, with
// a best-effort language guess.
func LooksLikeCode(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return "", false
	}

	codeLines := 0
	indented := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if codeLineRe.MatchString(line) {
			codeLines++
		}
		if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			indented++
		}
	}

	lang := guessLanguage(text)
	score := codeLines + indented
	if lang != "" {
		score += 2
	}
	// At least half the lines must look code-shaped.
	if score*2 >= len(lines) && (codeLines > 0 || lang != "") {
		return lang, true
	}
	return "", false
}

func guessLanguage(text string) string {
	lower := strings.ToLower(text)
	bestLang := ""
	bestHits := 0
	for lang, markers := range codeKeywords {
		hits := 0
		subject := text
		if lang == "sql" {
			subject = lower
		}
		for _, m := range markers {
			if strings.Contains(subject, m) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestLang = lang
		}
	}
	if bestHits >= 2 {
		return bestLang
	}
	return ""
}
