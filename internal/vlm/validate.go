package vlm

import (
	"regexp"
	"strings"

	"github.com/rthomann/docmill/internal/textutil"
)

var classLabelSet = func() map[string]bool {
	m := make(map[string]bool, len(ClassLabels))
	for _, l := range ClassLabels {
		m[l] = true
	}
	return m
}()

// NormalizeClass maps a raw model answer onto the canonical label set.
// Anything unrecognized becomes "other".
func NormalizeClass(raw string) string {
	label := strings.ToLower(strings.TrimSpace(stripCodeBlock(raw)))
	label = strings.Trim(label, `"'.`)
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, "-", "_")
	if classLabelSet[label] {
		return label
	}
	// Models sometimes answer in a sentence; take the first known label
	// they mention.
	for _, l := range ClassLabels {
		if strings.Contains(label, l) {
			return l
		}
	}
	return "other"
}

// CleanDescription trims model boilerplate and caps descriptions at a few
// sentences so they fit as image captions.
func CleanDescription(raw string) string {
	text := strings.TrimSpace(stripCodeBlock(raw))
	for _, prefix := range []string{
		"this image shows", "the image shows", "this picture shows",
		"the picture shows", "this is",
	} {
		if len(text) > len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			text = strings.TrimLeft(text[len(prefix):], " :,")
			if text != "" {
				text = strings.ToUpper(text[:1]) + text[1:]
			}
			break
		}
	}
	return textutil.FirstSentences(text, 3)
}

var codeBlockRe = regexp.MustCompile("(?s)^```[a-z]*\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
