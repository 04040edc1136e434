// Package export serializes the unified document model to markdown, HTML,
// plain text, and JSON.
package export

import (
	"fmt"

	"github.com/rthomann/docmill/internal/docmodel"
)

// Target is an output format.
type Target string

const (
	TargetMarkdown Target = "markdown"
	TargetHTML     Target = "html"
	TargetText     Target = "text"
	TargetJSON     Target = "json"
)

// ParseTarget validates a --to value.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetMarkdown, TargetHTML, TargetText, TargetJSON:
		return Target(s), nil
	case "md":
		return TargetMarkdown, nil
	case "txt":
		return TargetText, nil
	case "":
		return TargetMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// Extension returns the file extension for a target.
func (t Target) Extension() string {
	switch t {
	case TargetHTML:
		return ".html"
	case TargetText:
		return ".txt"
	case TargetJSON:
		return ".json"
	default:
		return ".md"
	}
}

// Export renders doc as the chosen target.
func Export(doc *docmodel.Document, target Target, opts MarkdownOptions) (string, error) {
	switch target {
	case TargetMarkdown:
		return Markdown(doc, opts)
	case TargetHTML:
		return HTML(doc)
	case TargetText:
		return Text(doc), nil
	case TargetJSON:
		return JSON(doc)
	}
	return "", fmt.Errorf("unknown export target: %q", target)
}
