package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/rthomann/docmill/internal/docmodel"
)

// HTML renders the document by converting its markdown form (images
// embedded) through goldmark and wrapping it in a minimal page.
func HTML(doc *docmodel.Document) (string, error) {
	md, err := Markdown(doc, MarkdownOptions{ImageMode: ImageEmbedded})
	if err != nil {
		return "", err
	}

	gm := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)
	var body bytes.Buffer
	if err := gm.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	title := doc.Meta.Title
	if title == "" {
		title = doc.Meta.SourceName
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body.String()), nil
}
