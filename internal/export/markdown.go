package export

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rthomann/docmill/internal/docmodel"
)

// ImageMode is the policy for representing images in markdown output.
type ImageMode string

const (
	// ImageEmbedded inlines image bytes as base64 data URIs.
	ImageEmbedded ImageMode = "embedded"
	// ImageReferenced writes image files next to the output and links them.
	ImageReferenced ImageMode = "referenced"
	// ImagePlaceholder drops a comment marker where the image was.
	ImagePlaceholder ImageMode = "placeholder"
)

// ParseImageMode validates an --image-mode value.
func ParseImageMode(s string) (ImageMode, error) {
	switch ImageMode(s) {
	case ImageEmbedded, ImageReferenced, ImagePlaceholder:
		return ImageMode(s), nil
	case "":
		return ImageEmbedded, nil
	}
	return "", fmt.Errorf("unknown image mode: %q", s)
}

// MarkdownOptions control markdown rendering.
type MarkdownOptions struct {
	ImageMode ImageMode
	// ImageDir receives image files in referenced mode. Created on demand.
	ImageDir string
	// ImagePrefix is the link prefix for referenced images, typically the
	// relative path from the markdown file to ImageDir.
	ImagePrefix string
}

// Markdown renders the document as markdown. In referenced image mode it
// also writes the image files.
func Markdown(doc *docmodel.Document, opts MarkdownOptions) (string, error) {
	if opts.ImageMode == "" {
		opts.ImageMode = ImageEmbedded
	}

	var sb strings.Builder
	for _, b := range doc.Blocks {
		var rendered string
		var err error
		switch b.Kind {
		case docmodel.KindHeading:
			rendered = heading(b)
		case docmodel.KindParagraph, docmodel.KindCaption:
			rendered = b.Text
		case docmodel.KindList:
			rendered = list(b.Items)
		case docmodel.KindCode:
			rendered = fmt.Sprintf("```%s\n%s\n```", b.Lang, strings.Trim(b.Text, "\n"))
		case docmodel.KindFormula:
			rendered = formula(b.Text)
		case docmodel.KindTable:
			rendered = table(b.Table)
		case docmodel.KindImage:
			rendered, err = image(b.Image, opts)
			if err != nil {
				return "", err
			}
		case docmodel.KindPageBreak:
			continue
		}
		rendered = strings.TrimRight(rendered, "\n")
		if rendered == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(rendered)
	}
	out := sb.String()
	if out != "" {
		out += "\n"
	}
	return out, nil
}

func heading(b *docmodel.Block) string {
	level := b.Level
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + b.Text
}

func list(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(strings.ReplaceAll(item, "\n", " "))
	}
	return sb.String()
}

func formula(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "$$") {
		return text
	}
	return "$$\n" + text + "\n$$"
}

func table(t *docmodel.Table) string {
	if t == nil {
		return ""
	}
	headers := t.Headers
	if len(headers) == 0 {
		// Markdown tables need a header row; synthesize from column count.
		width := 0
		for _, row := range t.Rows {
			if len(row) > width {
				width = len(row)
			}
		}
		if width == 0 {
			return ""
		}
		headers = make([]string, width)
	}

	var sb strings.Builder
	if t.Caption != "" {
		sb.WriteString(t.Caption + "\n\n")
	}
	writeRow := func(cells []string, width int) {
		sb.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(" " + escapeCell(cell) + " |")
		}
		sb.WriteString("\n")
	}

	width := len(headers)
	writeRow(headers, width)
	sb.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range t.Rows {
		writeRow(row, width)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func image(img *docmodel.Image, opts MarkdownOptions) (string, error) {
	if img == nil {
		return "", nil
	}
	label := img.AltText
	if label == "" {
		label = img.Description
	}
	if label == "" {
		label = img.Caption
	}
	if label == "" {
		label = img.ID
	}

	var link string
	switch {
	case len(img.Data) > 0 && opts.ImageMode == ImageEmbedded:
		link = fmt.Sprintf("![%s](data:%s;base64,%s)",
			escapeAlt(label), img.MIME, base64.StdEncoding.EncodeToString(img.Data))
	case len(img.Data) > 0 && opts.ImageMode == ImageReferenced:
		name, err := writeImageFile(img, opts.ImageDir)
		if err != nil {
			return "", err
		}
		ref := name
		if opts.ImagePrefix != "" {
			ref = strings.TrimSuffix(opts.ImagePrefix, "/") + "/" + name
		}
		link = fmt.Sprintf("![%s](%s)", escapeAlt(label), ref)
	case len(img.Data) == 0 && img.SourceURL != "":
		// Unfetched image: keep the original reference.
		link = fmt.Sprintf("![%s](%s)", escapeAlt(label), img.SourceURL)
	default:
		link = fmt.Sprintf("<!-- image: %s -->", img.ID)
	}

	var sb strings.Builder
	sb.WriteString(link)
	if img.Description != "" && img.Description != label {
		sb.WriteString("\n\n*" + img.Description + "*")
	}
	if img.OCRText != "" {
		sb.WriteString("\n\n" + img.OCRText)
	}
	return sb.String(), nil
}

func writeImageFile(img *docmodel.Image, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	name := safeFileName(img.ID) + extensionForMIME(img.MIME)
	if err := os.WriteFile(filepath.Join(dir, name), img.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", name, err)
	}
	return name, nil
}

func safeFileName(s string) string {
	if s == "" {
		return "image"
	}
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func extensionForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/tiff":
		return ".tiff"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func escapeAlt(s string) string {
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return strings.ReplaceAll(s, "\n", " ")
}
