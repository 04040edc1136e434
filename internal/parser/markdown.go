package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rthomann/docmill/internal/docmodel"
)

// MarkdownParser handles Markdown files using goldmark. YAML front matter,
// when present, feeds document metadata.
type MarkdownParser struct{}

type mdFrontMatter struct {
	Title   string `yaml:"title"`
	Author  string `yaml:"author"`
	Subject string `yaml:"subject"`
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	var fm mdFrontMatter
	src, err := frontmatter.Parse(r, &fm)
	if err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	root := md.Parser().Parse(text.NewReader(src))

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown"),
			Author:       fm.Author,
			Subject:      fm.Subject,
			SourceFormat: "markdown",
			SourceName:   filename,
		},
	}
	if fm.Title != "" {
		doc.Meta.Title = fm.Title
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		appendMarkdownBlock(doc, n, src)
	}

	doc.Finalize()
	return doc, nil
}

func appendMarkdownBlock(doc *docmodel.Document, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Heading:
		doc.Append(&docmodel.Block{
			Kind:  docmodel.KindHeading,
			Level: node.Level,
			Text:  string(node.Text(src)),
		})
	case *ast.FencedCodeBlock:
		doc.Append(&docmodel.Block{
			Kind: docmodel.KindCode,
			Text: blockLines(node, src),
			Lang: string(node.Language(src)),
		})
	case *ast.CodeBlock:
		doc.Append(&docmodel.Block{Kind: docmodel.KindCode, Text: blockLines(node, src)})
	case *ast.List:
		var items []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			if t := strings.TrimSpace(inlineText(item, src)); t != "" {
				items = append(items, t)
			}
		}
		if len(items) > 0 {
			doc.Append(&docmodel.Block{Kind: docmodel.KindList, Items: items})
		}
	case *east.Table:
		if tbl := markdownTable(node, src); tbl != nil {
			doc.Append(&docmodel.Block{Kind: docmodel.KindTable, Table: tbl})
		}
	case *ast.Paragraph:
		// Image-only paragraphs become image blocks.
		if img, ok := soleImage(node, src); ok {
			doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: img})
			return
		}
		doc.AppendText(inlineText(node, src), 0)
	default:
		doc.AppendText(inlineText(n, src), 0)
	}
}

// soleImage detects a paragraph whose only meaningful child is an image.
func soleImage(p *ast.Paragraph, src []byte) (*docmodel.Image, bool) {
	var img *ast.Image
	for c := p.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Image:
			if img != nil {
				return nil, false
			}
			img = node
		case *ast.Text:
			if len(strings.TrimSpace(string(node.Value(src)))) > 0 {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	if img == nil {
		return nil, false
	}
	alt := string(img.Text(src))
	return &docmodel.Image{
		ID:        imageID(string(img.Destination), alt),
		AltText:   alt,
		Caption:   string(img.Title),
		SourceURL: string(img.Destination),
	}, true
}

func markdownTable(t *east.Table, src []byte) *docmodel.Table {
	tbl := &docmodel.Table{Rows: [][]string{}}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(inlineText(cell, src)))
		}
		if _, ok := row.(*east.TableHeader); ok {
			tbl.Headers = cells
			continue
		}
		if len(cells) > 0 {
			tbl.Rows = append(tbl.Rows, cells)
		}
	}
	if len(tbl.Headers) == 0 && len(tbl.Rows) == 0 {
		return nil
	}
	return tbl
}

// blockLines reassembles the raw source lines of a literal block.
func blockLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// inlineText extracts the plain text of a node's inline content.
func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	if n.Type() == ast.TypeBlock && n.Kind() != ast.KindParagraph && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			sb.Write(line.Value(src))
		}
		return strings.TrimSpace(sb.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			sb.Write(node.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteString(inlineText(c, src))
		}
	}
	return strings.TrimSpace(sb.String())
}
