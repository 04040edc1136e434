package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/rthomann/docmill/internal/docmodel"
	"github.com/rthomann/docmill/internal/textutil"
)

// HTMLParser handles HTML and XHTML files. goquery drives the structural
// walk; inline content keeps emphasis and links by going through the
// html-to-markdown converter.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	utf8r, err := charset.NewReader(r, "")
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	gq, err := goquery.NewDocumentFromReader(utf8r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        strings.TrimSuffix(strings.TrimSuffix(filename, ".html"), ".htm"),
			SourceFormat: "html",
			SourceName:   filename,
		},
	}
	if title := textutil.CollapseWhitespace(gq.Find("title").First().Text()); title != "" {
		doc.Meta.Title = title
	}

	gq.Find("script, style, noscript, nav, header, footer, aside").Remove()

	root := gq.Find("body")
	if root.Length() == 0 {
		root = gq.Selection
	}

	w := &htmlWalker{doc: doc, conv: newInlineConverter()}
	root.Children().Each(func(_ int, s *goquery.Selection) {
		w.walk(s)
	})

	doc.Finalize()
	return doc, nil
}

func newInlineConverter() *htmltomarkdown.Converter {
	return htmltomarkdown.NewConverter(
		htmltomarkdown.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
}

type htmlWalker struct {
	doc  *docmodel.Document
	conv *htmltomarkdown.Converter
}

func (w *htmlWalker) walk(s *goquery.Selection) {
	node := goquery.NodeName(s)
	switch node {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(node[1:])
		text := textutil.CollapseWhitespace(s.Text())
		if text != "" {
			w.doc.Append(&docmodel.Block{Kind: docmodel.KindHeading, Level: level, Text: text})
		}
	case "table":
		if tbl := w.table(s); tbl != nil {
			w.doc.Append(&docmodel.Block{Kind: docmodel.KindTable, Table: tbl})
		}
	case "img":
		w.image(s, "")
	case "figure":
		caption := textutil.CollapseWhitespace(s.Find("figcaption").Text())
		s.Find("img").Each(func(_ int, img *goquery.Selection) {
			w.image(img, caption)
		})
	case "pre":
		text := strings.Trim(s.Text(), "\n")
		if text != "" {
			lang, _ := s.Find("code").Attr("class")
			w.doc.Append(&docmodel.Block{
				Kind: docmodel.KindCode,
				Text: text,
				Lang: strings.TrimPrefix(lang, "language-"),
			})
		}
	case "ul", "ol":
		var items []string
		s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			if t := w.inline(li); t != "" {
				items = append(items, t)
			}
		})
		if len(items) > 0 {
			w.doc.Append(&docmodel.Block{Kind: docmodel.KindList, Items: items})
		}
	case "p", "blockquote", "dl":
		if t := w.inline(s); t != "" {
			w.doc.Append(&docmodel.Block{Kind: docmodel.KindParagraph, Text: t})
		}
	case "div", "section", "article", "main", "body":
		// Containers: recurse. Bare text directly inside a container is rare
		// enough in real pages that we only descend into elements.
		s.Children().Each(func(_ int, c *goquery.Selection) {
			w.walk(c)
		})
	default:
		if t := w.inline(s); t != "" {
			w.doc.Append(&docmodel.Block{Kind: docmodel.KindParagraph, Text: t})
		}
	}
}

// inline converts a selection's HTML to markdown text, preserving emphasis
// and links.
func (w *htmlWalker) inline(s *goquery.Selection) string {
	raw, err := goquery.OuterHtml(s)
	if err != nil {
		return textutil.CollapseWhitespace(s.Text())
	}
	md, err := w.conv.ConvertString(raw)
	if err != nil {
		return textutil.CollapseWhitespace(s.Text())
	}
	return strings.TrimSpace(md)
}

func (w *htmlWalker) image(s *goquery.Selection, caption string) {
	src, _ := s.Attr("src")
	alt, _ := s.Attr("alt")
	if src == "" && alt == "" {
		return
	}
	img := &docmodel.Image{
		ID:        imageID(src, alt),
		AltText:   textutil.CollapseWhitespace(alt),
		Caption:   caption,
		SourceURL: src,
	}
	w.doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: img})
}

func imageID(src, alt string) string {
	if src != "" {
		base := src
		if i := strings.LastIndex(base, "/"); i >= 0 {
			base = base[i+1:]
		}
		if i := strings.Index(base, "?"); i >= 0 {
			base = base[:i]
		}
		if i := strings.LastIndex(base, "."); i > 0 {
			base = base[:i]
		}
		if base != "" {
			return base
		}
	}
	return textutil.CollapseWhitespace(alt)
}

func (w *htmlWalker) table(s *goquery.Selection) *docmodel.Table {
	tbl := &docmodel.Table{Rows: [][]string{}}
	if caption := textutil.CollapseWhitespace(s.Find("caption").First().Text()); caption != "" {
		tbl.Caption = caption
	}
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		isHeader := tr.Find("th").Length() > 0 && tr.Find("td").Length() == 0
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, textutil.CollapseWhitespace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if isHeader && len(tbl.Headers) == 0 && len(tbl.Rows) == 0 {
			tbl.Headers = cells
			return
		}
		tbl.Rows = append(tbl.Rows, cells)
	})
	if len(tbl.Headers) == 0 && len(tbl.Rows) == 0 {
		return nil
	}
	return tbl
}
