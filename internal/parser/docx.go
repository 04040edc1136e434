package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/rthomann/docmill/internal/docmodel"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docmill-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	wordDoc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        strings.TrimSuffix(filename, ".docx"),
			SourceFormat: "docx",
			SourceName:   filename,
		},
	}

	for _, item := range wordDoc.Document.Body.Items {
		switch node := item.(type) {
		case *docx.Paragraph:
			level := docxHeadingLevel(node)
			text := docxParagraphText(node)
			if text != "" {
				if level > 0 {
					doc.Append(&docmodel.Block{Kind: docmodel.KindHeading, Level: level, Text: text})
				} else {
					doc.AppendText(text, 0)
				}
			}
			for _, img := range docxParagraphImages(wordDoc, node) {
				doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: img})
			}
		case *docx.Table:
			if tbl := docxTable(node); tbl != nil {
				doc.Append(&docmodel.Block{Kind: docmodel.KindTable, Table: tbl})
			}
		}
	}

	doc.Finalize()
	return doc, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// docxParagraphImages pulls inline and anchored pictures out of a
// paragraph's runs, resolving their relationship IDs against the archive's
// media files.
func docxParagraphImages(wordDoc *docx.Docx, para *docx.Paragraph) []*docmodel.Image {
	var imgs []*docmodel.Image
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			d, ok := rc.(*docx.Drawing)
			if !ok {
				continue
			}
			if img := docxDrawingImage(wordDoc, d); img != nil {
				imgs = append(imgs, img)
			}
		}
	}
	return imgs
}

func docxDrawingImage(wordDoc *docx.Docx, d *docx.Drawing) *docmodel.Image {
	var graphic *docx.AGraphic
	switch {
	case d.Inline != nil:
		graphic = d.Inline.Graphic
	case d.Anchor != nil:
		graphic = d.Anchor.Graphic
	}
	if graphic == nil || graphic.GraphicData == nil || graphic.GraphicData.Pic == nil {
		return nil
	}
	fill := graphic.GraphicData.Pic.BlipFill
	if fill == nil || fill.Blip.Embed == "" {
		return nil
	}

	target, err := wordDoc.ReferTarget(fill.Blip.Embed)
	if err != nil {
		return nil
	}
	media := wordDoc.Media(strings.TrimPrefix(target, "media/"))
	if media == nil || len(media.Data) == 0 {
		return nil
	}

	name := filepath.Base(media.Name)
	return &docmodel.Image{
		ID:   strings.TrimSuffix(name, filepath.Ext(name)),
		MIME: mimeForExt(filepath.Ext(name)),
		Data: media.Data,
	}
}

// docxTable flattens a word table into the model grid. The first row is
// treated as the header row.
func docxTable(t *docx.Table) *docmodel.Table {
	var rows [][]string
	for _, tr := range t.TableRows {
		var row []string
		for _, tc := range tr.TableCells {
			var cell strings.Builder
			for _, para := range tc.Paragraphs {
				text := docxParagraphText(para)
				if text == "" {
					continue
				}
				if cell.Len() > 0 {
					cell.WriteString(" ")
				}
				cell.WriteString(text)
			}
			row = append(row, cell.String())
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	tbl := &docmodel.Table{Headers: rows[0]}
	if len(rows) > 1 {
		tbl.Rows = rows[1:]
	} else {
		tbl.Rows = [][]string{}
	}
	return tbl
}
