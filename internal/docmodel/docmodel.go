package docmodel

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rthomann/docmill/internal/textutil"
)

// BlockKind identifies the structural role of a Block.
type BlockKind string

const (
	KindHeading   BlockKind = "heading"
	KindParagraph BlockKind = "paragraph"
	KindList      BlockKind = "list"
	KindTable     BlockKind = "table"
	KindImage     BlockKind = "image"
	KindCode      BlockKind = "code"
	KindFormula   BlockKind = "formula"
	KindCaption   BlockKind = "caption"
	KindPageBreak BlockKind = "page_break"
)

// Block is one element of a document in reading order.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"` // heading level 1-6
	Text  string    `json:"text,omitempty"`
	Lang  string    `json:"lang,omitempty"` // code block language, when known
	Items []string  `json:"items,omitempty"`
	Table *Table    `json:"table,omitempty"`
	Image *Image    `json:"image,omitempty"`
	Page  int       `json:"page,omitempty"` // source page (0 if N/A)
}

// Table is a rectangular grid with an optional header row.
type Table struct {
	Caption string     `json:"caption,omitempty"`
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows"`
}

// Image is an embedded picture with whatever enrichment has run on it.
type Image struct {
	ID          string `json:"id"`
	MIME        string `json:"mime"`
	Data        []byte `json:"data,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	AltText     string `json:"alt_text,omitempty"`
	Caption     string `json:"caption,omitempty"`
	SourceURL   string `json:"source_url,omitempty"` // original src for images not fetched

	OCRText     string `json:"ocr_text,omitempty"`
	Description string `json:"description,omitempty"` // VLM-generated
	Class       string `json:"class,omitempty"`       // classifier label
	Page        int    `json:"page,omitempty"`
}

// Metadata describes the document as a whole.
type Metadata struct {
	Title        string            `json:"title,omitempty"`
	Author       string            `json:"author,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	SourceFormat string            `json:"source_format"`
	SourceName   string            `json:"source_name,omitempty"`
	PageCount    int               `json:"page_count,omitempty"`
	WordCount    int               `json:"word_count,omitempty"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// Document is the unified in-memory representation every parser produces
// and every exporter consumes.
type Document struct {
	Meta   Metadata `json:"metadata"`
	Blocks []*Block `json:"blocks"`
}

// Append adds a block, dropping nil or fully empty blocks.
func (d *Document) Append(b *Block) {
	if b == nil {
		return
	}
	if b.Kind == "" {
		b.Kind = KindParagraph
	}
	d.Blocks = append(d.Blocks, b)
}

// AppendText adds a paragraph block when text is non-blank.
func (d *Document) AppendText(text string, page int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	d.Blocks = append(d.Blocks, &Block{Kind: KindParagraph, Text: text, Page: page})
}

// Images returns all image blocks in reading order.
func (d *Document) Images() []*Image {
	var imgs []*Image
	for _, b := range d.Blocks {
		if b.Kind == KindImage && b.Image != nil {
			imgs = append(imgs, b.Image)
		}
	}
	return imgs
}

// PlainText flattens all textual content into one string. Used for content
// hashing and word counts; image bytes do not participate.
func (d *Document) PlainText() string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		var t string
		switch b.Kind {
		case KindTable:
			if b.Table != nil {
				t = b.Table.plainText()
			}
		case KindList:
			t = strings.Join(b.Items, "\n")
		case KindImage:
			if b.Image != nil {
				t = b.Image.OCRText
			}
		case KindPageBreak:
			continue
		default:
			t = b.Text
		}
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// Finalize fills derived metadata (word count, fallback title).
func (d *Document) Finalize() {
	d.Meta.WordCount = textutil.CountWords(d.PlainText())
	if d.Meta.Title == "" {
		for _, b := range d.Blocks {
			if b.Kind == KindHeading {
				d.Meta.Title = b.Text
				break
			}
		}
	}
}

// ContentHash returns the hex SHA-256 of the flattened text.
func (d *Document) ContentHash() string {
	h := sha256.Sum256([]byte(d.PlainText()))
	return fmt.Sprintf("%x", h[:])
}

func (t *Table) plainText() string {
	var sb strings.Builder
	if len(t.Headers) > 0 {
		sb.WriteString(strings.Join(t.Headers, " "))
	}
	for _, row := range t.Rows {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(row, " "))
	}
	return sb.String()
}
