package parser

import (
	"fmt"
	"io"

	"github.com/rthomann/docmill/internal/docmodel"
	"github.com/rthomann/docmill/internal/format"
)

// Parser converts raw document bytes into the unified document model.
type Parser interface {
	Parse(r io.Reader, filename string) (*docmodel.Document, error)
}

// Options tweak parser behavior where formats need it.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when the native PDF
	// reader yields nothing.
	PDFFallbackPdftotext bool
	// ExtractImages pulls embedded images out of PDF inputs so the
	// enrichment stage can see them.
	ExtractImages bool
}

// ForFormat returns the parser responsible for a detected format.
func ForFormat(f format.Format, opts Options) (Parser, error) {
	switch f {
	case format.PDF:
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext, ExtractImages: opts.ExtractImages}, nil
	case format.DOCX:
		return &DOCXParser{}, nil
	case format.XLSX:
		return &XLSXParser{}, nil
	case format.HTML:
		return &HTMLParser{}, nil
	case format.Markdown:
		return &MarkdownParser{}, nil
	case format.CSV:
		return &CSVParser{}, nil
	case format.Text:
		return &TextParser{}, nil
	}
	if f.IsImage() {
		return &ImageParser{}, nil
	}
	return nil, fmt.Errorf("unsupported format: %q", f)
}
