package parser

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	// Decoders for DecodeConfig. Raster inputs beyond the stdlib set come
	// from golang.org/x/image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rthomann/docmill/internal/docmodel"
)

// ImageParser handles standalone raster images. The result is a document
// with a single image block; the OCR or VLM stage supplies its text.
type ImageParser struct{}

func (p *ImageParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	cfg, kind, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filename, err)
	}

	title := filename
	if i := strings.LastIndex(title, "."); i > 0 {
		title = title[:i]
	}

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        title,
			SourceFormat: kind,
			SourceName:   filename,
			PageCount:    1,
		},
	}
	doc.Append(&docmodel.Block{
		Kind: docmodel.KindImage,
		Page: 1,
		Image: &docmodel.Image{
			ID:     title,
			MIME:   "image/" + kind,
			Data:   data,
			Width:  cfg.Width,
			Height: cfg.Height,
			Page:   1,
		},
	})

	doc.Finalize()
	return doc, nil
}
