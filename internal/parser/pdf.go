package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/rthomann/docmill/internal/docmodel"
)

// PDFParser handles PDF files. Text comes from the native reader first,
// then pdftotext if available; embedded images are pulled out with pdfcpu.
type PDFParser struct {
	FallbackPdftotext bool
	ExtractImages     bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	// Both pdf libraries want a file on disk, so spool to a temp file.
	tmp, err := os.CreateTemp("", "docmill-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        strings.TrimSuffix(filename, ".pdf"),
			SourceFormat: "pdf",
			SourceName:   filename,
		},
	}

	if n, err := api.PageCountFile(tmpPath); err == nil {
		doc.Meta.PageCount = n
	}

	text, textErr := extractPDFText(tmpPath)
	if (textErr != nil || strings.TrimSpace(text) == "") && p.FallbackPdftotext {
		if alt, err := extractPdftotext(tmpPath); err == nil {
			text, textErr = alt, nil
		}
	}

	pageImages := map[int][]*docmodel.Image{}
	if p.ExtractImages {
		imgs, err := extractPDFImages(tmpPath)
		if err == nil {
			for _, img := range imgs {
				pageImages[img.Page] = append(pageImages[img.Page], img)
			}
		}
		// Image extraction failure is not fatal: text still converts.
	}

	// A scanned PDF has no text layer; its page images still convert.
	if textErr != nil && strings.TrimSpace(text) == "" && len(pageImages) == 0 {
		return nil, fmt.Errorf("extract pdf text: %w", textErr)
	}

	appendPDFPages(doc, text, pageImages)

	doc.Finalize()
	return doc, nil
}

// appendPDFPages lays text and images out page by page. Pages with images
// but no extracted text (scanned PDFs) still get their image blocks.
func appendPDFPages(doc *docmodel.Document, text string, pageImages map[int][]*docmodel.Image) {
	pages := strings.Split(text, "\f")
	lastPage := len(pages)
	if doc.Meta.PageCount > lastPage {
		lastPage = doc.Meta.PageCount
	}
	for pageNo := 1; pageNo <= lastPage; pageNo++ {
		if pageNo <= len(pages) {
			for _, para := range strings.Split(pages[pageNo-1], "\n\n") {
				para = strings.TrimSpace(para)
				if para == "" {
					continue
				}
				doc.Append(&docmodel.Block{Kind: docmodel.KindParagraph, Text: para, Page: pageNo})
			}
		}
		for _, img := range pageImages[pageNo] {
			doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: img, Page: pageNo})
		}
		if pageNo < lastPage {
			doc.Append(&docmodel.Block{Kind: docmodel.KindPageBreak, Page: pageNo})
		}
	}
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// One slot per page, joined with form feeds, so page numbering stays
	// aligned even when individual pages yield nothing.
	numPages := reader.NumPage()
	parts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\f"), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// pdfcpu writes extracted images as <base>_page_<n>_<name>.<ext>.
var pdfImagePageRe = regexp.MustCompile(`_page_(\d+)_`)

func extractPDFImages(path string) ([]*docmodel.Image, error) {
	dir, err := os.MkdirTemp("", "docmill-pdfimg-*")
	if err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	defer os.RemoveAll(dir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(path, dir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	var imgs []*docmodel.Image
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		page := 0
		if m := pdfImagePageRe.FindStringSubmatch(e.Name()); m != nil {
			page, _ = strconv.Atoi(m[1])
		}
		imgs = append(imgs, &docmodel.Image{
			ID:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			MIME: mimeForExt(filepath.Ext(e.Name())),
			Data: data,
			Page: page,
		})
	}
	return imgs, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
