// Package format detects the input document format from filename
// extensions and magic bytes.
package format

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
)

// Format is a supported input document format.
type Format string

const (
	Unknown  Format = ""
	PDF      Format = "pdf"
	DOCX     Format = "docx"
	XLSX     Format = "xlsx"
	HTML     Format = "html"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	Text     Format = "text"
	ImagePNG Format = "png"
	ImageJPG Format = "jpeg"
	ImageGIF Format = "gif"
	ImageTIF Format = "tiff"
	ImageBMP Format = "bmp"
	ImageWBP Format = "webp"
)

// IsImage reports whether f is a raster image format.
func (f Format) IsImage() bool {
	switch f {
	case ImagePNG, ImageJPG, ImageGIF, ImageTIF, ImageBMP, ImageWBP:
		return true
	}
	return false
}

var byExtension = map[string]Format{
	".pdf":      PDF,
	".docx":     DOCX,
	".xlsx":     XLSX,
	".html":     HTML,
	".htm":      HTML,
	".xhtml":    HTML,
	".md":       Markdown,
	".markdown": Markdown,
	".csv":      CSV,
	".txt":      Text,
	".text":     Text,
	".png":      ImagePNG,
	".jpg":      ImageJPG,
	".jpeg":     ImageJPG,
	".gif":      ImageGIF,
	".tif":      ImageTIF,
	".tiff":     ImageTIF,
	".bmp":      ImageBMP,
	".webp":     ImageWBP,
}

// FromFilename detects the format from the file extension alone.
func FromFilename(name string) Format {
	ext := strings.ToLower(filepath.Ext(name))
	return byExtension[ext]
}

// IsSupported reports whether the filename has a convertible extension.
func IsSupported(name string) bool {
	return FromFilename(name) != Unknown
}

// SupportedExtensions lists the extensions Detect understands, for help
// text and upload validation.
func SupportedExtensions() []string {
	return []string{
		".pdf", ".docx", ".xlsx", ".html", ".htm", ".xhtml", ".md",
		".markdown", ".csv", ".txt", ".png", ".jpg", ".jpeg", ".gif",
		".tif", ".tiff", ".bmp", ".webp",
	}
}

// Detect combines extension and content sniffing. The extension decides
// first; a binary signature overrides a mislabeled extension, but a text-like
// extension is never overridden by the HTML prologue sniff (markdown and
// plain text legitimately open with raw HTML).
func Detect(name string, data []byte) Format {
	ext := FromFilename(name)
	magic := FromMagic(data)

	if ext != Unknown {
		if magic != Unknown && !(magic == HTML && isTextual(ext)) {
			return magic
		}
		return ext
	}
	if magic != Unknown {
		return magic
	}
	if looksLikeText(data) {
		return Text
	}
	return Unknown
}

func isTextual(f Format) bool {
	switch f {
	case HTML, Markdown, CSV, Text:
		return true
	}
	return false
}

// FromMagic inspects leading bytes for known signatures. ZIP containers are
// opened to distinguish DOCX from other OOXML archives.
func FromMagic(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return PDF
	case bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}):
		return fromZip(data)
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return ImagePNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return ImageJPG
	case bytes.HasPrefix(data, []byte("GIF8")):
		return ImageGIF
	case bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}),
		bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return ImageTIF
	case looksLikeBMP(data):
		return ImageBMP
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return ImageWBP
	}
	if looksLikeHTML(data) {
		return HTML
	}
	return Unknown
}

// fromZip peeks into a ZIP archive for OOXML directory markers.
func fromZip(data []byte) Format {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Unknown
	}
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/") {
			return DOCX
		}
		if strings.HasPrefix(f.Name, "xl/") {
			return XLSX
		}
	}
	return Unknown
}

// looksLikeBMP requires the full 14-byte file header, not just the two-byte
// "BM" tag, which plain text can start with. The four reserved bytes after
// the size field are always zero in a real BMP.
func looksLikeBMP(data []byte) bool {
	return len(data) >= 14 &&
		data[0] == 'B' && data[1] == 'M' &&
		data[6] == 0 && data[7] == 0 && data[8] == 0 && data[9] == 0
}

func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf"))
	for _, prefix := range []string{"<!doctype html", "<html", "<head", "<body"} {
		if bytes.HasPrefix(lower, []byte(prefix)) {
			return true
		}
	}
	return false
}

func looksLikeText(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if len(head) == 0 {
		return false
	}
	for _, b := range head {
		if b == 0 {
			return false
		}
	}
	return true
}
