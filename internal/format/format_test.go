package format

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestFromFilename(t *testing.T) {
	cases := []struct {
		name string
		want Format
	}{
		{"report.pdf", PDF},
		{"REPORT.PDF", PDF},
		{"letter.docx", DOCX},
		{"sheet.xlsx", XLSX},
		{"page.html", HTML},
		{"page.htm", HTML},
		{"notes.md", Markdown},
		{"data.csv", CSV},
		{"readme.txt", Text},
		{"scan.jpeg", ImageJPG},
		{"scan.jpg", ImageJPG},
		{"diagram.webp", ImageWBP},
		{"archive.tar.gz", Unknown},
		{"noextension", Unknown},
	}
	for _, c := range cases {
		if got := FromFilename(c.name); got != c.want {
			t.Errorf("FromFilename(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestFromMagic_Signatures(t *testing.T) {
	cases := []struct {
		label string
		data  []byte
		want  Format
	}{
		{"pdf", []byte("%PDF-1.7\n..."), PDF},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, ImagePNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, ImageJPG},
		{"gif", []byte("GIF89a...."), ImageGIF},
		{"tiff-le", []byte{0x49, 0x49, 0x2A, 0x00, 0, 0}, ImageTIF},
		{"tiff-be", []byte{0x4D, 0x4D, 0x00, 0x2A, 0, 0}, ImageTIF},
		{"webp", append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBP")...)...), ImageWBP},
		{"short", []byte{0x01}, Unknown},
	}
	for _, c := range cases {
		if got := FromMagic(c.data); got != c.want {
			t.Errorf("%s: FromMagic = %q, want %q", c.label, got, c.want)
		}
	}
}

func TestFromMagic_HTMLPrologue(t *testing.T) {
	data := []byte("\n  <!DOCTYPE html>\n<html><body>hi</body></html>")
	if got := FromMagic(data); got != HTML {
		t.Errorf("expected HTML, got %q", got)
	}
}

func TestFromMagic_ZipDocx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("<w:document/>"))
	zw.Close()

	if got := FromMagic(buf.Bytes()); got != DOCX {
		t.Errorf("expected DOCX for OOXML archive, got %q", got)
	}
}

func TestFromMagic_ZipWithoutWordDir(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("content.txt")
	w.Write([]byte("plain"))
	zw.Close()

	if got := FromMagic(buf.Bytes()); got != Unknown {
		t.Errorf("expected Unknown for non-OOXML zip, got %q", got)
	}
}

func TestFromMagic_ZipXlsx(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("xl/workbook.xml")
	w.Write([]byte("<workbook/>"))
	zw.Close()

	if got := FromMagic(buf.Bytes()); got != XLSX {
		t.Errorf("expected XLSX for workbook archive, got %q", got)
	}
}

func TestFromMagic_BMPNeedsFullHeader(t *testing.T) {
	// Prose starting with "BM" is not a bitmap.
	if got := FromMagic([]byte("BMW cars are fast, the text said.")); got != Unknown {
		t.Errorf("expected Unknown for text starting with BM, got %q", got)
	}

	header := []byte{'B', 'M', 0x46, 0x00, 0x00, 0x00, 0, 0, 0, 0, 0x36, 0x00, 0x00, 0x00}
	if got := FromMagic(header); got != ImageBMP {
		t.Errorf("expected BMP for a real header, got %q", got)
	}
}

func TestDetect_MagicWinsOverExtension(t *testing.T) {
	// A PDF renamed to .txt is still a PDF.
	if got := Detect("misnamed.txt", []byte("%PDF-1.4")); got != PDF {
		t.Errorf("expected PDF, got %q", got)
	}
}

func TestDetect_TextExtensionBeatsHTMLSniff(t *testing.T) {
	// Markdown may legitimately open with raw HTML.
	data := []byte("<html comment dump>\n\n# Actual notes\n")
	if got := Detect("notes.md", data); got != Markdown {
		t.Errorf("expected Markdown, got %q", got)
	}
	if got := Detect("snippet.html", data); got != HTML {
		t.Errorf("expected HTML, got %q", got)
	}
}

func TestDetect_BMTextFileStaysText(t *testing.T) {
	if got := Detect("notes.txt", []byte("BM said the quarterly numbers look fine.")); got != Text {
		t.Errorf("expected Text, got %q", got)
	}
}

func TestDetect_ExtensionSettlesTextFormats(t *testing.T) {
	data := []byte("# Heading\n\nSome prose.")
	if got := Detect("notes.md", data); got != Markdown {
		t.Errorf("expected Markdown, got %q", got)
	}
	if got := Detect("data.csv", []byte("a,b\n1,2\n")); got != CSV {
		t.Errorf("expected CSV, got %q", got)
	}
}

func TestDetect_FallsBackToText(t *testing.T) {
	if got := Detect("unknown.bin", []byte("just readable words")); got != Text {
		t.Errorf("expected Text fallback, got %q", got)
	}
	if got := Detect("unknown.bin", []byte{0x00, 0x01, 0x02, 0x03}); got != Unknown {
		t.Errorf("expected Unknown for binary junk, got %q", got)
	}
}

func TestIsImage(t *testing.T) {
	if !ImagePNG.IsImage() {
		t.Error("png should be an image format")
	}
	if PDF.IsImage() {
		t.Error("pdf is not an image format")
	}
}
