package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rthomann/docmill/internal/docmodel"
)

func TestMarkdown_HeadingsListsAndCode(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindHeading, Level: 1, Text: "Title"})
	doc.Append(&docmodel.Block{Kind: docmodel.KindParagraph, Text: "Some prose."})
	doc.Append(&docmodel.Block{Kind: docmodel.KindList, Items: []string{"one", "two"}})
	doc.Append(&docmodel.Block{Kind: docmodel.KindCode, Lang: "go", Text: "func f() {}"})

	out, err := Markdown(doc, MarkdownOptions{})
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}

	want := "# Title\n\nSome prose.\n\n- one\n- two\n\n```go\nfunc f() {}\n```\n"
	if out != want {
		t.Errorf("unexpected output:\n%q\nwant:\n%q", out, want)
	}
}

func TestMarkdown_HeadingLevelClamped(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindHeading, Level: 9, Text: "Deep"})

	out, _ := Markdown(doc, MarkdownOptions{})
	if !strings.HasPrefix(out, "###### Deep") {
		t.Errorf("expected level clamp to 6, got %q", out)
	}
}

func TestMarkdown_Table(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindTable, Table: &docmodel.Table{
		Headers: []string{"Name", "Note"},
		Rows:    [][]string{{"x", "uses | pipe"}},
	}})

	out, _ := Markdown(doc, MarkdownOptions{})
	if !strings.Contains(out, "| Name | Note |") {
		t.Errorf("missing header row: %q", out)
	}
	if !strings.Contains(out, "| --- | --- |") {
		t.Errorf("missing separator row: %q", out)
	}
	if !strings.Contains(out, `uses \| pipe`) {
		t.Errorf("pipe not escaped: %q", out)
	}
}

func TestMarkdown_TableWithoutHeadersSynthesizesRow(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindTable, Table: &docmodel.Table{
		Rows: [][]string{{"a", "b", "c"}},
	}})

	out, _ := Markdown(doc, MarkdownOptions{})
	if !strings.Contains(out, "| --- | --- | --- |") {
		t.Errorf("expected 3-column separator, got %q", out)
	}
}

func TestMarkdown_Formula(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindFormula, Text: "E = mc^2"})

	out, _ := Markdown(doc, MarkdownOptions{})
	if !strings.Contains(out, "$$\nE = mc^2\n$$") {
		t.Errorf("formula not wrapped: %q", out)
	}
}

func TestMarkdown_ImageEmbedded(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: &docmodel.Image{
		ID:   "fig1",
		MIME: "image/png",
		Data: []byte{1, 2, 3},
	}})

	out, _ := Markdown(doc, MarkdownOptions{ImageMode: ImageEmbedded})
	if !strings.Contains(out, "![fig1](data:image/png;base64,AQID)") {
		t.Errorf("expected data uri, got %q", out)
	}
}

func TestMarkdown_ImageReferencedWritesFile(t *testing.T) {
	dir := t.TempDir()
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: &docmodel.Image{
		ID:   "fig1",
		MIME: "image/png",
		Data: []byte{1, 2, 3},
	}})

	out, err := Markdown(doc, MarkdownOptions{
		ImageMode:   ImageReferenced,
		ImageDir:    dir,
		ImagePrefix: "artifacts/",
	})
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(out, "![fig1](artifacts/fig1.png)") {
		t.Errorf("expected referenced link, got %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "fig1.png"))
	if err != nil {
		t.Fatalf("image file not written: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("unexpected image file contents: %v", data)
	}
}

func TestMarkdown_ImagePlaceholder(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: &docmodel.Image{
		ID:   "fig1",
		MIME: "image/png",
		Data: []byte{1},
	}})

	out, _ := Markdown(doc, MarkdownOptions{ImageMode: ImagePlaceholder})
	if !strings.Contains(out, "<!-- image: fig1 -->") {
		t.Errorf("expected placeholder comment, got %q", out)
	}
}

func TestMarkdown_UnfetchedImageKeepsSourceLink(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: &docmodel.Image{
		ID:        "remote",
		AltText:   "a chart",
		SourceURL: "https://example.com/chart.png",
	}})

	out, _ := Markdown(doc, MarkdownOptions{ImageMode: ImageEmbedded})
	if !strings.Contains(out, "![a chart](https://example.com/chart.png)") {
		t.Errorf("expected original link, got %q", out)
	}
}

func TestMarkdown_ImageEnrichmentRendered(t *testing.T) {
	doc := &docmodel.Document{}
	doc.Append(&docmodel.Block{Kind: docmodel.KindImage, Image: &docmodel.Image{
		ID:          "fig1",
		MIME:        "image/png",
		Data:        []byte{1},
		Description: "A bar chart of quarterly revenue.",
		OCRText:     "Q1 Q2 Q3 Q4",
	}})

	out, _ := Markdown(doc, MarkdownOptions{ImageMode: ImagePlaceholder})
	if !strings.Contains(out, "*A bar chart of quarterly revenue.*") {
		t.Errorf("description missing: %q", out)
	}
	if !strings.Contains(out, "Q1 Q2 Q3 Q4") {
		t.Errorf("ocr text missing: %q", out)
	}
}

func TestMarkdown_PageBreaksDropped(t *testing.T) {
	doc := &docmodel.Document{}
	doc.AppendText("page one", 1)
	doc.Append(&docmodel.Block{Kind: docmodel.KindPageBreak})
	doc.AppendText("page two", 2)

	out, _ := Markdown(doc, MarkdownOptions{})
	if out != "page one\n\npage two\n" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestParseImageMode(t *testing.T) {
	if m, err := ParseImageMode(""); err != nil || m != ImageEmbedded {
		t.Errorf("empty should default to embedded, got %q, %v", m, err)
	}
	if _, err := ParseImageMode("inline"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestParseTarget(t *testing.T) {
	cases := map[string]Target{
		"":         TargetMarkdown,
		"md":       TargetMarkdown,
		"markdown": TargetMarkdown,
		"txt":      TargetText,
		"html":     TargetHTML,
		"json":     TargetJSON,
	}
	for in, want := range cases {
		got, err := ParseTarget(in)
		if err != nil || got != want {
			t.Errorf("ParseTarget(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseTarget("docbook"); err == nil {
		t.Error("expected error for unknown target")
	}
}
