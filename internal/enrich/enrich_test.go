package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/rthomann/docmill/internal/docmodel"
	"github.com/rthomann/docmill/internal/ocr"
)

type stubEngine struct {
	text string
	err  error
	seen int
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(ctx context.Context, req ocr.Request) (string, error) {
	s.seen++
	return s.text, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func standaloneImageDoc() *docmodel.Document {
	doc := &docmodel.Document{Meta: docmodel.Metadata{PageCount: 1}}
	doc.Append(&docmodel.Block{
		Kind:  docmodel.KindImage,
		Image: &docmodel.Image{ID: "scan", MIME: "image/png", Data: []byte{1, 2, 3}},
	})
	return doc
}

func TestEnrich_OCRStandaloneImage(t *testing.T) {
	engine := &stubEngine{text: "recognized words"}
	e := New(Options{OCREnabled: true}, engine, nil, testLogger())

	doc := standaloneImageDoc()
	if _, err := e.Enrich(context.Background(), doc); err != nil {
		t.Fatalf("enrich: %v", err)
	}

	if engine.seen != 1 {
		t.Fatalf("expected 1 ocr call, got %d", engine.seen)
	}
	if doc.Images()[0].OCRText != "recognized words" {
		t.Errorf("ocr text not stored: %+v", doc.Images()[0])
	}
	if doc.Meta.WordCount != 2 {
		t.Errorf("expected word count from ocr text, got %d", doc.Meta.WordCount)
	}
}

func TestEnrich_SkipsEmbeddedImagesWithTextLayer(t *testing.T) {
	engine := &stubEngine{text: "should not run"}
	e := New(Options{OCREnabled: true}, engine, nil, testLogger())

	doc := &docmodel.Document{Meta: docmodel.Metadata{PageCount: 3}}
	doc.AppendText("a real text layer from the pdf", 1)
	doc.Append(&docmodel.Block{
		Kind:  docmodel.KindImage,
		Image: &docmodel.Image{ID: "fig1", MIME: "image/png", Data: []byte{1}},
	})

	if _, err := e.Enrich(context.Background(), doc); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if engine.seen != 0 {
		t.Errorf("embedded image should be skipped when a text layer exists, got %d calls", engine.seen)
	}
}

func TestEnrich_ForceFullPageOCROverridesTextLayer(t *testing.T) {
	engine := &stubEngine{text: "forced"}
	e := New(Options{OCREnabled: true, ForceFullPageOCR: true}, engine, nil, testLogger())

	doc := &docmodel.Document{Meta: docmodel.Metadata{PageCount: 3}}
	doc.AppendText("a real text layer", 1)
	doc.Append(&docmodel.Block{
		Kind:  docmodel.KindImage,
		Image: &docmodel.Image{ID: "fig1", MIME: "image/png", Data: []byte{1}},
	})

	if _, err := e.Enrich(context.Background(), doc); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if engine.seen != 1 {
		t.Errorf("expected forced ocr call, got %d", engine.seen)
	}
}

func TestEnrich_AllImageFailuresIsAnError(t *testing.T) {
	engine := &stubEngine{err: fmt.Errorf("engine broke")}
	e := New(Options{OCREnabled: true}, engine, nil, testLogger())

	if _, err := e.Enrich(context.Background(), standaloneImageDoc()); err == nil {
		t.Error("expected an error when every image stage fails")
	}
}

// flakyEngine fails for one image ID and succeeds for the rest.
type flakyEngine struct {
	failID string
}

func (f *flakyEngine) Name() string { return "flaky" }

func (f *flakyEngine) Recognize(ctx context.Context, req ocr.Request) (string, error) {
	if string(req.Image) == f.failID {
		return "", fmt.Errorf("engine broke on %s", f.failID)
	}
	return "recognized", nil
}

func TestEnrich_PartialFailureReturnsWarnings(t *testing.T) {
	e := New(Options{OCREnabled: true, ForceFullPageOCR: true}, &flakyEngine{failID: "bad"}, nil, testLogger())

	doc := &docmodel.Document{Meta: docmodel.Metadata{PageCount: 2}}
	doc.Append(&docmodel.Block{
		Kind:  docmodel.KindImage,
		Image: &docmodel.Image{ID: "fig1", MIME: "image/png", Data: []byte("good")},
	})
	doc.Append(&docmodel.Block{
		Kind:  docmodel.KindImage,
		Image: &docmodel.Image{ID: "fig2", MIME: "image/png", Data: []byte("bad")},
	})

	warnings, err := e.Enrich(context.Background(), doc)
	if err != nil {
		t.Fatalf("one failure out of two should not be an error, got %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if doc.Images()[0].OCRText != "recognized" {
		t.Errorf("surviving image should still be enriched: %+v", doc.Images()[0])
	}
	if doc.Images()[1].OCRText != "" {
		t.Errorf("failed image should have no ocr text: %+v", doc.Images()[1])
	}
}

func TestEnrich_CodeAndFormulaRetagging(t *testing.T) {
	e := New(Options{CodeEnrichment: true, FormulaEnrichment: true}, nil, nil, testLogger())

	doc := &docmodel.Document{}
	doc.AppendText("func run() {\n\tdefer close(ch)\n\tgo func() { work() }()\n}", 0)
	doc.AppendText("$$ \\sum_{i} x_i $$", 0)
	doc.AppendText("Just a normal sentence with nothing special.", 0)

	if _, err := e.Enrich(context.Background(), doc); err != nil {
		t.Fatalf("enrich: %v", err)
	}

	if doc.Blocks[0].Kind != docmodel.KindCode || doc.Blocks[0].Lang != "go" {
		t.Errorf("expected go code block, got %+v", doc.Blocks[0])
	}
	if doc.Blocks[1].Kind != docmodel.KindFormula {
		t.Errorf("expected formula block, got %+v", doc.Blocks[1])
	}
	if doc.Blocks[2].Kind != docmodel.KindParagraph {
		t.Errorf("prose should stay a paragraph, got %+v", doc.Blocks[2])
	}
}
