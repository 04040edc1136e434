// Package enrich runs the optional post-parse stages: OCR over images,
// VLM picture description and classification, and code/formula recognition
// on text blocks.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rthomann/docmill/internal/docmodel"
	"github.com/rthomann/docmill/internal/ocr"
	"github.com/rthomann/docmill/internal/vlm"
)

// Options selects which enrichment sub-stages run.
type Options struct {
	OCREnabled       bool
	OCRLanguages     []string
	ForceFullPageOCR bool // OCR embedded images even when the page has a text layer

	VLMPipeline           bool // descriptions replace OCR for image text
	PictureDescription    bool
	PictureClassification bool

	CodeEnrichment    bool
	FormulaEnrichment bool

	MaxConcurrentImages int
}

// Enricher applies the configured sub-stages to a parsed document.
type Enricher struct {
	opts   Options
	engine ocr.Engine
	vlm    *vlm.Client
	log    *slog.Logger
}

// New builds an enricher. engine may be nil when OCR is disabled; client
// may be nil when no VLM sub-stage is enabled.
func New(opts Options, engine ocr.Engine, client *vlm.Client, log *slog.Logger) *Enricher {
	if opts.MaxConcurrentImages <= 0 {
		opts.MaxConcurrentImages = 4
	}
	return &Enricher{opts: opts, engine: engine, vlm: client, log: log}
}

// Enrich mutates doc in place. Per-image failures are returned as warnings
// so callers can mark the conversion partial; an error is returned only when
// every image stage failed.
func (e *Enricher) Enrich(ctx context.Context, doc *docmodel.Document) ([]string, error) {
	if e.opts.CodeEnrichment || e.opts.FormulaEnrichment {
		e.enrichTextBlocks(doc)
	}

	images := imagesToProcess(doc, e.opts)
	if len(images) == 0 {
		doc.Finalize()
		return nil, nil
	}

	sem := make(chan struct{}, e.opts.MaxConcurrentImages)
	results := make(chan error, len(images))

	for _, img := range images {
		sem <- struct{}{}
		go func(img *docmodel.Image) {
			defer func() { <-sem }()
			results <- e.enrichImage(ctx, img)
		}(img)
	}

	var warnings []string
	for range images {
		if err := <-results; err != nil {
			e.log.Warn("image enrichment failed", "error", err)
			warnings = append(warnings, err.Error())
		}
	}

	doc.Finalize()
	if len(warnings) == len(images) {
		return nil, fmt.Errorf("all %d image enrichments failed: %s", len(images), warnings[0])
	}
	return warnings, nil
}

func (e *Enricher) enrichImage(ctx context.Context, img *docmodel.Image) error {
	if e.opts.VLMPipeline {
		if e.vlm == nil {
			return fmt.Errorf("vlm pipeline selected but no vlm client configured")
		}
		desc, err := retryVLM(ctx, func() (string, error) {
			return e.vlm.Describe(ctx, img)
		})
		if err != nil {
			return fmt.Errorf("describe %s: %w", img.ID, err)
		}
		img.Description = desc
	} else if e.opts.OCREnabled && e.engine != nil {
		text, err := e.engine.Recognize(ctx, ocr.Request{
			Image:     img.Data,
			MIME:      img.MIME,
			Languages: e.opts.OCRLanguages,
		})
		if err != nil {
			return fmt.Errorf("ocr %s (%s): %w", img.ID, e.engine.Name(), err)
		}
		img.OCRText = text
	}

	if e.opts.PictureDescription && !e.opts.VLMPipeline && e.vlm != nil {
		desc, err := retryVLM(ctx, func() (string, error) {
			return e.vlm.Describe(ctx, img)
		})
		if err != nil {
			return fmt.Errorf("describe %s: %w", img.ID, err)
		}
		img.Description = desc
	}

	if e.opts.PictureClassification && e.vlm != nil {
		class, err := retryVLM(ctx, func() (string, error) {
			return e.vlm.Classify(ctx, img)
		})
		if err != nil {
			return fmt.Errorf("classify %s: %w", img.ID, err)
		}
		img.Class = class
	}

	return nil
}

// imagesToProcess applies the OCR policy: standalone images always get the
// image stages; embedded images are skipped when the document already has a
// text layer, unless full-page OCR is forced or a VLM stage wants them.
func imagesToProcess(doc *docmodel.Document, opts Options) []*docmodel.Image {
	hasTextLayer := strings.TrimSpace(doc.PlainText()) != ""
	standalone := doc.Meta.PageCount == 1 && len(doc.Blocks) == 1

	var images []*docmodel.Image
	for _, img := range doc.Images() {
		if len(img.Data) == 0 {
			continue
		}
		wantVLM := opts.VLMPipeline || opts.PictureDescription || opts.PictureClassification
		wantOCR := opts.OCREnabled && (standalone || !hasTextLayer || opts.ForceFullPageOCR)
		if wantVLM || wantOCR {
			images = append(images, img)
		}
	}
	return images
}

func (e *Enricher) enrichTextBlocks(doc *docmodel.Document) {
	for _, b := range doc.Blocks {
		if b.Kind != docmodel.KindParagraph {
			continue
		}
		if e.opts.CodeEnrichment {
			if lang, ok := LooksLikeCode(b.Text); ok {
				b.Kind = docmodel.KindCode
				b.Lang = lang
				continue
			}
		}
		if e.opts.FormulaEnrichment && LooksLikeFormula(b.Text) {
			b.Kind = docmodel.KindFormula
		}
	}
}

const maxVLMRetries = 3

func retryVLM(ctx context.Context, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := range maxVLMRetries {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		var retryErr *vlm.RetryableError
		if !errors.As(err, &retryErr) {
			return "", err
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
