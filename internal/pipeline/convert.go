package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rthomann/docmill/internal/config"
	"github.com/rthomann/docmill/internal/docmodel"
	"github.com/rthomann/docmill/internal/enrich"
	"github.com/rthomann/docmill/internal/format"
	"github.com/rthomann/docmill/internal/ocr"
	"github.com/rthomann/docmill/internal/parser"
	"github.com/rthomann/docmill/internal/source"
	"github.com/rthomann/docmill/internal/vlm"
)

// Converter runs the full pipeline for one input: resolve, detect, parse,
// enrich. Exporting is left to the caller so one parsed document can serve
// several output formats.
type Converter struct {
	cfg      config.Config
	resolver *source.Resolver
	vlmStats *vlm.Stats
	log      *slog.Logger
}

func NewConverter(cfg config.Config, log *slog.Logger) *Converter {
	return &Converter{
		cfg:      cfg,
		resolver: source.NewResolver(cfg.MaxInputBytes, cfg.FetchTimeout),
		vlmStats: vlm.NewStats(time.Hour),
		log:      log,
	}
}

// VLMStats aggregates model call latency and token usage across every
// conversion this converter has run.
func (c *Converter) VLMStats() *vlm.Stats { return c.vlmStats }

// Resolve fetches input bytes, retrying transient URL failures.
func (c *Converter) Resolve(ctx context.Context, src string) (*source.Input, error) {
	var in *source.Input
	var lastErr error
	for attempt := range MaxRetries {
		in, lastErr = c.resolver.Resolve(ctx, src)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		c.log.Warn("retryable fetch error", "source", src, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return in, nil
}

// Parse detects the format of resolved input bytes and builds a document.
func (c *Converter) Parse(in *source.Input, opts Options) (*docmodel.Document, error) {
	f := format.Detect(in.Name, in.Data)
	if f == format.Unknown {
		return nil, fmt.Errorf("unsupported format for input %q", in.Name)
	}

	wantImages := opts.Pipeline == PipelineVLM || !opts.NoOCR ||
		opts.PictureDescription || opts.PictureClassification
	p, err := parser.ForFormat(f, parser.Options{
		PDFFallbackPdftotext: c.cfg.PDFFallbackPdftotext,
		ExtractImages:        wantImages,
	})
	if err != nil {
		return nil, err
	}

	doc, err := p.Parse(bytes.NewReader(in.Data), in.Name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", in.Name, err)
	}
	if in.URL != "" {
		if doc.Meta.Properties == nil {
			doc.Meta.Properties = map[string]string{}
		}
		doc.Meta.Properties["source_url"] = in.URL
	}
	return doc, nil
}

// Enrich runs the OCR and VLM stages selected by opts over a parsed
// document. Per-image failures come back as warnings and leave the rest of
// the document intact.
func (c *Converter) Enrich(ctx context.Context, doc *docmodel.Document, opts Options) ([]string, error) {
	enricher, err := c.enricher(opts)
	if err != nil {
		return nil, err
	}
	warnings, err := enricher.Enrich(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("enrich %s: %w", doc.Meta.SourceName, err)
	}
	return warnings, nil
}

// Run parses and enriches resolved input bytes.
func (c *Converter) Run(ctx context.Context, in *source.Input, opts Options) (*docmodel.Document, []string, error) {
	doc, err := c.Parse(in, opts)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := c.Enrich(ctx, doc, opts)
	if err != nil {
		return nil, nil, err
	}
	return doc, warnings, nil
}

// Convert is Resolve followed by Run.
func (c *Converter) Convert(ctx context.Context, src string, opts Options) (*docmodel.Document, []string, error) {
	in, err := c.Resolve(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	return c.Run(ctx, in, opts)
}

func (c *Converter) enricher(opts Options) (*enrich.Enricher, error) {
	var engine ocr.Engine
	if !opts.NoOCR && opts.Pipeline != PipelineVLM {
		name := opts.OCREngine
		if name == "" {
			name = c.cfg.OCREngine
		}
		var err error
		engine, err = ocr.ForName(name, ocr.Config{
			RemoteURL:    c.cfg.OCRRemoteURL,
			RemoteAPIKey: c.cfg.OCRRemoteAPIKey,
		})
		if err != nil {
			return nil, err
		}
	}

	var client *vlm.Client
	if opts.Pipeline == PipelineVLM || opts.PictureDescription || opts.PictureClassification {
		model := opts.VLMModel
		if model == "" {
			model = c.cfg.VLMModel
		}
		client = vlm.NewClient(c.cfg.VLMBaseURL, c.cfg.VLMAPIKey, model)
		client.Stats = c.vlmStats
	}

	langs := opts.OCRLanguages
	if len(langs) == 0 {
		langs = c.cfg.OCRLanguages
	}

	return enrich.New(enrich.Options{
		OCREnabled:            !opts.NoOCR && opts.Pipeline != PipelineVLM,
		OCRLanguages:          langs,
		ForceFullPageOCR:      opts.ForceFullPageOCR,
		VLMPipeline:           opts.Pipeline == PipelineVLM,
		PictureDescription:    opts.PictureDescription,
		PictureClassification: opts.PictureClassification,
		CodeEnrichment:        opts.CodeEnrichment,
		FormulaEnrichment:     opts.FormulaEnrichment,
		MaxConcurrentImages:   c.cfg.MaxConcurrentImages,
	}, engine, client, c.log), nil
}
