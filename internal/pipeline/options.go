package pipeline

import (
	"fmt"

	"github.com/rthomann/docmill/internal/export"
	"github.com/rthomann/docmill/internal/ocr"
)

// PipelineKind selects between the standard parser path and the
// VLM-centric path where image text comes from model descriptions.
type PipelineKind string

const (
	PipelineStandard PipelineKind = "standard"
	PipelineVLM      PipelineKind = "vlm"
)

// Options are the per-conversion settings assembled from CLI flags or web
// form fields.
type Options struct {
	Target    export.Target
	ImageMode export.ImageMode
	ImageDir  string // referenced-mode image directory
	Pipeline  PipelineKind

	OCREngine        string
	OCRLanguages     []string
	NoOCR            bool
	ForceFullPageOCR bool

	VLMModel              string
	PictureDescription    bool
	PictureClassification bool
	CodeEnrichment        bool
	FormulaEnrichment     bool
}

// Normalize fills defaults and validates enumerations.
func (o *Options) Normalize() error {
	target, err := export.ParseTarget(string(o.Target))
	if err != nil {
		return err
	}
	o.Target = target

	mode, err := export.ParseImageMode(string(o.ImageMode))
	if err != nil {
		return err
	}
	o.ImageMode = mode

	switch o.Pipeline {
	case "":
		o.Pipeline = PipelineStandard
	case PipelineStandard, PipelineVLM:
	default:
		return fmt.Errorf("unknown pipeline: %q", o.Pipeline)
	}

	if err := ocr.ValidateLanguages(o.OCRLanguages); err != nil {
		return err
	}
	return nil
}
