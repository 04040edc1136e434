package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/rthomann/docmill/internal/docmodel"
	"github.com/rthomann/docmill/internal/export"
	"github.com/rthomann/docmill/internal/pipeline"
	"github.com/rthomann/docmill/internal/source"
)

// conversionFlags are shared by convert and batch.
func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "to",
			Usage: "output format: markdown, html, text, json",
			Value: "markdown",
		},
		&cli.StringFlag{
			Name:  "image-mode",
			Usage: "markdown image handling: embedded, referenced, placeholder",
			Value: "embedded",
		},
		&cli.StringFlag{
			Name:  "pipeline",
			Usage: "conversion pipeline: standard, vlm",
			Value: "standard",
		},
		&cli.StringFlag{
			Name:  "ocr-engine",
			Usage: "ocr engine: tesseract, easyocr, rapidocr, ocrmac, remote",
		},
		&cli.StringSliceFlag{
			Name:  "ocr-lang",
			Usage: "ocr language codes, repeatable",
		},
		&cli.BoolFlag{
			Name:  "no-ocr",
			Usage: "disable OCR entirely",
		},
		&cli.BoolFlag{
			Name:  "force-full-page-ocr",
			Usage: "run OCR on embedded images even when a text layer exists",
		},
		&cli.StringFlag{
			Name:  "vlm-model",
			Usage: "vision model name for the vlm pipeline and picture stages",
		},
		&cli.BoolFlag{
			Name:  "enrich-picture-description",
			Usage: "describe pictures with the vision model",
		},
		&cli.BoolFlag{
			Name:  "enrich-picture-classes",
			Usage: "classify pictures with the vision model",
		},
		&cli.BoolFlag{
			Name:  "enrich-code",
			Usage: "detect code blocks in parsed text",
		},
		&cli.BoolFlag{
			Name:  "enrich-formula",
			Usage: "detect formulas in parsed text",
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "convert a single file or URL",
		ArgsUsage: "<path-or-url>",
		Flags: append(conversionFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file path, '-' for stdout",
			},
		),
		Action: runConvert,
	}
}

func runConvert(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one source, got %d", c.NArg())
	}
	src := c.Args().First()

	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	opts, err := optionsFromCLI(c)
	if err != nil {
		return err
	}

	conv := pipeline.NewConverter(cfg, log)
	doc, warnings, err := conv.Convert(context.Background(), src, opts)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		color.Yellow("warning: %s", w)
	}

	outPath := c.String("output")
	if outPath == "" {
		outPath = defaultOutputPath(src, opts.Target)
	}

	if err := writeResult(doc, outPath, opts); err != nil {
		return err
	}

	if outPath == "-" {
		return nil
	}
	color.Green("converted %s -> %s", src, outPath)
	return nil
}

// writeResult exports the document and writes it to outPath, or stdout for
// "-". Referenced images land in a sibling artifacts directory.
func writeResult(doc *docmodel.Document, outPath string, opts pipeline.Options) error {
	mdOpts := export.MarkdownOptions{ImageMode: opts.ImageMode}
	if opts.ImageMode == export.ImageReferenced && outPath != "-" {
		base := filepath.Base(outPath)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		mdOpts.ImageDir = filepath.Join(filepath.Dir(outPath), stem+"_artifacts")
		mdOpts.ImagePrefix = stem + "_artifacts/"
	}

	out, err := export.Export(doc, opts.Target, mdOpts)
	if err != nil {
		return err
	}

	if outPath == "-" {
		_, err = os.Stdout.WriteString(out)
		return err
	}
	return os.WriteFile(outPath, []byte(out), 0o644)
}

// optionsFromCLI maps shared conversion flags onto pipeline options.
func optionsFromCLI(c *cli.Context) (pipeline.Options, error) {
	opts := pipeline.Options{
		Target:                export.Target(c.String("to")),
		ImageMode:             export.ImageMode(c.String("image-mode")),
		Pipeline:              pipeline.PipelineKind(c.String("pipeline")),
		OCREngine:             c.String("ocr-engine"),
		OCRLanguages:          c.StringSlice("ocr-lang"),
		NoOCR:                 c.Bool("no-ocr"),
		ForceFullPageOCR:      c.Bool("force-full-page-ocr"),
		VLMModel:              c.String("vlm-model"),
		PictureDescription:    c.Bool("enrich-picture-description"),
		PictureClassification: c.Bool("enrich-picture-classes"),
		CodeEnrichment:        c.Bool("enrich-code"),
		FormulaEnrichment:     c.Bool("enrich-formula"),
	}
	if err := opts.Normalize(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

// defaultOutputPath derives the output filename from the source, placed in
// the working directory.
func defaultOutputPath(src string, target export.Target) string {
	name := src
	if source.IsURL(src) {
		name = filepath.Base(src)
		if name == "" || name == "." || name == "/" {
			name = "document"
		}
	}
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "document"
	}
	return stem + target.Extension()
}
