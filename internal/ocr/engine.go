// Package ocr provides pluggable optical character recognition engines.
// Tesseract is bound natively through gosseract; easyocr, rapidocr, and
// ocrmac delegate to their command-line tools when installed; remote talks
// to an HTTP OCR sidecar.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// ErrEngineUnavailable means the selected engine cannot run on this host
// (missing binary, unsupported platform, sidecar not configured).
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Request is a single image submitted for recognition.
type Request struct {
	Image     []byte
	MIME      string
	Languages []string // ISO 639 codes, e.g. "eng", "deu"
}

// Engine recognizes text in one image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, req Request) (string, error)
}

// Config carries engine construction settings.
type Config struct {
	RemoteURL    string // base URL of an OCR sidecar, for the remote engine
	RemoteAPIKey string
}

// ForName builds the engine selected by --ocr-engine.
func ForName(name string, cfg Config) (Engine, error) {
	switch name {
	case "", "tesseract":
		return &TesseractEngine{}, nil
	case "easyocr":
		return newCommandEngine("easyocr", easyocrArgs), nil
	case "rapidocr":
		return newCommandEngine("rapidocr", rapidocrArgs), nil
	case "ocrmac":
		return newCommandEngine("ocrmac", ocrmacArgs), nil
	case "remote":
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("remote ocr: %w: no sidecar URL configured", ErrEngineUnavailable)
		}
		return NewRemoteEngine(cfg.RemoteURL, cfg.RemoteAPIKey), nil
	}
	return nil, fmt.Errorf("unknown ocr engine: %q", name)
}

// ValidateLanguages checks that every hint is a parseable ISO 639 base
// language code.
func ValidateLanguages(langs []string) error {
	for _, l := range langs {
		if _, err := language.ParseBase(l); err != nil {
			return fmt.Errorf("invalid ocr language %q: %w", l, err)
		}
	}
	return nil
}
