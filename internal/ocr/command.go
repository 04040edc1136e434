package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/text/language"
)

// commandEngine shells out to an OCR command-line tool. This covers engines
// with no Go binding: the tool reads the image file and prints recognized
// text on stdout.
type commandEngine struct {
	binary string
	args   func(path string, langs []string) []string
}

func newCommandEngine(binary string, args func(string, []string) []string) *commandEngine {
	return &commandEngine{binary: binary, args: args}
}

func (e *commandEngine) Name() string { return e.binary }

func (e *commandEngine) Recognize(ctx context.Context, req Request) (string, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return "", fmt.Errorf("%s: %w: not found in PATH", e.binary, ErrEngineUnavailable)
	}

	tmp, err := os.CreateTemp("", "docmill-ocr-*"+extForMIME(req.MIME))
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(req.Image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, path, e.args(tmpPath, req.Languages)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", e.binary, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func easyocrArgs(path string, langs []string) []string {
	args := []string{"--file", path, "--detail", "0", "--paragraph", "True"}
	if codes := twoLetterCodes(langs); len(codes) > 0 {
		args = append(args, "--lang")
		args = append(args, codes...)
	}
	return args
}

func rapidocrArgs(path string, langs []string) []string {
	return []string{"-img", path}
}

func ocrmacArgs(path string, langs []string) []string {
	args := []string{path}
	if codes := twoLetterCodes(langs); len(codes) > 0 {
		args = append(args, "--language", strings.Join(codes, ","))
	}
	return args
}

// twoLetterCodes maps ISO 639 hints to the two-letter form the CLI engines
// expect, dropping anything unparseable.
func twoLetterCodes(langs []string) []string {
	var codes []string
	for _, l := range langs {
		base, err := language.ParseBase(l)
		if err != nil {
			continue
		}
		codes = append(codes, base.String())
	}
	return codes
}

// threeLetterCodes maps ISO 639 hints to the three-letter form tesseract's
// traineddata files use ("en" and "eng" both become "eng").
func threeLetterCodes(langs []string) []string {
	var codes []string
	for _, l := range langs {
		base, err := language.ParseBase(l)
		if err != nil {
			continue
		}
		codes = append(codes, base.ISO3())
	}
	return codes
}

func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	case "image/bmp":
		return ".bmp"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
