// Package source resolves conversion inputs. An input is either a local
// file path or an http(s) URL; either way the resolver hands back the raw
// bytes plus enough naming context for format detection.
package source

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Input is a fully resolved conversion input.
type Input struct {
	Name        string // base filename, sanitized
	Data        []byte
	ContentType string // only set for URL fetches
	URL         string // original URL, empty for local files
}

// RetryableError marks a fetch failure that is worth retrying
// (timeouts, 5xx responses).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Resolver fetches input bytes from disk or over HTTP.
type Resolver struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewResolver builds a resolver with an upper bound on input size.
func NewResolver(maxBytes int64, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
	}
}

// IsURL reports whether src should be fetched over HTTP.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Resolve loads src, which may be a local path or a URL.
func (r *Resolver) Resolve(ctx context.Context, src string) (*Input, error) {
	if IsURL(src) {
		return r.fetch(ctx, src)
	}
	return r.readFile(src)
}

func (r *Resolver) readFile(p string) (*Input, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input %s is a directory", p)
	}
	if r.maxBytes > 0 && info.Size() > r.maxBytes {
		return nil, fmt.Errorf("input %s exceeds max size (%d bytes)", p, r.maxBytes)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return &Input{Name: filepath.Base(p), Data: data}, nil
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (*Input, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "docmill/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("fetch %s: %w", rawURL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &RetryableError{Err: fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	limit := r.maxBytes
	if limit <= 0 {
		limit = 1 << 30
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("read response: %w", err)}
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("fetch %s: response exceeds max size (%d bytes)", rawURL, limit)
	}

	ct := resp.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	return &Input{
		Name:        urlFilename(rawURL, resp.Header.Get("Content-Disposition"), ct),
		Data:        data,
		ContentType: ct,
		URL:         rawURL,
	}, nil
}

// urlFilename works out a usable filename for a fetched URL, preferring the
// Content-Disposition header, then the URL path, then a Content-Type guess.
func urlFilename(rawURL, disposition, contentType string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := sanitize(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if name := sanitize(path.Base(u.Path)); name != "" && strings.Contains(name, ".") {
			return name
		}
	}
	switch contentType {
	case "application/pdf":
		return "document.pdf"
	case "text/html", "application/xhtml+xml":
		return "document.html"
	case "text/markdown":
		return "document.md"
	case "text/csv":
		return "document.csv"
	case "image/png":
		return "image.png"
	case "image/jpeg":
		return "image.jpg"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "document.docx"
	}
	return "document.txt"
}

func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		return ""
	}
	return name
}
