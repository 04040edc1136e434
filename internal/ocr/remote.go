package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteEngine talks to an OCR sidecar service over HTTP. The sidecar
// accepts a base64 image and returns recognized text, which lets heavier
// engines run out of process.
type RemoteEngine struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRemoteEngine builds a client for the sidecar at baseURL.
func NewRemoteEngine(baseURL, apiKey string) *RemoteEngine {
	return &RemoteEngine{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (e *RemoteEngine) Name() string { return "remote" }

// recognizeRequest is the body for POST /ocr.
type recognizeRequest struct {
	Image     string   `json:"image"` // base64
	MIME      string   `json:"mime,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// recognizeResponse is the sidecar's reply.
type recognizeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (e *RemoteEngine) Recognize(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(recognizeRequest{
		Image:     base64.StdEncoding.EncodeToString(req.Image),
		MIME:      req.MIME,
		Languages: req.Languages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ocr request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("remote ocr: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("remote ocr: status %d: %s", resp.StatusCode, string(respBody))
	}

	var out recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("remote ocr: %s", out.Error)
	}
	return out.Text, nil
}
