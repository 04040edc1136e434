// Package vlm describes and classifies document pictures with a
// vision-language model behind any OpenAI-compatible API.
package vlm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rthomann/docmill/internal/docmodel"
)

// DefaultModel is a SmolVLM-class model small enough for local serving.
const DefaultModel = "HuggingFaceTB/SmolVLM-256M-Instruct"

// Client calls a vision-language model for picture description and
// classification.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int64

	Stats *Stats
}

// NewClient builds a VLM client. baseURL may point at any OpenAI-compatible
// endpoint (a local SmolVLM server, a hosted API).
func NewClient(baseURL, apiKey, model string) *Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client:    &client,
		model:     model,
		maxTokens: 512,
		Stats:     NewStats(time.Hour),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Describe produces a short natural-language description of an image.
func (c *Client) Describe(ctx context.Context, img *docmodel.Image) (string, error) {
	text, err := c.complete(ctx, DescriptionPrompt, img)
	if err != nil {
		return "", err
	}
	return CleanDescription(text), nil
}

// Classify labels an image with one of the document-figure classes.
func (c *Client) Classify(ctx context.Context, img *docmodel.Image) (string, error) {
	text, err := c.complete(ctx, ClassificationPrompt, img)
	if err != nil {
		return "", err
	}
	return NormalizeClass(text), nil
}

func (c *Client) complete(ctx context.Context, prompt string, img *docmodel.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("image %s has no data", img.ID)
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", img.MIME, base64.StdEncoding.EncodeToString(img.Data))

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
			}),
		},
		MaxTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
				return "", &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
			}
		}
		return "", fmt.Errorf("vlm request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from vlm")
	}

	c.Stats.Record(time.Since(start).Milliseconds(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

// RetryableError indicates a transient VLM failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
