package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"analysis-backend/internal/llm"
	"analysis-backend/internal/shared/telemetry"
)

// Options configures the Gemini client.
type Options struct {
	APIKey string
	Model  string
}

// Client implements llm.Client on the Gemini API via google.golang.org/genai.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// RunUnit sends one unit to Gemini.
func (c *Client) RunUnit(ctx context.Context, input llm.UnitInput) (string, error) {
	system, user := llm.BuildPrompt(input)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", llm.Wrap("gemini", classify(err))
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.Wrap("gemini", errors.New("empty response"))
	}
	if resp.UsageMetadata != nil {
		telemetry.Debug("llm.response", map[string]any{
			"provider":      "gemini",
			"model":         c.model,
			"prompt_tokens": resp.UsageMetadata.PromptTokenCount,
			"total_tokens":  resp.UsageMetadata.TotalTokenCount,
		})
	}
	return text, nil
}

// classify turns genai API errors into llm.StatusError so the retry wrapper
// can read the HTTP status.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return err
}

var _ llm.Client = (*Client)(nil)
