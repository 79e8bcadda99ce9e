package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	internalerrors "github.com/chargescope/chargescope/internal/errors"
)

// AnthropicClient wraps the Anthropic API client
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// AnthropicConfig holds Anthropic-specific configuration
type AnthropicConfig struct {
	APIKey         string
	Model          string // e.g., "claude-sonnet-4-5-20250929"
	ProxyURL       string // optional HTTPS proxy
	TimeoutSeconds int    // Request timeout
	MaxTokens      int    // Max tokens in response
}

// NewAnthropicClient creates a new Claude client.
// A missing API key fails immediately with ErrAuth; no network call is ever
// attempted without a credential.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, wrapSentinel(ErrAuth, fmt.Errorf("anthropic API key is not set"))
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("claude model is required")
	}

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8000
	}

	httpClient, err := newHTTPClient(cfg.ProxyURL, cfg.TimeoutSeconds)
	if err != nil {
		return nil, err
	}

	client := anthropic.NewClient(
		cfg.APIKey,
		anthropic.WithHTTPClient(httpClient),
	)

	return &AnthropicClient{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Analyze submits the prompt to Claude and returns the free-text report.
// A failed call is terminal for the request; the user resubmits.
func (c *AnthropicClient) Analyze(ctx context.Context, prompt string) (string, *Stats, error) {
	startTime := time.Now()

	request := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: c.maxTokens,
	}

	response, err := c.client.CreateMessages(ctx, request)
	if err != nil {
		// Sanitize before classification so credentials never reach logs
		return "", nil, Classify(internalerrors.SanitizeError(err))
	}

	if len(response.Content) == 0 {
		return "", nil, fmt.Errorf("empty response from Claude")
	}

	responseText := ""
	for _, content := range response.Content {
		if content.Type == "text" && content.Text != nil {
			responseText += *content.Text
		}
	}
	if responseText == "" {
		return "", nil, fmt.Errorf("empty response from Claude")
	}

	stats := c.calculateStats(response, time.Since(startTime).Seconds())

	return responseText, stats, nil
}

// calculateStats calculates cost and token statistics
func (c *AnthropicClient) calculateStats(response anthropic.MessagesResponse, durationSeconds float64) *Stats {
	inputTokens := response.Usage.InputTokens
	outputTokens := response.Usage.OutputTokens

	// Claude Sonnet pricing: input $3/MTok, output $15/MTok
	inputCost := float64(inputTokens) / 1000000 * 3.0
	outputCost := float64(outputTokens) / 1000000 * 15.0

	return &Stats{
		Provider:        "Anthropic",
		Model:           c.model,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		CostUSD:         inputCost + outputCost,
		DurationSeconds: durationSeconds,
	}
}

// GetModelInfo returns information about the configured model
func (c *AnthropicClient) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":         c.model,
		"provider":      "Anthropic",
		"max_tokens":    c.maxTokens,
		"context_limit": 200000,
	}
}

// GetProviderName returns the name of the provider
func (c *AnthropicClient) GetProviderName() string {
	return "Anthropic"
}

// Ensure AnthropicClient implements Provider interface
var _ Provider = (*AnthropicClient)(nil)
