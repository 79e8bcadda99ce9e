package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	internalerrors "github.com/chargescope/chargescope/internal/errors"
)

// defaultGeminiBaseURL is the Google Generative Language API endpoint.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient wraps the Gemini generateContent REST API.
type GeminiClient struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

// GeminiConfig holds Gemini-specific configuration
type GeminiConfig struct {
	APIKey         string
	Model          string // e.g., "gemini-1.5-flash"
	BaseURL        string // override for tests; defaults to the Google endpoint
	ProxyURL       string // optional HTTPS proxy
	TimeoutSeconds int    // Request timeout
	MaxTokens      int    // Max tokens in response
}

// geminiRequest is the request body for the generateContent endpoint
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// geminiContent holds one turn of conversation content
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiPart is a single text fragment
type geminiPart struct {
	Text string `json:"text"`
}

// geminiGenerationConfig contains model parameters
type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
}

// geminiResponse is the response from the generateContent endpoint
type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGeminiClient creates a new Gemini client.
// A missing API key fails immediately with ErrAuth; no network call is ever
// attempted without a credential.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, wrapSentinel(ErrAuth, fmt.Errorf("gemini API key is not set"))
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

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

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}, nil
}

// newHTTPClient builds an HTTP client with an optional proxy and a bounded timeout.
func newHTTPClient(proxyURL string, timeoutSeconds int) (*http.Client, error) {
	timeout := time.Duration(timeoutSeconds) * time.Second

	if proxyURL == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("proxy URL must use http or https scheme, got: %s", parsed.Scheme)
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(parsed),
		},
		Timeout: timeout,
	}, nil
}

// Analyze submits the prompt to Gemini and returns the free-text report.
func (c *GeminiClient) Analyze(ctx context.Context, prompt string) (string, *Stats, error) {
	startTime := time.Now()

	request := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: c.maxTokens,
			Temperature:     0.1, // Low temperature for consistent, factual output
			TopP:            0.9,
		},
	}

	// The key travels in a header rather than the query string so it can
	// never leak through a URL in an error message.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	response, err := doJSONPost[geminiResponse](ctx, c.httpClient, endpoint, headers, request)
	if err != nil {
		return "", nil, Classify(internalerrors.SanitizeError(err))
	}

	if len(response.Candidates) == 0 {
		return "", nil, fmt.Errorf("empty response from Gemini")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", nil, fmt.Errorf("empty response from Gemini")
	}

	stats := c.calculateStats(response, time.Since(startTime).Seconds())

	return text.String(), stats, nil
}

// calculateStats calculates cost and token statistics
func (c *GeminiClient) calculateStats(response *geminiResponse, durationSeconds float64) *Stats {
	inputTokens := response.UsageMetadata.PromptTokenCount
	outputTokens := response.UsageMetadata.CandidatesTokenCount

	// Gemini 1.5 Flash pricing: input $0.075/MTok, output $0.30/MTok
	inputCost := float64(inputTokens) / 1000000 * 0.075
	outputCost := float64(outputTokens) / 1000000 * 0.30

	return &Stats{
		Provider:        "Gemini",
		Model:           c.model,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		CostUSD:         inputCost + outputCost,
		DurationSeconds: durationSeconds,
	}
}

// GetModelInfo returns information about the configured model
func (c *GeminiClient) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":         c.model,
		"provider":      "Gemini",
		"max_tokens":    c.maxTokens,
		"context_limit": 1000000,
	}
}

// GetProviderName returns the name of the provider
func (c *GeminiClient) GetProviderName() string {
	return "Gemini"
}

// Ensure GeminiClient implements Provider interface
var _ Provider = (*GeminiClient)(nil)
