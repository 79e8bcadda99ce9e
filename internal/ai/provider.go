// Package ai provides clients for generative text-completion services.
// The rest of the pipeline depends only on the Provider interface so that
// deterministic fakes can be substituted in tests.
package ai

import "context"

// Provider defines the interface for model providers (Gemini, Anthropic, Ollama).
type Provider interface {
	// Analyze submits the prompt and returns the model's free-text report.
	// Errors are classified into the package's typed errors (ErrAuth,
	// ErrQuota, ErrTimeout, ErrNetwork).
	Analyze(ctx context.Context, prompt string) (string, *Stats, error)

	// GetModelInfo returns information about the configured model
	GetModelInfo() map[string]interface{}

	// GetProviderName returns the name of the provider (e.g., "Gemini", "Ollama")
	GetProviderName() string
}

// Stats holds statistics about a single API call
type Stats struct {
	Provider        string
	Model           string
	InputTokens     int
	OutputTokens    int
	CostUSD         float64
	DurationSeconds float64
}

// ProviderType represents the type of model provider
type ProviderType string

const (
	ProviderGemini    ProviderType = "gemini"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// ValidProviderTypes returns a list of valid provider types
func ValidProviderTypes() []ProviderType {
	return []ProviderType{ProviderGemini, ProviderAnthropic, ProviderOllama}
}

// IsValidProviderType checks if the given provider type is valid
func IsValidProviderType(pt string) bool {
	for _, valid := range ValidProviderTypes() {
		if string(valid) == pt {
			return true
		}
	}
	return false
}
