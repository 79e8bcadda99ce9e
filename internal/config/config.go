package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CLIOptions holds command-line argument overrides
type CLIOptions struct {
	ListenAddr  string // -listen: HTTP listen address
	Provider    string // -provider: model provider (gemini, anthropic, ollama)
	ShowHelp    bool   // -help: show usage
	ShowVersion bool   // -version: show version
}

// ParseCLI parses command-line arguments and returns CLIOptions
func ParseCLI() *CLIOptions {
	opts := &CLIOptions{}

	flag.StringVar(&opts.ListenAddr, "listen", "", "HTTP listen address (overrides LISTEN_ADDR)")
	flag.StringVar(&opts.Provider, "provider", "", "Model provider: gemini, anthropic, ollama (overrides MODEL_PROVIDER)")
	flag.BoolVar(&opts.ShowHelp, "help", false, "Show usage information")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version information")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ChargeScope - AI analysis of OCPP 1.6 charge point logs\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nExamples:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s -listen :8080\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -provider ollama\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment variables can be set in .env file or exported directly.\n")
		_, _ = fmt.Fprintf(os.Stderr, "CLI arguments override environment variables.\n")
	}

	flag.Parse()

	return opts
}

// Config holds all application configuration
type Config struct {
	// Model Provider Selection
	ModelProvider string // "gemini" (default), "anthropic" or "ollama"

	// Gemini Settings (used when ModelProvider = "gemini")
	GeminiAPIKey string
	GeminiModel  string

	// Anthropic/Claude Settings (used when ModelProvider = "anthropic")
	AnthropicAPIKey string
	ClaudeModel     string

	// Ollama Settings (used when ModelProvider = "ollama")
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3.2"

	// HTTP Server
	ListenAddr string

	// Input limits
	MaxUploadSizeMB int  // uploads above this are rejected
	MaxLogContentKB int  // prompt content above this is truncated
	MaxUploadRows   int  // tabular rows beyond this are dropped
	PreviewRows     int  // bounded preview shown in the UI
	FilterOCPPNoise bool // default state of the Heartbeat/BootNotification filter

	// Rate limiting
	MaxRequestsPerMinute int

	// AI Settings
	AITimeoutSeconds int
	AIMaxTokens      int

	// Application
	LogLevel string

	// Proxy
	HTTPProxy  string
	HTTPSProxy string
}

// Load loads configuration from .env file and environment variables
// Priority: .env file > OS environment variables
// For CLI overrides, use LoadWithCLI instead
func Load() (*Config, error) {
	return LoadWithCLI(nil)
}

// LoadWithCLI loads configuration with CLI argument overrides
// Priority: CLI args > .env file > OS environment variables
func LoadWithCLI(cli *CLIOptions) (*Config, error) {
	// Set up viper first to read OS environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env file to override OS environment variables
	// godotenv.Load() sets OS env vars from .env, which viper will then read
	_ = godotenv.Load()

	// Set defaults
	setDefaults()

	config := &Config{
		ModelProvider:   viper.GetString("MODEL_PROVIDER"),
		GeminiAPIKey:    viper.GetString("GEMINI_API_KEY"),
		GeminiModel:     viper.GetString("GEMINI_MODEL"),
		AnthropicAPIKey: viper.GetString("ANTHROPIC_API_KEY"),
		ClaudeModel:     viper.GetString("CLAUDE_MODEL"),
		OllamaBaseURL:   viper.GetString("OLLAMA_BASE_URL"),
		OllamaModel:     viper.GetString("OLLAMA_MODEL"),

		ListenAddr: viper.GetString("LISTEN_ADDR"),

		MaxUploadSizeMB: viper.GetInt("MAX_UPLOAD_SIZE_MB"),
		MaxLogContentKB: viper.GetInt("MAX_LOG_CONTENT_KB"),
		MaxUploadRows:   viper.GetInt("MAX_UPLOAD_ROWS"),
		PreviewRows:     viper.GetInt("PREVIEW_ROWS"),
		FilterOCPPNoise: viper.GetBool("FILTER_OCPP_NOISE"),

		MaxRequestsPerMinute: viper.GetInt("MAX_REQUESTS_PER_MINUTE"),

		AITimeoutSeconds: viper.GetInt("AI_TIMEOUT_SECONDS"),
		AIMaxTokens:      viper.GetInt("AI_MAX_TOKENS"),

		LogLevel:   viper.GetString("LOG_LEVEL"),
		HTTPProxy:  viper.GetString("HTTP_PROXY"),
		HTTPSProxy: viper.GetString("HTTPS_PROXY"),
	}

	// Apply CLI overrides (highest priority)
	if cli != nil {
		if cli.ListenAddr != "" {
			config.ListenAddr = cli.ListenAddr
		}
		if cli.Provider != "" {
			config.ModelProvider = cli.Provider
		}
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("MODEL_PROVIDER", "gemini")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("CLAUDE_MODEL", "claude-sonnet-4-5-20250929")
	viper.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	viper.SetDefault("OLLAMA_MODEL", "llama3.2")

	viper.SetDefault("LISTEN_ADDR", ":8080")

	viper.SetDefault("MAX_UPLOAD_SIZE_MB", 5)
	viper.SetDefault("MAX_LOG_CONTENT_KB", 500)
	viper.SetDefault("MAX_UPLOAD_ROWS", 50000)
	viper.SetDefault("PREVIEW_ROWS", 20)
	viper.SetDefault("FILTER_OCPP_NOISE", false)

	viper.SetDefault("MAX_REQUESTS_PER_MINUTE", 10)

	viper.SetDefault("AI_TIMEOUT_SECONDS", 60)
	viper.SetDefault("AI_MAX_TOKENS", 8000)

	viper.SetDefault("LOG_LEVEL", "info")
}

// Validate validates the configuration.
// A missing provider credential is deliberately NOT an error here: the UI
// must still render without one. Credential presence is checked separately
// via ValidateCredentials when the provider client is constructed, and the
// resulting error surfaces per analyze action.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}

	if c.MaxUploadSizeMB < 1 || c.MaxUploadSizeMB > 100 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be between 1 and 100")
	}
	if c.MaxLogContentKB < 1 {
		return fmt.Errorf("MAX_LOG_CONTENT_KB must be at least 1")
	}
	if c.MaxUploadRows < 1 {
		return fmt.Errorf("MAX_UPLOAD_ROWS must be at least 1")
	}
	if c.PreviewRows < 1 {
		return fmt.Errorf("PREVIEW_ROWS must be at least 1")
	}

	if c.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("MAX_REQUESTS_PER_MINUTE must be at least 1")
	}

	if c.AITimeoutSeconds < 5 || c.AITimeoutSeconds > 600 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be between 5 and 600")
	}
	if c.AIMaxTokens < 1000 || c.AIMaxTokens > 16000 {
		return fmt.Errorf("AI_MAX_TOKENS must be between 1000 and 16000")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// validateProvider validates provider selection and non-credential settings
func (c *Config) validateProvider() error {
	validProviders := map[string]bool{
		"gemini":    true,
		"anthropic": true,
		"ollama":    true,
	}

	if !validProviders[c.ModelProvider] {
		return fmt.Errorf("MODEL_PROVIDER must be 'gemini', 'anthropic', or 'ollama' (got: %s)", c.ModelProvider)
	}

	switch c.ModelProvider {
	case "gemini":
		if c.GeminiModel == "" {
			return fmt.Errorf("GEMINI_MODEL is required when MODEL_PROVIDER=gemini")
		}

	case "anthropic":
		if c.ClaudeModel == "" {
			return fmt.Errorf("CLAUDE_MODEL is required when MODEL_PROVIDER=anthropic")
		}

	case "ollama":
		if c.OllamaModel == "" {
			return fmt.Errorf("OLLAMA_MODEL is required when MODEL_PROVIDER=ollama")
		}
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL is required when MODEL_PROVIDER=ollama")
		}
		if !strings.HasPrefix(c.OllamaBaseURL, "http://") && !strings.HasPrefix(c.OllamaBaseURL, "https://") {
			return fmt.Errorf("OLLAMA_BASE_URL must start with 'http://' or 'https://'")
		}
	}

	return nil
}

// ValidateCredentials checks that the selected provider has its credential.
// Ollama needs none (local endpoint).
func (c *Config) ValidateCredentials() error {
	switch c.ModelProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when MODEL_PROVIDER=gemini")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when MODEL_PROVIDER=anthropic")
		}
		if !strings.HasPrefix(c.AnthropicAPIKey, "sk-ant-") {
			return fmt.Errorf("ANTHROPIC_API_KEY must start with 'sk-ant-'")
		}
	}
	return nil
}

// GetProxyURL returns the appropriate proxy URL for HTTP/HTTPS requests
func (c *Config) GetProxyURL(isHTTPS bool) string {
	if isHTTPS && c.HTTPSProxy != "" {
		return c.HTTPSProxy
	}
	if c.HTTPProxy != "" {
		return c.HTTPProxy
	}
	return ""
}

// GetModel returns the model name for the current provider
func (c *Config) GetModel() string {
	switch c.ModelProvider {
	case "anthropic":
		return c.ClaudeModel
	case "ollama":
		return c.OllamaModel
	default:
		return c.GeminiModel
	}
}

// IsGemini returns true if the model provider is Gemini
func (c *Config) IsGemini() bool {
	return c.ModelProvider == "gemini"
}

// IsAnthropic returns true if the model provider is Anthropic
func (c *Config) IsAnthropic() bool {
	return c.ModelProvider == "anthropic"
}

// IsOllama returns true if the model provider is Ollama
func (c *Config) IsOllama() bool {
	return c.ModelProvider == "ollama"
}
