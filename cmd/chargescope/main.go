package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olegiv/go-logger"

	"github.com/chargescope/chargescope/internal/ai"
	"github.com/chargescope/chargescope/internal/config"
	"github.com/chargescope/chargescope/internal/logging"
	"github.com/chargescope/chargescope/internal/server"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// Version information - injected at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse CLI arguments first
	cli := config.ParseCLI()

	if cli.ShowHelp {
		// flag.Usage() is called automatically by flag.Parse() when -help is used
		// but we handle it explicitly here for consistency
		return exitSuccess
	}

	if cli.ShowVersion {
		fmt.Printf("chargescope %s\n", version)
		if gitCommit != "unknown" {
			fmt.Printf("  commit: %s\n", gitCommit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
		return exitSuccess
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Load configuration with CLI overrides
	cfg, err := config.LoadWithCLI(cli)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitFailure
	}

	// Initialize logger with credential sanitization
	baseLog := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		LogDir:     "./logs",
		Filename:   "chargescope.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		Console:    true,
	})
	log := logging.NewSecure(baseLog)
	defer func() {
		if err := log.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	log.Info().Str("version", version).Msg("Starting ChargeScope")
	log.Info().Str("provider", cfg.ModelProvider).Str("model", cfg.GetModel()).Msg("Configured model provider")

	if err := runServer(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Server failed")
		return exitFailure
	}

	log.Info().Msg("Shutdown complete")
	return exitSuccess
}

func runServer(ctx context.Context, cfg *config.Config, log *logging.SecureLogger) error {
	// A missing credential is not fatal: the UI still renders, and each
	// analyze action fails with a service-unavailable message.
	provider, providerErr := buildProvider(cfg)
	if providerErr != nil {
		log.Warn().Err(providerErr).Msg("Provider unavailable, starting in degraded mode")
	} else {
		info := provider.GetModelInfo()
		log.Info().
			Str("provider", provider.GetProviderName()).
			Interface("model", info["model"]).
			Msg("Provider initialized")

		if ollama, ok := provider.(*ai.OllamaClient); ok {
			checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
			if err := ollama.CheckConnection(checkCtx); err != nil {
				log.Warn().Err(err).Msg("Ollama endpoint not reachable yet")
			}
			checkCancel()
		}
	}

	srv := server.New(server.Options{
		Config:      cfg,
		Provider:    provider,
		ProviderErr: providerErr,
		Logger:      log,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// buildProvider constructs the configured model client. Construction only
// validates configuration; no network call happens here (except the optional
// Ollama reachability probe in runServer).
func buildProvider(cfg *config.Config) (ai.Provider, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}

	switch {
	case cfg.IsAnthropic():
		return ai.NewAnthropicClient(ai.AnthropicConfig{
			APIKey:         cfg.AnthropicAPIKey,
			Model:          cfg.ClaudeModel,
			ProxyURL:       cfg.GetProxyURL(true),
			TimeoutSeconds: cfg.AITimeoutSeconds,
			MaxTokens:      cfg.AIMaxTokens,
		})
	case cfg.IsOllama():
		return ai.NewOllamaClient(ai.OllamaConfig{
			BaseURL:        cfg.OllamaBaseURL,
			Model:          cfg.OllamaModel,
			TimeoutSeconds: cfg.AITimeoutSeconds,
			MaxTokens:      cfg.AIMaxTokens,
		})
	default:
		return ai.NewGeminiClient(ai.GeminiConfig{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			ProxyURL:       cfg.GetProxyURL(true),
			TimeoutSeconds: cfg.AITimeoutSeconds,
			MaxTokens:      cfg.AIMaxTokens,
		})
	}
}
