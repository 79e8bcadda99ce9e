package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// verifyOllamaChatRequest validates an Ollama chat request.
func verifyOllamaChatRequest(t *testing.T, r *http.Request, w http.ResponseWriter) *ollamaChatRequest {
	t.Helper()

	var req ollamaChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("failed to decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}

	if req.Model == "" {
		t.Error("model is empty")
	}
	if len(req.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "user" {
		t.Errorf("message should be user, got %s", req.Messages[0].Role)
	}
	if req.Stream {
		t.Error("stream should be false")
	}

	return &req
}

func newTestOllamaClient(t *testing.T, baseURL string) *OllamaClient {
	t.Helper()

	client, err := NewOllamaClient(OllamaConfig{
		BaseURL:        baseURL,
		Model:          "llama3.2",
		TimeoutSeconds: 5,
		MaxTokens:      2000,
	})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	return client
}

func TestNewOllamaClientDefaults(t *testing.T) {
	client, err := NewOllamaClient(OllamaConfig{Model: "llama3.2"})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}
	if client.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %s, want default", client.baseURL)
	}

	if _, err := NewOllamaClient(OllamaConfig{}); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestOllamaAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if verifyOllamaChatRequest(t, r, w) == nil {
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "llama3.2",
			CreatedAt:       time.Now(),
			Message:         ollamaMessage{Role: "assistant", Content: "Diagnostic report text."},
			Done:            true,
			PromptEvalCount: 1500,
			EvalCount:       250,
		})
	}))
	defer server.Close()

	client := newTestOllamaClient(t, server.URL)

	report, stats, err := client.Analyze(context.Background(), "analyze this log")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report != "Diagnostic report text." {
		t.Errorf("report = %q", report)
	}
	if stats.InputTokens != 1500 || stats.OutputTokens != 250 {
		t.Errorf("tokens = %d/%d, want 1500/250", stats.InputTokens, stats.OutputTokens)
	}
	if stats.CostUSD != 0 {
		t.Errorf("CostUSD = %f, want 0 (local inference)", stats.CostUSD)
	}
}

func TestOllamaAnalyzeIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Done: false})
	}))
	defer server.Close()

	client := newTestOllamaClient(t, server.URL)

	_, _, err := client.Analyze(context.Background(), "analyze this log")
	if err == nil {
		t.Fatal("expected error for incomplete response")
	}
}

func TestOllamaAnalyzeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestOllamaClient(t, server.URL)

	_, _, err := client.Analyze(context.Background(), "analyze this log")
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork in chain", err)
	}
}

func TestOllamaCheckConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2"}]}`))
	}))
	defer server.Close()

	client := newTestOllamaClient(t, server.URL)

	if err := client.CheckConnection(context.Background()); err != nil {
		t.Errorf("CheckConnection() error = %v", err)
	}
}
