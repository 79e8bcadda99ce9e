package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error // sentinel expected in the chain, nil for pass-through
	}{
		{
			name: "nil error",
			err:  nil,
			want: nil,
		},
		{
			name: "401 status",
			err:  &httpStatusError{StatusCode: 401, Body: "unauthorized"},
			want: ErrAuth,
		},
		{
			name: "403 status",
			err:  &httpStatusError{StatusCode: 403, Body: "forbidden"},
			want: ErrAuth,
		},
		{
			name: "invalid gemini key message",
			err:  errors.New("API returned status 400: API key not valid. Please pass a valid API key."),
			want: ErrAuth,
		},
		{
			name: "429 status",
			err:  &httpStatusError{StatusCode: 429, Body: "too many requests"},
			want: ErrQuota,
		},
		{
			name: "rate limit message",
			err:  errors.New("rate_limit_error: requests per minute exceeded"),
			want: ErrQuota,
		},
		{
			name: "overloaded message",
			err:  errors.New("service overloaded, try again later"),
			want: ErrQuota,
		},
		{
			name: "context deadline",
			err:  fmt.Errorf("call failed: %w", context.DeadlineExceeded),
			want: ErrTimeout,
		},
		{
			name: "client timeout message",
			err:  errors.New("Client.Timeout exceeded: context deadline exceeded"),
			want: ErrTimeout,
		},
		{
			name: "500 status",
			err:  &httpStatusError{StatusCode: 500, Body: "internal"},
			want: ErrNetwork,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:8080: connection refused"),
			want: ErrNetwork,
		},
		{
			name: "unclassified error passes through",
			err:  errors.New("failed to unmarshal response"),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)

			if tt.err == nil {
				if got != nil {
					t.Errorf("Classify(nil) = %v, want nil", got)
				}
				return
			}

			if tt.want == nil {
				// Pass-through: same error, no sentinel attached
				if !errors.Is(got, tt.err) {
					t.Errorf("Classify() lost the original error: %v", got)
				}
				for _, sentinel := range []error{ErrAuth, ErrQuota, ErrTimeout, ErrNetwork} {
					if errors.Is(got, sentinel) {
						t.Errorf("Classify() attached unexpected sentinel %v", sentinel)
					}
				}
				return
			}

			if !errors.Is(got, tt.want) {
				t.Errorf("Classify() = %v, want %v in chain", got, tt.want)
			}
			// The original cause must stay reachable for logging
			if !errors.Is(got, tt.err) {
				t.Errorf("Classify() lost the original error: %v", got)
			}
		})
	}
}

func TestClassifiedErrorMessage(t *testing.T) {
	err := Classify(&httpStatusError{StatusCode: 429, Body: "slow down"})
	want := "quota exceeded: API returned status 429: slow down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsValidProviderType(t *testing.T) {
	for _, valid := range []string{"gemini", "anthropic", "ollama"} {
		if !IsValidProviderType(valid) {
			t.Errorf("IsValidProviderType(%q) = false, want true", valid)
		}
	}
	if IsValidProviderType("openai") {
		t.Error("IsValidProviderType(openai) = true, want false")
	}
}
