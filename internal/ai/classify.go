package ai

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

// Typed errors for the failure modes the UI distinguishes. Each analyze
// action either produces a full report or exactly one of these; nothing is
// retried automatically.
var (
	// ErrAuth indicates a missing or rejected credential.
	ErrAuth = errors.New("authentication failed")
	// ErrQuota indicates the remote service reported rate limiting or quota exhaustion.
	ErrQuota = errors.New("quota exceeded")
	// ErrTimeout indicates the bounded request timeout elapsed.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork indicates a transport-level failure reaching the service.
	ErrNetwork = errors.New("network failure")
)

// Classify maps a raw provider error onto the typed error taxonomy.
// The original error stays in the chain for logging; callers branch on
// errors.Is against the sentinels above.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isAuthError(err):
		return wrapSentinel(ErrAuth, err)
	case isRateLimitError(err) || isOverloadedError(err):
		return wrapSentinel(ErrQuota, err)
	case isTimeoutError(err):
		return wrapSentinel(ErrTimeout, err)
	case isNetworkError(err):
		return wrapSentinel(ErrNetwork, err)
	default:
		return err
	}
}

// wrapSentinel attaches a sentinel to err so both errors.Is checks succeed.
func wrapSentinel(sentinel, err error) error {
	return &classifiedError{sentinel: sentinel, cause: err}
}

type classifiedError struct {
	sentinel error
	cause    error
}

func (e *classifiedError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *classifiedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

// isAuthError detects credential rejection from any provider.
func isAuthError(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsAuthenticationErr() || apiErr.IsPermissionErr()
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 401 || statusErr.StatusCode == 403
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "api key not valid") ||
		strings.Contains(errStr, "api_key_invalid") ||
		strings.Contains(errStr, "unauthenticated") ||
		strings.Contains(errStr, "permission denied")
}

// isRateLimitError detects if an error is a rate limit error from any provider.
// It checks both the Anthropic SDK error type and error message patterns.
func isRateLimitError(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimitErr()
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == 429
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate_limit_error") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "resource_exhausted") ||
		strings.Contains(errStr, "too many requests")
}

// isOverloadedError detects if an error indicates API overload.
// Overloaded errors are reported to the user the same way as rate limits.
func isOverloadedError(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsOverloadedErr()
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "overloaded")
}

// isTimeoutError detects deadline and client-timeout failures.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "timeout awaiting response")
}

// isNetworkError detects transport failures (refused connections, DNS, 5xx).
func isNetworkError(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "connection reset")
}
