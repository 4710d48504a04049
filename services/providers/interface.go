package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Adapter represents a single upstream text-generation provider used in
// single-shot completion mode
type Adapter interface {
	// Name returns the provider name (e.g., "gemini", "openai", "groq")
	Name() string

	// Complete sends one prompt upstream and returns the raw, untrimmed answer.
	// Failures are always returned as *ProviderError.
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// CompletionOptions holds the per-call generation settings shared by every adapter
type CompletionOptions struct {
	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls randomness (0.0 to 2.0)
	Temperature float64

	// Timeout bounds a single upstream call
	Timeout time.Duration
}

// DefaultCompletionOptions returns the settings the service has always used
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		MaxTokens:   200,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// ErrorKind classifies a provider failure for the retry policy
type ErrorKind string

const (
	// ErrorKindTransient covers network failures, timeouts and 5xx responses
	ErrorKindTransient ErrorKind = "transient"

	// ErrorKindRateLimited covers 429s and quota exhaustion
	ErrorKindRateLimited ErrorKind = "rate_limited"

	// ErrorKindInvalid covers empty or malformed answers
	ErrorKindInvalid ErrorKind = "invalid"

	// ErrorKindFatal covers misconfiguration (bad credentials, unknown model)
	ErrorKindFatal ErrorKind = "fatal"
)

// Retryable reports whether another attempt against the same provider may help
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindTransient || k == ErrorKindRateLimited
}

// String implements fmt.Stringer
func (k ErrorKind) String() string {
	return string(k)
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Kind drives the retry decision
	Kind ErrorKind

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, kind ErrorKind, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// KindOf returns the tag carried by err.
// Errors that did not come from an adapter are normalized: deadlines are
// transient, anything else is fatal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTransient
	}
	return ErrorKindFatal
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy.
// Adapters refine the result with provider-specific body indicators.
func ClassifyStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 429:
		return ErrorKindRateLimited
	case statusCode >= 500:
		return ErrorKindTransient
	case statusCode == 401, statusCode == 403, statusCode == 404:
		return ErrorKindFatal
	default:
		return ErrorKindInvalid
	}
}
