package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/upb/voiceme/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// GroqBaseURL is Groq's OpenAI-compatible endpoint
	GroqBaseURL = "https://api.groq.com/openai/v1"

	// GroqDefaultModel is the model the service has always used on Groq
	GroqDefaultModel = "llama-3.3-70b-versatile"

	// maxErrorBody bounds how much of an error response is kept for logs
	maxErrorBody = 512
)

// Config holds settings for an OpenAI-compatible adapter
type Config struct {
	// Name is the registry name, "openai" unless the endpoint is another vendor
	Name string

	APIKey  string
	BaseURL string
	Model   string

	// HTTPClient overrides the default client, mainly for tests
	HTTPClient *http.Client
}

// Adapter implements providers.Adapter for the OpenAI chat-completions protocol
type Adapter struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates an OpenAI-compatible adapter. The API key is required.
func New(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: api key is required", cfg.Name)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Adapter{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}, nil
}

// NewGroq creates an adapter for Groq, which speaks the same protocol
func NewGroq(cfg Config) (*Adapter, error) {
	cfg.Name = "groq"
	if cfg.BaseURL == "" {
		cfg.BaseURL = GroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GroqDefaultModel
	}
	return New(cfg)
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// Model returns the configured model
func (a *Adapter) Model() string {
	return a.model
}

// Complete sends the prompt as a single user message and returns the first choice
func (a *Adapter) Complete(ctx context.Context, prompt string, opts providers.CompletionOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	chatReq := ChatRequest{
		Model: a.model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}
	if opts.MaxTokens > 0 {
		chatReq.MaxTokens = &opts.MaxTokens
	}
	temperature := opts.Temperature
	chatReq.Temperature = &temperature

	reqBody, err := json.Marshal(chatReq)
	if err != nil {
		return "", providers.NewProviderError(a.name, providers.ErrorKindFatal, "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", providers.NewProviderError(a.name, providers.ErrorKindFatal, "failed to create request", 0, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", providers.NewProviderError(a.name, providers.ErrorKindTransient, "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", providers.NewProviderError(a.name, providers.ErrorKindTransient, "failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", providers.NewProviderError(a.name, providers.ErrorKindInvalid, "failed to unmarshal response", httpResp.StatusCode, err)
	}

	if len(chatResp.Choices) == 0 {
		return "", providers.NewProviderError(a.name, providers.ErrorKindInvalid, "response has no choices", httpResp.StatusCode, nil)
	}
	content := chatResp.Choices[0].Message.Content
	if content == "" {
		return "", providers.NewProviderError(a.name, providers.ErrorKindInvalid, "response has empty content", httpResp.StatusCode, nil)
	}

	return content, nil
}

// handleErrorResponse classifies a non-200 response
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	kind := providers.ClassifyStatus(statusCode)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return providers.NewProviderError(a.name, kind, truncate(string(body)), statusCode, nil)
	}

	if isRateIndicator(errResp.Error.Type) || isRateIndicator(errResp.Error.Code) {
		kind = providers.ErrorKindRateLimited
	}

	var cause error
	if errResp.Error.Type != "" {
		cause = errors.New(errResp.Error.Type)
	}

	return providers.NewProviderError(a.name, kind, errResp.Error.Message, statusCode, cause)
}

func isRateIndicator(v string) bool {
	switch v {
	case "rate_limit_exceeded", "insufficient_quota", "tokens", "requests":
		return true
	}
	return false
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

// OpenAI-specific request/response types

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// compile-time check
var _ providers.Adapter = (*Adapter)(nil)
