// Package gemini implements the Google Gemini generateContent adapter.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/upb/voiceme/services/providers"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	providerName = "gemini"
	maxErrorBody = 512
)

// Config holds settings for the Gemini adapter.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Adapter implements providers.Adapter for Google Gemini.
type Adapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a Gemini adapter. The API key is required.
func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: api key is required", providerName)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Adapter{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}, nil
}

// Name returns the provider identifier.
func (g *Adapter) Name() string {
	return providerName
}

// Model returns the configured model.
func (g *Adapter) Model() string {
	return g.model
}

// Complete sends the prompt as one user turn and returns the first candidate's text.
func (g *Adapter) Complete(ctx context.Context, prompt string, opts providers.CompletionOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	genReq := GenerateRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
	}
	temperature := opts.Temperature
	genReq.GenerationConfig.Temperature = &temperature
	if opts.MaxTokens > 0 {
		maxTokens := opts.MaxTokens
		genReq.GenerationConfig.MaxOutputTokens = &maxTokens
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return "", providers.NewProviderError(providerName, providers.ErrorKindFatal, "failed to marshal request", 0, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", providers.NewProviderError(providerName, providers.ErrorKindFatal, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// never in the query string
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", providers.NewProviderError(providerName, providers.ErrorKindTransient, "HTTP request failed", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", providers.NewProviderError(providerName, providers.ErrorKindTransient, "failed to read response", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyError(resp.StatusCode, respBody)
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", providers.NewProviderError(providerName, providers.ErrorKindInvalid, "failed to unmarshal response", resp.StatusCode, err)
	}

	if genResp.PromptFeedback != nil && genResp.PromptFeedback.BlockReason != "" {
		return "", providers.NewProviderError(providerName, providers.ErrorKindInvalid,
			"prompt blocked: "+genResp.PromptFeedback.BlockReason, resp.StatusCode, nil)
	}

	text := genResp.Text()
	if text == "" {
		return "", providers.NewProviderError(providerName, providers.ErrorKindInvalid, "response has no text", resp.StatusCode, nil)
	}
	return text, nil
}

// classifyError maps a non-200 response using the status code first and the
// structured google.rpc status second.
func classifyError(statusCode int, body []byte) error {
	kind := providers.ClassifyStatus(statusCode)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return providers.NewProviderError(providerName, kind, msg, statusCode, nil)
	}

	switch errResp.Error.Status {
	case "RESOURCE_EXHAUSTED":
		kind = providers.ErrorKindRateLimited
	case "UNAVAILABLE", "DEADLINE_EXCEEDED", "INTERNAL":
		kind = providers.ErrorKindTransient
	case "UNAUTHENTICATED", "PERMISSION_DENIED", "NOT_FOUND":
		kind = providers.ErrorKindFatal
	}
	for _, detail := range errResp.Error.Details {
		if detail.Reason == "API_KEY_INVALID" {
			kind = providers.ErrorKindFatal
		}
	}

	return providers.NewProviderError(providerName, kind, errResp.Error.Message, statusCode, nil)
}

// GenerateRequest represents a Gemini generateContent request.
type GenerateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Content represents a content block.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part represents a part of a content block.
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfig contains generation parameters.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// GenerateResponse represents a Gemini generateContent response.
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// Text concatenates the parts of the first candidate.
func (r GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Candidate represents a single generated candidate.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// PromptFeedback reports whether the prompt itself was blocked.
type PromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// ErrorResponse represents an error response from the Gemini API.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail follows the google.rpc.Status shape.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details []struct {
		Reason string `json:"reason"`
	} `json:"details"`
}

var _ providers.Adapter = (*Adapter)(nil)
