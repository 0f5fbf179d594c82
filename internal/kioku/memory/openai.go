package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultCompletionBase    = "https://api.openai.com/v1"
	defaultCompletionModel   = "gpt-4o-mini"
	defaultCompletionTimeout = 30 * time.Second
)

// ErrRateLimited is returned by a CompletionClient when the backend
// reports a rate-limiting condition (HTTP 429).
var ErrRateLimited = errors.New("memory: completion backend rate limited")

// CompletionClient is the summarisation backend boundary: one opaque,
// possibly-failing call.
type CompletionClient interface {
	// Complete submits a system instruction and a user prompt and returns
	// the model's text response.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompletionConfig configures the OpenAI-compatible completion client.
type CompletionConfig struct {
	// APIKey is the bearer token for authentication.
	APIKey string

	// BaseURL overrides the API endpoint. Useful for local models or any
	// other OpenAI-compatible endpoint. Defaults to https://api.openai.com/v1.
	BaseURL string

	// Model is the chat model to use. Defaults to gpt-4o-mini.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration
}

// OpenAICompletion implements CompletionClient against an OpenAI-compatible
// chat completions API. Safe for concurrent use.
type OpenAICompletion struct {
	cfg    CompletionConfig
	client *http.Client
}

// NewOpenAICompletion creates a completion client with defaults applied.
func NewOpenAICompletion(cfg CompletionConfig) *OpenAICompletion {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCompletionBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultCompletionModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultCompletionTimeout
	}
	return &OpenAICompletion{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal OpenAI wire types ---

type cmplMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cmplRequest struct {
	Model     string        `json:"model"`
	Messages  []cmplMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type cmplResponse struct {
	Choices []cmplChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type cmplChoice struct {
	Message cmplMessage `json:"message"`
}

// Complete submits the prompts as a two-message chat request and returns
// the trimmed first choice.
func (c *OpenAICompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body := cmplRequest{
		Model: c.cfg.Model,
		Messages: []cmplMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: 512,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("completion: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return "", fmt.Errorf("completion: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("completion: read response body: %w", err)
	}

	var cmplResp cmplResponse
	if err := json.Unmarshal(respBody, &cmplResp); err != nil {
		return "", fmt.Errorf("completion: decode response: %w", err)
	}

	if cmplResp.Error != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, cmplResp.Error.Message)
		}
		return "", fmt.Errorf("completion: API error (%s): %s", cmplResp.Error.Type, cmplResp.Error.Message)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("completion: unexpected HTTP status %d", resp.StatusCode)
	}

	if len(cmplResp.Choices) == 0 {
		return "", fmt.Errorf("completion: no choices returned")
	}

	return strings.TrimSpace(cmplResp.Choices[0].Message.Content), nil
}

// Compile-time interface satisfaction check.
var _ CompletionClient = (*OpenAICompletion)(nil)
