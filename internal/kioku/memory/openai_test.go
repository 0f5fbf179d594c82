package memory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAICompletion_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req cmplRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Messages[1].Content != "transcript here" {
			t.Errorf("unexpected user prompt %q", req.Messages[1].Content)
		}

		json.NewEncoder(w).Encode(cmplResponse{
			Choices: []cmplChoice{{Message: cmplMessage{Role: "assistant", Content: "  a tidy summary \n"}}},
		})
	}))
	defer srv.Close()

	c := NewOpenAICompletion(CompletionConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	})
	got, err := c.Complete(context.Background(), "summarise this", "transcript here")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "a tidy summary" {
		t.Errorf("Complete() = %q, want trimmed content", got)
	}
}

func TestOpenAICompletion_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"context length exceeded","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompletion(CompletionConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "sys", "usr")
	if err == nil || !strings.Contains(err.Error(), "context length exceeded") {
		t.Fatalf("expected API error message surfaced, got %v", err)
	}
}

func TestOpenAICompletion_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompletion(CompletionConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "sys", "usr")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestOpenAICompletion_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewOpenAICompletion(CompletionConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), "sys", "usr"); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestOpenAICompletion_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(cmplResponse{})
	}))
	defer srv.Close()

	c := NewOpenAICompletion(CompletionConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), "sys", "usr"); err == nil {
		t.Fatal("expected an error when no choices are returned")
	}
}
