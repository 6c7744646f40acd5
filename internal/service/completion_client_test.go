package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompletionClientComplete(t *testing.T) {
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"siteSelection":[]}`}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 150, "completion_tokens": 42},
		})
	}))
	defer server.Close()

	client := NewCompletionClient("sk-test", server.URL, "gpt-4o", nil)
	result, err := client.Complete(context.Background(), "system", "user prompt", DefaultCompletionCallOptions())
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if result.Content != `{"siteSelection":[]}` {
		t.Errorf("Content = %q", result.Content)
	}
	if result.InputTokens != 150 || result.OutputTokens != 42 {
		t.Errorf("tokens = %d/%d", result.InputTokens, result.OutputTokens)
	}
	if result.IsTruncated() {
		t.Error("IsTruncated() = true for stop finish")
	}

	if gotReq["model"] != "gpt-4o" {
		t.Errorf("request model = %v", gotReq["model"])
	}
	if temp, _ := gotReq["temperature"].(float64); temp != 0.2 {
		t.Errorf("request temperature = %v", gotReq["temperature"])
	}
	if maxTokens, _ := gotReq["max_tokens"].(float64); maxTokens != 1200 {
		t.Errorf("request max_tokens = %v", gotReq["max_tokens"])
	}
	msgs, _ := gotReq["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("request has %d messages, want 2", len(msgs))
	}
}

func TestCompletionClientUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewCompletionClient("sk-test", server.URL, "gpt-4o", nil)
	_, err := client.Complete(context.Background(), "sys", "user", DefaultCompletionCallOptions())
	if !IsUpstreamError(err) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) && upErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d", upErr.StatusCode)
	}
}

func TestCompletionClientEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewCompletionClient("sk-test", server.URL, "gpt-4o", nil)
	_, err := client.Complete(context.Background(), "sys", "user", DefaultCompletionCallOptions())
	if !IsEmptyCompletion(err) {
		t.Fatalf("error = %v, want EmptyCompletionError", err)
	}
}

func TestCompletionClientMissingKey(t *testing.T) {
	client := NewCompletionClient("", "http://localhost:1", "gpt-4o", nil)
	_, err := client.Complete(context.Background(), "sys", "user", DefaultCompletionCallOptions())
	if !IsConfigurationError(err) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
}
