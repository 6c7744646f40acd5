package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// CompletionCallOptions configures a chat completion call.
type CompletionCallOptions struct {
	Temperature float64       // Default: 0.2
	MaxTokens   int           // Default: 1200
	Timeout     time.Duration // Default: 120s
	JSONMode    bool          // Request JSON response format
}

// DefaultCompletionCallOptions returns sensible defaults for plan generation.
func DefaultCompletionCallOptions() CompletionCallOptions {
	return CompletionCallOptions{
		Temperature: 0.2,
		MaxTokens:   1200,
		Timeout:     120 * time.Second,
		JSONMode:    false,
	}
}

// CompletionResult holds the result of a completion call including token usage.
type CompletionResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
	FinishReason string // "stop", "length", "content_filter"
	Model        string
}

// IsTruncated returns true if the response was cut off at max_tokens.
func (r *CompletionResult) IsTruncated() bool {
	return r.FinishReason == "length"
}

// CompletionClient makes chat completion calls against an
// OpenAI-compatible API.
type CompletionClient struct {
	apiKey     string
	baseURL    string
	model      string
	logger     *slog.Logger
	httpClient *http.Client
}

// NewCompletionClient creates a completion client for the given endpoint.
func NewCompletionClient(apiKey, baseURL, model string, logger *slog.Logger) *CompletionClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &CompletionClient{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Model returns the configured model name.
func (c *CompletionClient) Model() string {
	return c.model
}

// Complete sends a system+user message pair and returns the assistant
// content with token usage.
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionCallOptions) (*CompletionResult, error) {
	if c.apiKey == "" {
		return nil, &ConfigurationError{Missing: "OPENAI_API_KEY"}
	}

	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 1200
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}

	reqBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}
	if opts.JSONMode {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := c.baseURL + "/chat/completions"

	if c.logger != nil {
		c.logger.Debug("making completion request",
			"model", c.model,
			"api_url", apiURL,
			"prompt_length", len(userPrompt),
			"temperature", opts.Temperature,
			"max_tokens", opts.MaxTokens,
		)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("completion request failed", "model", c.model, "error", err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if c.logger != nil {
			c.logger.Error("completion API error",
				"model", c.model,
				"status_code", resp.StatusCode,
				"response", string(body),
			)
		}
		return nil, &UpstreamError{Service: "openai", StatusCode: resp.StatusCode, Body: string(body)}
	}

	result, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}
	result.Model = c.model

	if result.IsTruncated() && c.logger != nil {
		c.logger.Warn("completion truncated",
			"model", c.model,
			"output_tokens", result.OutputTokens,
			"max_tokens", opts.MaxTokens,
		)
	}

	return result, nil
}

// parseResponse extracts the content and token usage from an
// OpenAI-compatible chat completion response.
func (c *CompletionClient) parseResponse(body []byte) (*CompletionResult, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, &EmptyCompletionError{Model: c.model}
	}

	return &CompletionResult{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}
