// Package anthropic implements llm.Provider against the Anthropic
// Messages API over a hand-rolled HTTP client, since no Go SDK for
// Anthropic appears anywhere in the example pack.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/llm"
)

// Client is an Anthropic-backed llm.Provider. It separates any leading
// system message from the conversation array, per the Messages API.
type Client struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Client from cfg. APIKey is required.
func NewClient(cfg Config) (*Client, error) {
	const op = "llm.anthropic.NewClient"
	if cfg.APIKey == "" {
		return nil, apperr.Newf(apperr.BadInput, op, "API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{http: client, apiKey: cfg.APIKey, model: model, baseURL: baseURL}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	const op = "llm.anthropic.GenerateWithMessages"
	options := llm.ApplyGenerateOptions(opts)

	var systemMessage string
	filtered := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			systemMessage = m.Content
			continue
		}
		filtered = append(filtered, map[string]string{"role": m.Role, "content": m.Content})
	}

	body := map[string]interface{}{
		"model":       c.model,
		"max_tokens":  options.MaxTokens,
		"temperature": options.Temperature,
		"top_p":       options.TopP,
		"messages":    filtered,
	}
	if systemMessage != "" {
		body["system"] = systemMessage
	}
	if len(options.Stop) > 0 {
		body["stop_sequences"] = options.Stop
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperr.New(apperr.Internal, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.New(apperr.Internal, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.New(apperr.ProviderUnavailable, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", apperr.Newf(apperr.ProviderUnavailable, op, "anthropic request failed with status %d: %s", resp.StatusCode, raw)
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperr.New(apperr.Internal, op, err)
	}
	if len(parsed.Content) == 0 {
		return "", apperr.Newf(apperr.ProviderUnavailable, op, "no content returned from Anthropic API")
	}
	return parsed.Content[0].Text, nil
}

func (c *Client) Close() error { return nil }
