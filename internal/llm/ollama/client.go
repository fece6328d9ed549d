// Package ollama implements llm.Provider against a local or remote
// Ollama chat endpoint over a hand-rolled HTTP client.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/llm"
)

// Client is an Ollama-backed llm.Provider.
type Client struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// Config configures a Client. APIKey is optional; local Ollama
// deployments generally do not require one.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.1:70b"
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
	const op = "llm.ollama.GenerateWithMessages"
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]map[string]string, len(messages))
	for i, m := range messages {
		chatMessages[i] = map[string]string{"role": m.Role, "content": m.Content}
	}

	body := map[string]interface{}{
		"model":    c.model,
		"messages": chatMessages,
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": options.Temperature,
			"num_predict": options.MaxTokens,
			"top_p":       options.TopP,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperr.New(apperr.Internal, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.New(apperr.Internal, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.New(apperr.ProviderUnavailable, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", apperr.Newf(apperr.ProviderUnavailable, op, "ollama request failed with status %d: %s", resp.StatusCode, raw)
	}

	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperr.New(apperr.Internal, op, err)
	}
	if parsed.Message.Content == "" {
		return "", apperr.Newf(apperr.ProviderUnavailable, op, "empty response from Ollama API")
	}
	return parsed.Message.Content, nil
}

func (c *Client) Close() error { return nil }
