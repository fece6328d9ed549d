// Package qwen implements embedder.Provider against Alibaba Cloud
// DashScope's text embedding API over a hand-rolled HTTP client, since
// no DashScope Go SDK appears anywhere in the example pack.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
)

// Client is a DashScope-backed embedder.Provider.
type Client struct {
	http       *http.Client
	apiKey     string
	model      string
	baseURL    string
	dimensions int
}

// Config configures a Client. APIKey is required.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
	HTTPClient *http.Client
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	const op = "embedder.qwen.NewClient"
	if cfg.APIKey == "" {
		return nil, apperr.Newf(apperr.BadInput, op, "API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/api/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-v4"
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = 1536
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: client, apiKey: cfg.APIKey, model: model, baseURL: baseURL, dimensions: dims}, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	const op = "embedder.qwen.EmbedBatch"

	body := map[string]interface{}{
		"model": c.model,
		"input": map[string]interface{}{"texts": texts},
		"text_type": "document",
	}
	if c.dimensions > 0 {
		body["parameters"] = map[string]interface{}{"dimension": c.dimensions}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}

	url := fmt.Sprintf("%s/services/embeddings/text-embedding/text-embedding", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, apperr.Newf(apperr.ProviderUnavailable, op, "dashscope request failed with status %d: %s", resp.StatusCode, raw)
	}

	var parsed struct {
		Output struct {
			Embeddings []struct {
				Embedding []float64 `json:"embedding"`
			} `json:"embeddings"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	if len(parsed.Output.Embeddings) != len(texts) {
		return nil, apperr.Newf(apperr.ProviderUnavailable, op, "unexpected result count from DashScope API (got %d, expected %d)", len(parsed.Output.Embeddings), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, e := range parsed.Output.Embeddings {
		out[i] = e.Embedding
	}
	return out, nil
}

func (c *Client) Dimensions() int { return c.dimensions }
func (c *Client) Close() error    { return nil }
