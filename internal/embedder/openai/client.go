// Package openai wraps the go-openai embeddings API as an
// embedder.Provider.
package openai

import (
	"context"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	openai "github.com/sashabaranov/go-openai"
)

// Client is an OpenAI-backed embedder.Provider.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

// NewClient builds a Client from cfg, defaulting Dimensions to 1536.
func NewClient(cfg Config) (*Client, error) {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = 1536
	}
	return &Client{
		client:     openai.NewClientWithConfig(conf),
		model:      openai.AdaEmbeddingV2,
		dimensions: dims,
	}, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	const op = "embedder.openai.EmbedBatch"
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperr.Newf(apperr.ProviderUnavailable, op, "unexpected result count from OpenAI API (got %d, expected %d)", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}

func (c *Client) Dimensions() int { return c.dimensions }
func (c *Client) Close() error    { return nil }
