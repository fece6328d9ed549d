// Package openai wraps the go-openai chat completion API as an
// llm.Provider.
package openai

import (
	"context"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

// Client is an OpenAI-backed llm.Provider.
type Client struct {
	client *openai.Client
	model  string
}

// Config configures a Client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient builds a Client from cfg, defaulting Model to "gpt-4".
func NewClient(cfg Config) (*Client, error) {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4"
	}
	return &Client{client: openai.NewClientWithConfig(conf), model: model}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	const op = "llm.openai.GenerateWithMessages"
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	})
	if err != nil {
		return "", apperr.New(apperr.ProviderUnavailable, op, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Newf(apperr.ProviderUnavailable, op, "no choices returned from OpenAI API")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Close() error { return nil }
