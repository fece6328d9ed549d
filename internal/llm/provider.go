// Package llm defines the provider interface every language-model
// backend implements, plus the shared generation options they accept.
package llm

import "context"

// Provider is satisfied by every LLM backend (ollama, openai, anthropic).
type Provider interface {
	// Generate produces text from a single prompt.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages produces text from a full conversation,
	// including an optional leading system message.
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	Close() error
}

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions controls a single generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
	Stop        []string
}

// GenerateOption configures a GenerateOptions value.
type GenerateOption func(*GenerateOptions)

func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = temp }
}

func WithMaxTokens(max int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = max }
}

func WithTopP(topP float64) GenerateOption {
	return func(o *GenerateOptions) { o.TopP = topP }
}

func WithStop(stop ...string) GenerateOption {
	return func(o *GenerateOptions) { o.Stop = stop }
}

// ApplyGenerateOptions builds a GenerateOptions from defaults plus opts.
// Extraction and decision-making calls (internal/extractor) want
// deterministic, low-temperature output, so the default here is lower
// than a general-purpose chat default.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	o := &GenerateOptions{
		Temperature: 0.2,
		MaxTokens:   1000,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
