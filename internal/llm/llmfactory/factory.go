// Package llmfactory constructs a concrete llm.Provider from a
// FactoryConfig. It lives outside package llm (which the provider
// backends import for the Provider interface and shared types) to
// avoid an import cycle: llm -> {anthropic,ollama,openai} -> llm.
package llmfactory

import (
	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/llm"
	"github.com/snorlak1/mem0-server-mcp/internal/llm/anthropic"
	"github.com/snorlak1/mem0-server-mcp/internal/llm/ollama"
	"github.com/snorlak1/mem0-server-mcp/internal/llm/openai"
)

// FactoryConfig carries the fields internal/config.LLM needs to
// construct a concrete Provider, decoupled from the config package to
// avoid an import cycle.
type FactoryConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New constructs the Provider named by cfg.Provider ("ollama", "openai",
// or "anthropic"), matching spec.md's LLM_PROVIDER enumeration.
func New(cfg FactoryConfig) (llm.Provider, error) {
	const op = "llm.New"
	switch cfg.Provider {
	case "ollama":
		return ollama.NewClient(ollama.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "openai", "":
		return openai.NewClient(openai.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	default:
		return nil, apperr.Newf(apperr.BadInput, op, "unknown LLM provider %q", cfg.Provider)
	}
}
