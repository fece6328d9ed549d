package embedder

import (
	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/embedder/openai"
	"github.com/snorlak1/mem0-server-mcp/internal/embedder/qwen"
)

// FactoryConfig carries the fields internal/config.Embedder needs to
// construct a concrete Provider, decoupled from the config package to
// avoid an import cycle.
type FactoryConfig struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	Dimensions   int
	TruncateFrom int
}

// New constructs the Provider named by cfg.Provider ("openai" or
// "qwen"), matching spec.md's EMBEDDING_PROVIDER enumeration. When
// TruncateFrom is nonzero and differs from Dimensions the provider is
// wrapped so every vector it returns is sliced down to Dimensions.
func New(cfg FactoryConfig) (Provider, error) {
	const op = "embedder.New"

	nativeDims := cfg.Dimensions
	if cfg.TruncateFrom > 0 {
		nativeDims = cfg.TruncateFrom
	}

	var provider Provider
	var err error
	switch cfg.Provider {
	case "qwen":
		provider, err = qwen.NewClient(qwen.Config{
			APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Dimensions: nativeDims,
		})
	case "openai", "":
		provider, err = openai.NewClient(openai.Config{
			APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Dimensions: nativeDims,
		})
	default:
		return nil, apperr.Newf(apperr.BadInput, op, "unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.TruncateFrom > 0 && cfg.TruncateFrom != cfg.Dimensions {
		return NewTruncating(provider, cfg.Dimensions), nil
	}
	return provider, nil
}
