package embedder

import (
	"context"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
)

// Truncating wraps a Provider whose native output dimensionality
// exceeds the configured store dimensionality, slicing every returned
// vector down to Dimensions. This mirrors Matryoshka-representation
// truncation, matching how a Qwen embedding served at a larger native
// width (e.g. 2560) is projected down to 1536 before insertion.
type Truncating struct {
	inner Provider
	to    int
}

// NewTruncating wraps inner, truncating every embedding it returns to
// the first `to` dimensions.
func NewTruncating(inner Provider, to int) *Truncating {
	return &Truncating{inner: inner, to: to}
}

func (t *Truncating) Embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := t.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return t.truncate(vec)
}

func (t *Truncating) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vecs, err := t.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(vecs))
	for i, v := range vecs {
		trunc, err := t.truncate(v)
		if err != nil {
			return nil, err
		}
		out[i] = trunc
	}
	return out, nil
}

func (t *Truncating) Dimensions() int { return t.to }
func (t *Truncating) Close() error    { return t.inner.Close() }

func (t *Truncating) truncate(vec []float64) ([]float64, error) {
	const op = "embedder.Truncating.truncate"
	if len(vec) < t.to {
		return nil, apperr.Newf(apperr.ProviderUnavailable, op, "provider returned %d dims, cannot truncate to %d", len(vec), t.to)
	}
	return vec[:t.to], nil
}
