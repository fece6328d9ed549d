// Package embedder defines the provider interface every text-embedding
// backend implements.
package embedder

import "context"

// Provider converts text into fixed-dimensionality vectors.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
	Close() error
}
