package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	vec  []float64
	dims int
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vec, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeProvider) Dimensions() int { return f.dims }
func (f *fakeProvider) Close() error    { return nil }

func TestTruncatingSlicesVector(t *testing.T) {
	inner := &fakeProvider{vec: []float64{1, 2, 3, 4, 5}, dims: 5}
	trunc := NewTruncating(inner, 3)

	vec, err := trunc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, vec)
	require.Equal(t, 3, trunc.Dimensions())
}

func TestTruncatingBatch(t *testing.T) {
	inner := &fakeProvider{vec: []float64{1, 2, 3, 4}, dims: 4}
	trunc := NewTruncating(inner, 2)

	vecs, err := trunc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	require.Equal(t, []float64{1, 2}, vecs[0])
}

func TestTruncatingErrorsWhenNativeVectorTooShort(t *testing.T) {
	inner := &fakeProvider{vec: []float64{1, 2}, dims: 2}
	trunc := NewTruncating(inner, 5)

	_, err := trunc.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := New(FactoryConfig{Provider: "bogus"})
	require.Error(t, err)
}
