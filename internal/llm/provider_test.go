package llm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/llm"
	"github.com/snorlak1/mem0-server-mcp/internal/llm/llmfactory"
)

func TestApplyGenerateOptionsDefaults(t *testing.T) {
	opts := llm.ApplyGenerateOptions(nil)
	require.Equal(t, 0.2, opts.Temperature)
	require.Equal(t, 1000, opts.MaxTokens)
	require.Equal(t, 1.0, opts.TopP)
}

func TestApplyGenerateOptionsOverride(t *testing.T) {
	opts := llm.ApplyGenerateOptions([]llm.GenerateOption{
		llm.WithTemperature(0.9),
		llm.WithMaxTokens(50),
		llm.WithTopP(0.5),
		llm.WithStop("###"),
	})
	require.Equal(t, 0.9, opts.Temperature)
	require.Equal(t, 50, opts.MaxTokens)
	require.Equal(t, 0.5, opts.TopP)
	require.Equal(t, []string{"###"}, opts.Stop)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := llmfactory.New(llmfactory.FactoryConfig{Provider: "bogus"})
	require.Error(t, err)
}

func TestNewDefaultsToOpenAI(t *testing.T) {
	p, err := llmfactory.New(llmfactory.FactoryConfig{APIKey: "test-key"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
