package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearMemoryEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, "openai", cfg.Embedder.Provider)
	require.Equal(t, 1536, cfg.Embedder.Dimensions)
	require.Equal(t, "sqlite", cfg.VectorStore.Provider)
	require.Equal(t, ProjectIDAuto, cfg.ProjectIDMode)
	require.Equal(t, 1000, cfg.Chunker.MaxChunkSize)
	require.Equal(t, 150, cfg.Chunker.OverlapSize)
	require.Equal(t, 7, cfg.Projection.MaxRetries)
	require.NoError(t, cfg.Validate())
}

func TestLoadOllamaProviderDefaults(t *testing.T) {
	clearMemoryEnv(t)
	t.Setenv("LLM_PROVIDER", "ollama")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ollama", cfg.LLM.Provider)
	require.Equal(t, "llama3.1:70b", cfg.LLM.Model)
	require.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
}

func TestValidateRejectsUnknownProjectIDMode(t *testing.T) {
	clearMemoryEnv(t)
	t.Setenv("PROJECT_ID_MODE", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroDimensions(t *testing.T) {
	clearMemoryEnv(t)
	t.Setenv("EMBEDDING_DIMS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}

func clearMemoryEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LLM_PROVIDER", "LLM_API_KEY", "LLM_MODEL",
		"EMBEDDING_PROVIDER", "EMBEDDING_API_KEY", "EMBEDDING_MODEL", "EMBEDDING_DIMS",
		"VECTOR_STORE_PROVIDER", "PROJECT_ID_MODE", "CHUNK_MAX_SIZE", "CHUNK_OVERLAP_SIZE",
		"GRAPH_SYNC_MAX_RETRIES", "GRAPH_SYNC_WORKER_COUNT",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}
