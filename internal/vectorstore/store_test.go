package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore/vsfactory"
)

func TestChooseIndexTypeBoundary(t *testing.T) {
	require.Equal(t, vectorstore.IndexHNSW, vectorstore.ChooseIndexType(1536))
	require.Equal(t, vectorstore.IndexHNSW, vectorstore.ChooseIndexType(2000))
	require.Equal(t, vectorstore.IndexIVFFlat, vectorstore.ChooseIndexType(2001))
	require.Equal(t, vectorstore.IndexIVFFlat, vectorstore.ChooseIndexType(4096))
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := vsfactory.New(vsfactory.FactoryConfig{Provider: "bogus"})
	require.Error(t, err)
}
