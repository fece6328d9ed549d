package authstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateTokenHasStablePrefix(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, "mcp_"))
	require.Greater(t, len(token), len("mcp_")+32)
}

func TestGenerateTokenIsUnique(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
