package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/chunker"
)

func TestIngestForwardsShortTextUnchunked(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var in AddInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Nil(t, in.Metadata)
		json.NewEncoder(w).Encode(AddResult{Results: []MemoryResult{{ID: "mem_1", Event: "ADD"}}})
	}))
	defer srv.Close()

	client := NewMemoryClient(srv.URL, 5*time.Second, time.Second)
	result, err := Ingest(context.Background(), client, chunker.Config{MaxChunkSize: 1000, OverlapSize: 150}, "u1", "short note")
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, result.ChunkCount)
	require.False(t, result.Partial)
	require.Equal(t, []string{"mem_1"}, result.ChunkIDs)
}

func TestIngestSplitsOversizedTextAndSharesRunID(t *testing.T) {
	var seenRunIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in AddInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		seenRunIDs = append(seenRunIDs, in.RunID)
		json.NewEncoder(w).Encode(AddResult{Results: []MemoryResult{{ID: fmt.Sprintf("mem_%d", len(seenRunIDs)), Event: "ADD"}}})
	}))
	defer srv.Close()

	text := strings.Repeat("a", 50) + "\n\n" + strings.Repeat("b", 50)
	client := NewMemoryClient(srv.URL, 5*time.Second, time.Second)
	result, err := Ingest(context.Background(), client, chunker.Config{MaxChunkSize: 60, OverlapSize: 10}, "u1", text)
	require.NoError(t, err)
	require.Greater(t, len(seenRunIDs), 1)
	for _, id := range seenRunIDs {
		require.Equal(t, seenRunIDs[0], id)
	}
	require.Equal(t, result.RunID, seenRunIDs[0])
	require.Len(t, result.ChunkIDs, len(seenRunIDs))
}

func TestIngestReportsPartialSuccessOnChunkFailure(t *testing.T) {
	var call int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
			return
		}
		json.NewEncoder(w).Encode(AddResult{Results: []MemoryResult{{ID: fmt.Sprintf("mem_%d", call), Event: "ADD"}}})
	}))
	defer srv.Close()

	text := strings.Repeat("a", 50) + "\n\n" + strings.Repeat("b", 50) + "\n\n" + strings.Repeat("c", 50)
	client := NewMemoryClient(srv.URL, 5*time.Second, time.Second)
	result, err := Ingest(context.Background(), client, chunker.Config{MaxChunkSize: 60, OverlapSize: 10}, "u1", text)
	require.NoError(t, err)
	require.True(t, result.Partial)
	require.NotEmpty(t, result.Failed)
	require.NotEmpty(t, result.Errors)
	require.NotEmpty(t, result.ChunkIDs)
}
