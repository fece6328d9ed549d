package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/chunker"
	"github.com/snorlak1/mem0-server-mcp/internal/config"
)

func callToolRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func withCaller(userID string) context.Context {
	return context.WithValue(context.Background(), callerKey{}, Caller{UserID: userID})
}

func TestHandleAddCodingPreferenceRejectsEmptyText(t *testing.T) {
	deps := Deps{Client: NewMemoryClient("http://unused", time.Second, time.Second)}
	result, err := handleAddCodingPreference(deps)(withCaller("alice"), callToolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestHandleAddCodingPreferenceDispatchesToMemoryService(t *testing.T) {
	var received AddInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(AddResult{Results: []MemoryResult{{ID: "mem_1", Event: "ADD"}}})
	}))
	defer srv.Close()

	deps := Deps{
		Client:      NewMemoryClient(srv.URL, 5*time.Second, time.Second),
		ProjectMode: config.ProjectIDGlobal,
		GlobalID:    "shared-project",
		ChunkCfg:    chunker.Config{MaxChunkSize: 1000, OverlapSize: 150},
	}
	result, err := handleAddCodingPreference(deps)(withCaller("alice"), callToolRequest(map[string]interface{}{"text": "likes tabs"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "shared-project", received.UserID)
}

func TestHandleLinkMemoriesRequiresAllFields(t *testing.T) {
	deps := Deps{Client: NewMemoryClient("http://unused", time.Second, time.Second)}
	result, err := handleLinkMemories(deps)(withCaller("alice"), callToolRequest(map[string]interface{}{"a": "1"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestHandleLinkMemoriesDispatchesToGraphEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/graph/memories/link", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"linked": true})
	}))
	defer srv.Close()

	deps := Deps{Client: NewMemoryClient(srv.URL, 5*time.Second, time.Second)}
	result, err := handleLinkMemories(deps)(withCaller("alice"), callToolRequest(map[string]interface{}{
		"a": "1", "b": "2", "relation": "relates_to",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
}

func TestHandleCreateDecisionForwardsJustifyingMemoryIDs(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]string{"id": "dec_1"})
	}))
	defer srv.Close()

	deps := Deps{Client: NewMemoryClient(srv.URL, 5*time.Second, time.Second)}
	result, err := handleCreateDecision(deps)(withCaller("alice"), callToolRequest(map[string]interface{}{
		"text": "Use Postgres", "justified_by": []interface{}{"mem_1", "mem_2"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, []interface{}{"mem_1", "mem_2"}, received["justified_by"])
	require.Equal(t, "alice", received["owner_id"])
}

func TestHandleSearchCodingPreferencesDefaultsLimit(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in SearchInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		query = in.Query
		require.Equal(t, 10, in.Limit)
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}})
	}))
	defer srv.Close()

	deps := Deps{
		Client:      NewMemoryClient(srv.URL, 5*time.Second, time.Second),
		ProjectMode: config.ProjectIDGlobal,
		GlobalID:    "shared-project",
	}
	_, err := handleSearchCodingPreferences(deps)(withCaller("alice"), callToolRequest(map[string]interface{}{"query": "tabs"}))
	require.NoError(t, err)
	require.Equal(t, "tabs", query)
}
