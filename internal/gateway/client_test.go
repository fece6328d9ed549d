package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
)

func TestMemoryClientAddReturnsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/memories", r.URL.Path)
		var in AddInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "u1", in.UserID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AddResult{Results: []MemoryResult{{ID: "mem_1", Memory: "x", Event: "ADD"}}})
	}))
	defer srv.Close()

	client := NewMemoryClient(srv.URL, 5*time.Second, time.Second)
	out, err := client.Add(context.Background(), AddInput{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	require.Equal(t, "mem_1", out.Results[0].ID)
}

func TestMemoryClientTranslatesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "not your memory"})
	}))
	defer srv.Close()

	client := NewMemoryClient(srv.URL, 5*time.Second, time.Second)
	err := client.Delete(context.Background(), "1", "intruder")
	require.Error(t, err)
	require.Equal(t, apperr.AccessDenied, apperr.KindOf(err))
	require.Contains(t, err.Error(), "not your memory")
}

func TestMemoryClientGetAllSendsUserIDQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "u1", r.URL.Query().Get("user_id"))
		json.NewEncoder(w).Encode([]map[string]interface{}{{"id": 1}})
	}))
	defer srv.Close()

	client := NewMemoryClient(srv.URL, 5*time.Second, time.Second)
	out, err := client.GetAll(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, out, 1)
}
