package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "memories.db")
	c, err := NewClient(Config{DBPath: dbPath, CollectionName: "memories"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestInsertGetRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	rec := &vectorstore.Record{
		ID: 1, UserID: "u1", Content: "hello world", Embedding: []float64{1, 0, 0},
	}
	require.NoError(t, c.Insert(ctx, rec))

	got, err := c.Get(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, "hello world", got.Content)
	require.Equal(t, []float64{1, 0, 0}, got.Embedding)
}

func TestGetEnforcesOwnershipAsNotFound(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx, &vectorstore.Record{ID: 1, UserID: "owner", Content: "x", Embedding: []float64{1}}))

	_, err := c.Get(ctx, 1, &vectorstore.GetOptions{UserID: "someone-else"})
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestSearchOrdersBySimilarityDescending(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx, &vectorstore.Record{ID: 1, UserID: "u1", Content: "a", Embedding: []float64{1, 0}}))
	require.NoError(t, c.Insert(ctx, &vectorstore.Record{ID: 2, UserID: "u1", Content: "b", Embedding: []float64{0, 1}}))
	require.NoError(t, c.Insert(ctx, &vectorstore.Record{ID: 3, UserID: "u1", Content: "c", Embedding: []float64{0.9, 0.1}}))

	results, err := c.Search(ctx, []float64{1, 0}, &vectorstore.SearchOptions{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, int64(1), results[0].ID)
	require.GreaterOrEqual(t, results[0].Score, results[1].Score)
	require.GreaterOrEqual(t, results[1].Score, results[2].Score)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx, &vectorstore.Record{ID: 1, UserID: "owner", Content: "x", Embedding: []float64{1}}))

	err := c.Delete(ctx, 1, &vectorstore.DeleteOptions{UserID: "someone-else"})
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))

	require.NoError(t, c.Delete(ctx, 1, &vectorstore.DeleteOptions{UserID: "owner"}))
	_, err = c.Get(ctx, 1, nil)
	require.Error(t, err)
}

func TestGetAllPagination(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, c.Insert(ctx, &vectorstore.Record{ID: i, UserID: "u1", Content: "x", Embedding: []float64{1}}))
	}

	page, err := c.GetAll(ctx, &vectorstore.GetAllOptions{UserID: "u1", Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, page, 2)
}
