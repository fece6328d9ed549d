package projection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/graph"
)

type fakeStore struct {
	mu          sync.Mutex
	upserts     []graph.MemoryNode
	links       []string
	failUntil   int32
	callCount   int32
}

func (f *fakeStore) UpsertMemoryNode(ctx context.Context, n graph.MemoryNode) error {
	count := atomic.AddInt32(&f.callCount, 1)
	if count <= atomic.LoadInt32(&f.failUntil) {
		return context.DeadlineExceeded
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, n)
	return nil
}

func (f *fakeStore) LinkMemoryToComponent(ctx context.Context, memoryID, component string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, memoryID+"->"+component)
	return nil
}

func (f *fakeStore) DeleteMemoryNode(ctx context.Context, id string) error { return nil }
func (f *fakeStore) LinkMemories(ctx context.Context, fromID, toID string, kind graph.EdgeKind) error {
	return nil
}
func (f *fakeStore) GetRelatedMemories(ctx context.Context, id string, depth int) ([]graph.RelatedMemory, error) {
	return nil, nil
}
func (f *fakeStore) FindPath(ctx context.Context, fromID, toID string) (*graph.Path, error) {
	return nil, nil
}
func (f *fakeStore) GetMemoryEvolution(ctx context.Context, topic string, since, until *int64) ([]graph.EvolutionEntry, error) {
	return nil, nil
}
func (f *fakeStore) FindSupersededMemories(ctx context.Context, ownerID string) ([]graph.SupersessionPair, error) {
	return nil, nil
}
func (f *fakeStore) GetConversationThread(ctx context.Context, id string) ([]graph.MemoryNode, error) {
	return nil, nil
}
func (f *fakeStore) CreateComponent(ctx context.Context, name, kind string) error { return nil }
func (f *fakeStore) LinkComponentDependency(ctx context.Context, from, to, tag string) error {
	return nil
}
func (f *fakeStore) GetImpactAnalysis(ctx context.Context, name string) (*graph.ImpactAnalysis, error) {
	return nil, nil
}
func (f *fakeStore) CreateDecision(ctx context.Context, text, ownerID string, pros, cons, alternatives []string) (string, error) {
	return "", nil
}
func (f *fakeStore) LinkDecisionJustifies(ctx context.Context, decisionID, memoryID string) error {
	return nil
}
func (f *fakeStore) GetDecisionRationale(ctx context.Context, decisionID string) (*graph.DecisionRationale, error) {
	return nil, nil
}
func (f *fakeStore) DetectMemoryCommunities(ctx context.Context, ownerID string) ([]graph.Community, error) {
	return nil, nil
}
func (f *fakeStore) CalculateTrustScore(ctx context.Context, memoryID string, weights graph.TrustWeights, now int64) (float64, graph.TrustFactors, error) {
	return 0, graph.TrustFactors{}, nil
}
func (f *fakeStore) AnalyzeMemoryIntelligence(ctx context.Context, ownerID string, weights graph.TrustWeights, now int64) (*graph.IntelligenceReport, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPoolProjectsSuccessfully(t *testing.T) {
	store := &fakeStore{}
	pool := NewPool(store, 2, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, silentLogger())

	pool.Schedule(Task{MemoryID: "m1", OwnerID: "u1", Content: "x", Components: []string{"auth"}})
	pool.Close()

	require.Len(t, store.upserts, 1)
	require.Equal(t, "m1", store.upserts[0].ID)
	require.Equal(t, []string{"m1->auth"}, store.links)
}

func TestPoolRetriesThenSucceeds(t *testing.T) {
	store := &fakeStore{failUntil: 2}
	pool := NewPool(store, 1, RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond}, silentLogger())

	pool.Schedule(Task{MemoryID: "m1", OwnerID: "u1", Content: "x"})
	pool.Close()

	require.Len(t, store.upserts, 1)
	require.EqualValues(t, 3, store.callCount)
}

func TestPoolGivesUpAfterMaxAttempts(t *testing.T) {
	store := &fakeStore{failUntil: 100}
	pool := NewPool(store, 1, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, silentLogger())

	pool.Schedule(Task{MemoryID: "m1", OwnerID: "u1", Content: "x"})
	pool.Close()

	require.Empty(t, store.upserts)
	require.EqualValues(t, 3, store.callCount)
}

func TestRetryPolicyDelaysDoubleEachAttempt(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 7, BaseDelay: time.Second}
	require.Equal(t, time.Second, p.delay(0))
	require.Equal(t, 2*time.Second, p.delay(1))
	require.Equal(t, 4*time.Second, p.delay(2))
	require.Equal(t, 32*time.Second, p.delay(5))
}

func TestDefaultRetryPolicyMatchesSpecSchedule(t *testing.T) {
	p := DefaultRetryPolicy()
	require.Equal(t, 7, p.MaxAttempts)

	var total time.Duration
	for i := 0; i < p.MaxAttempts-1; i++ {
		total += p.delay(i)
	}
	require.Equal(t, 63*time.Second, total)
}
