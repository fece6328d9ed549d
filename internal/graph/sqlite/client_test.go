package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snorlak1/mem0-server-mcp/internal/graph"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{DBPath: filepath.Join(t.TempDir(), "graph.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func upsert(t *testing.T, c *Client, id, owner, content, topic string, age time.Duration) {
	t.Helper()
	require.NoError(t, c.UpsertMemoryNode(context.Background(), graph.MemoryNode{
		ID: id, OwnerID: owner, Content: content, Topic: topic, CreatedAt: time.Now().Add(-age),
	}))
}

func TestLinkAndGetRelatedMemoriesBFS(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "m1", "u1", "root", "", 0)
	upsert(t, c, "m2", "u1", "one hop", "", 0)
	upsert(t, c, "m3", "u1", "two hops", "", 0)
	upsert(t, c, "m4", "u1", "three hops, excluded at depth 2", "", 0)

	require.NoError(t, c.LinkMemories(ctx, "m1", "m2", graph.EdgeRelatesTo))
	require.NoError(t, c.LinkMemories(ctx, "m2", "m3", graph.EdgeExtends))
	require.NoError(t, c.LinkMemories(ctx, "m3", "m4", graph.EdgeRelatesTo))

	related, err := c.GetRelatedMemories(ctx, "m1", 2)
	require.NoError(t, err)

	ids := map[string]int{}
	for _, r := range related {
		ids[r.Memory.ID] = r.Distance
	}
	require.Contains(t, ids, "m2")
	require.Contains(t, ids, "m3")
	require.NotContains(t, ids, "m4")
	require.NotContains(t, ids, "m1")
	require.Equal(t, 1, ids["m2"])
	require.Equal(t, 2, ids["m3"])
}

func TestFindPathShortest(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		upsert(t, c, id, "u1", id, "", 0)
	}
	require.NoError(t, c.LinkMemories(ctx, "a", "b", graph.EdgeRelatesTo))
	require.NoError(t, c.LinkMemories(ctx, "b", "c", graph.EdgeRelatesTo))
	require.NoError(t, c.LinkMemories(ctx, "a", "d", graph.EdgeRelatesTo))
	require.NoError(t, c.LinkMemories(ctx, "d", "c", graph.EdgeRelatesTo))

	path, err := c.FindPath(ctx, "a", "c")
	require.NoError(t, err)
	require.NotNil(t, path)
	require.Len(t, path.MemoryIDs, 3)
	require.Equal(t, "a", path.MemoryIDs[0])
	require.Equal(t, "c", path.MemoryIDs[2])

	none, err := c.FindPath(ctx, "a", "nonexistent")
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestLinkMemoriesSupersedesFlagsObsolete(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "old", "u1", "old fact", "", 0)
	upsert(t, c, "new", "u1", "new fact", "", 0)
	require.NoError(t, c.LinkMemories(ctx, "new", "old", graph.EdgeSupersedes))

	pairs, err := c.FindSupersededMemories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.Equal(t, "old", pairs[0].Obsolete.ID)
	require.Equal(t, "new", pairs[0].Current.ID)
}

func TestGetMemoryEvolutionIncludesLinkedNodes(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "m1", "u1", "prefers class components for react", "", 48*time.Hour)
	upsert(t, c, "m2", "u1", "prefers hooks now", "", 0)
	require.NoError(t, c.LinkMemories(ctx, "m2", "m1", graph.EdgeSupersedes))

	entries, err := c.GetMemoryEvolution(ctx, "react", nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "m1", entries[0].Memory.ID)
}

func TestComponentDependencyImpactAnalysis(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.CreateComponent(ctx, "auth", "Service"))
	require.NoError(t, c.CreateComponent(ctx, "api", "Service"))
	require.NoError(t, c.CreateComponent(ctx, "web", "Service"))
	require.NoError(t, c.LinkComponentDependency(ctx, "api", "auth", ""))
	require.NoError(t, c.LinkComponentDependency(ctx, "web", "api", ""))

	upsert(t, c, "m1", "u1", "auth uses jwt", "", 0)
	require.NoError(t, c.LinkMemoryToComponent(ctx, "m1", "auth"))

	impact, err := c.GetImpactAnalysis(ctx, "auth")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"api", "web"}, impact.DependentComponents)
	require.Equal(t, 1, impact.MemoryCounts["auth"])
}

func TestCreateDecisionAndRationale(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "m1", "u1", "chose postgres for durability", "", 0)

	id, err := c.CreateDecision(ctx, "Use Postgres", "u1", []string{"durable"}, []string{"ops overhead"}, []string{"sqlite"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.LinkDecisionJustifies(ctx, id, "m1"))

	rationale, err := c.GetDecisionRationale(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Use Postgres", rationale.Decision.Text)
	require.Equal(t, []string{"durable"}, rationale.Decision.Pros)
	require.Len(t, rationale.Justifies, 1)
	require.Equal(t, "m1", rationale.Justifies[0].ID)
}

func TestDetectMemoryCommunitiesGroupsConnectedNodes(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for _, id := range []string{"a1", "a2", "b1", "b2", "iso"} {
		upsert(t, c, id, "u1", id, "", 0)
	}
	require.NoError(t, c.LinkMemories(ctx, "a1", "a2", graph.EdgeRelatesTo))
	require.NoError(t, c.LinkMemories(ctx, "b1", "b2", graph.EdgeRelatesTo))

	communities, err := c.DetectMemoryCommunities(ctx, "u1")
	require.NoError(t, err)

	memberOf := map[string]string{}
	for _, com := range communities {
		for _, m := range com.Members {
			memberOf[m.ID] = com.Label
		}
	}
	require.Equal(t, memberOf["a1"], memberOf["a2"])
	require.Equal(t, memberOf["b1"], memberOf["b2"])
	require.NotEqual(t, memberOf["a1"], memberOf["b1"])
}

func TestDetectMemoryCommunitiesIsDeterministic(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		upsert(t, c, id, "u1", id, "", 0)
	}
	require.NoError(t, c.LinkMemories(ctx, "a", "b", graph.EdgeRelatesTo))
	require.NoError(t, c.LinkMemories(ctx, "c", "d", graph.EdgeRelatesTo))

	first, err := c.DetectMemoryCommunities(ctx, "u1")
	require.NoError(t, err)
	second, err := c.DetectMemoryCommunities(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCalculateTrustScoreIsDeterministicAndBounded(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "m1", "u1", "cited fact", "", 200*24*time.Hour)
	upsert(t, c, "m2", "u1", "citing fact", "", 0)
	upsert(t, c, "m3", "u1", "conflicting fact", "", 0)
	require.NoError(t, c.LinkMemories(ctx, "m2", "m1", graph.EdgeExtends))
	require.NoError(t, c.LinkMemories(ctx, "m1", "m3", graph.EdgeConflictsWith))

	weights := graph.TrustWeights{CitationWeight: 0.3, RecencyWeight: 0.5, ConflictWeight: 0.4, HalfLifeDays: 90}
	now := time.Now().Unix()

	score1, factors1, err := c.CalculateTrustScore(ctx, "m1", weights, now)
	require.NoError(t, err)
	require.GreaterOrEqual(t, score1, 0.0)
	require.LessOrEqual(t, score1, 1.0)
	require.Equal(t, 1, factors1.InboundCitations)

	score2, _, err := c.CalculateTrustScore(ctx, "m1", weights, now)
	require.NoError(t, err)
	require.Equal(t, score1, score2)
}

func TestCalculateTrustScoreUnknownMemory(t *testing.T) {
	c := newTestClient(t)
	_, _, err := c.CalculateTrustScore(context.Background(), "nope", graph.TrustWeights{HalfLifeDays: 90}, time.Now().Unix())
	require.Error(t, err)
}

func TestAnalyzeMemoryIntelligenceHealthScoreBounds(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "m1", "u1", "a", "topicA", 0)
	upsert(t, c, "m2", "u1", "b", "topicA", 0)
	upsert(t, c, "m3", "u1", "isolated", "", 0)
	require.NoError(t, c.LinkMemories(ctx, "m1", "m2", graph.EdgeRelatesTo))

	report, err := c.AnalyzeMemoryIntelligence(ctx, "u1", graph.TrustWeights{HalfLifeDays: 90}, time.Now().Unix())
	require.NoError(t, err)
	require.Equal(t, 3, report.TotalMemories)
	require.Equal(t, 1, report.IsolatedMemories)
	require.GreaterOrEqual(t, report.KnowledgeHealthScore, 0.0)
	require.LessOrEqual(t, report.KnowledgeHealthScore, 10.0)
	require.NotEmpty(t, report.Recommendations)
}

func TestAnalyzeMemoryIntelligenceEmptyOwner(t *testing.T) {
	c := newTestClient(t)
	report, err := c.AnalyzeMemoryIntelligence(context.Background(), "nobody", graph.TrustWeights{HalfLifeDays: 90}, time.Now().Unix())
	require.NoError(t, err)
	require.Equal(t, 0, report.TotalMemories)
}

func TestDeleteMemoryNodeRemovesEdges(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "m1", "u1", "a", "", 0)
	upsert(t, c, "m2", "u1", "b", "", 0)
	require.NoError(t, c.LinkMemories(ctx, "m1", "m2", graph.EdgeRelatesTo))
	require.NoError(t, c.DeleteMemoryNode(ctx, "m1"))

	related, err := c.GetRelatedMemories(ctx, "m2", 2)
	require.NoError(t, err)
	require.Empty(t, related)
}

func TestGetConversationThreadWalksToRoot(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "a", "u1", "first", "", 3*time.Hour)
	upsert(t, c, "b", "u1", "second", "", 2*time.Hour)
	upsert(t, c, "c", "u1", "third", "", time.Hour)
	require.NoError(t, c.LinkMemories(ctx, "b", "a", graph.EdgeRespondsTo))
	require.NoError(t, c.LinkMemories(ctx, "c", "b", graph.EdgeRespondsTo))

	thread, err := c.GetConversationThread(ctx, "c")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{thread[0].ID, thread[1].ID, thread[2].ID})
}

func TestGetConversationThreadSingleMemoryIsItsOwnThread(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	upsert(t, c, "solo", "u1", "alone", "", 0)

	thread, err := c.GetConversationThread(ctx, "solo")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	require.Equal(t, "solo", thread[0].ID)
}

func TestGetConversationThreadUnknownMemory(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	thread, err := c.GetConversationThread(ctx, "nonexistent")
	require.NoError(t, err)
	require.Nil(t, thread)
}

func TestLinkMemoriesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	upsert(t, c, "m1", "u1", "a", "", 0)
	upsert(t, c, "m2", "u1", "b", "", 0)
	require.NoError(t, c.LinkMemories(ctx, "m1", "m2", graph.EdgeRelatesTo))
	require.NoError(t, c.LinkMemories(ctx, "m1", "m2", graph.EdgeRelatesTo))

	related, err := c.GetRelatedMemories(ctx, "m1", 1)
	require.NoError(t, err)
	require.Len(t, related, 1)
}
