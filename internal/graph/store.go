package graph

import "context"

// Store is the graph intelligence engine's persistence and analysis
// contract. Every operation is synchronous against the underlying
// store, matching spec.md §4.4's stated invariant that graph
// operations never run in the background themselves — only the
// projection pipeline that calls into a Store does.
type Store interface {
	// UpsertMemoryNode creates or refreshes a memory node's mirrored
	// fields. Called by the projection pipeline once a memory has been
	// durably inserted into the vector store.
	UpsertMemoryNode(ctx context.Context, node MemoryNode) error

	// DeleteMemoryNode removes a memory node and every edge touching
	// it, mirroring a vector-store memory delete.
	DeleteMemoryNode(ctx context.Context, id string) error

	// LinkMemories creates an edge between two memory nodes. When kind
	// is EdgeSupersedes, the target node is subsequently reported as
	// obsolete by every analysis that considers supersession.
	LinkMemories(ctx context.Context, fromID, toID string, kind EdgeKind) error

	// GetRelatedMemories returns every memory node reachable from id
	// within depth edges (undirected), BFS order, deduplicated, origin
	// excluded.
	GetRelatedMemories(ctx context.Context, id string, depth int) ([]RelatedMemory, error)

	// FindPath returns the shortest edge-labelled path between two
	// memories, or a nil Path if none exists.
	FindPath(ctx context.Context, fromID, toID string) (*Path, error)

	// GetMemoryEvolution returns memory nodes whose content contains
	// topic as a substring, or that are reachable by EXTENDS/SUPERSEDES
	// from such a node, ordered by created_at ascending, optionally
	// bounded by [since, until] (both ends inclusive).
	GetMemoryEvolution(ctx context.Context, topic string, since, until *int64) ([]EvolutionEntry, error)

	// FindSupersededMemories returns every memory node owned by
	// ownerID with an incoming SUPERSEDES edge.
	FindSupersededMemories(ctx context.Context, ownerID string) ([]SupersessionPair, error)

	// GetConversationThread walks RESPONDS_TO edges from id back to
	// their root (the memory that responds to nothing further) and
	// returns the chain ordered oldest first, ending at id itself.
	GetConversationThread(ctx context.Context, id string) ([]MemoryNode, error)

	// CreateComponent upserts a component node by name.
	CreateComponent(ctx context.Context, name, kind string) error

	// LinkComponentDependency creates a DEPENDS_ON edge between two
	// components. tag is stored as edge metadata for display only.
	LinkComponentDependency(ctx context.Context, from, to, tag string) error

	// LinkMemoryToComponent creates a DESCRIBES edge from a memory to
	// a component.
	LinkMemoryToComponent(ctx context.Context, memoryID, component string) error

	// GetImpactAnalysis returns, for a component, every component
	// transitively depending on it (reversed DEPENDS_ON) and how many
	// memories describe each.
	GetImpactAnalysis(ctx context.Context, name string) (*ImpactAnalysis, error)

	// CreateDecision creates a decision node and returns its ID.
	CreateDecision(ctx context.Context, text, ownerID string, pros, cons, alternatives []string) (string, error)

	// LinkDecisionJustifies creates a JUSTIFIES edge from a decision to
	// a memory.
	LinkDecisionJustifies(ctx context.Context, decisionID, memoryID string) error

	// GetDecisionRationale returns a decision plus every memory that
	// justifies it.
	GetDecisionRationale(ctx context.Context, decisionID string) (*DecisionRationale, error)

	// DetectMemoryCommunities partitions ownerID's memory subgraph into
	// clusters via label propagation, deterministic on node ID ties.
	DetectMemoryCommunities(ctx context.Context, ownerID string) ([]Community, error)

	// CalculateTrustScore computes a memory's trust score in [0, 1]
	// per weights, plus the raw factors that produced it.
	CalculateTrustScore(ctx context.Context, memoryID string, weights TrustWeights, now int64) (float64, TrustFactors, error)

	// AnalyzeMemoryIntelligence produces the full intelligence report
	// for an owner's memory subgraph.
	AnalyzeMemoryIntelligence(ctx context.Context, ownerID string, weights TrustWeights, now int64) (*IntelligenceReport, error)

	Close() error
}
