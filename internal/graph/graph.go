// Package graph implements the relationship/intelligence graph over
// memories, components, and decisions: linking, traversal, impact
// analysis, community detection, and trust/health scoring.
//
// There is no graph database in the dependency pack this is grounded
// on (the reference implementation targets Neo4j, which appears
// nowhere in the corpus). Following the same strategy
// internal/vectorstore/sqlite and internal/vectorstore/mysql use for
// their engines' missing native vector support, the store here keeps
// nodes and edges in SQLite tables and performs traversal, label
// propagation, and scoring in Go rather than in Cypher.
package graph

import "time"

// NodeKind distinguishes the three node types the graph carries.
type NodeKind string

const (
	NodeMemory    NodeKind = "Memory"
	NodeComponent NodeKind = "Component"
	NodeDecision  NodeKind = "Decision"
)

// EdgeKind enumerates every relationship type the graph supports.
type EdgeKind string

const (
	EdgeRelatesTo    EdgeKind = "RELATES_TO"
	EdgeDependsOn    EdgeKind = "DEPENDS_ON"
	EdgeSupersedes   EdgeKind = "SUPERSEDES"
	EdgeRespondsTo   EdgeKind = "RESPONDS_TO"
	EdgeExtends      EdgeKind = "EXTENDS"
	EdgeConflictsWith EdgeKind = "CONFLICTS_WITH"
	EdgeDescribes    EdgeKind = "DESCRIBES"
	EdgeJustifies    EdgeKind = "JUSTIFIES"
)

// MemoryNode mirrors a vector-store memory's identity in the graph,
// plus the fields the intelligence analyses need without a round trip
// to the vector store.
type MemoryNode struct {
	ID        string
	OwnerID   string
	Content   string
	Topic     string
	Obsolete  bool
	CreatedAt time.Time
}

// Component is a named unit of the system the memories describe.
type Component struct {
	Name      string
	Kind      string
	CreatedAt time.Time
}

// Decision carries the typed pros/cons/alternatives columns spec.md's
// data model calls for, in place of the reference implementation's
// separate Argument nodes joined by BASED_ON/CONSIDERED/CHOSEN_OVER
// edges — the whole rationale is one row here.
type Decision struct {
	ID           string
	Text         string
	OwnerID      string
	Pros         []string
	Cons         []string
	Alternatives []string
	CreatedAt    time.Time
}

// Edge is a directed, typed relationship between two nodes, addressed
// by node ID regardless of kind.
type Edge struct {
	FromID    string
	ToID      string
	Kind      EdgeKind
	CreatedAt time.Time
}

// RelatedMemory is one hop result from GetRelatedMemories.
type RelatedMemory struct {
	Memory           MemoryNode
	RelationshipPath []EdgeKind
	Distance         int
}

// Path is the result of FindPath.
type Path struct {
	MemoryIDs    []string
	Relationships []EdgeKind
}

// EvolutionEntry is one row of GetMemoryEvolution's ordered result.
type EvolutionEntry struct {
	Memory     MemoryNode
	Superseded *MemoryNode
}

// SupersessionPair links an obsolete memory to the one that replaced
// it, as returned by FindSupersededMemories.
type SupersessionPair struct {
	Obsolete MemoryNode
	Current  MemoryNode
}

// ImpactAnalysis is the result of GetImpactAnalysis for one component.
type ImpactAnalysis struct {
	Component        string
	DependentComponents []string
	MemoryCounts     map[string]int
}

// DecisionRationale is the result of GetDecisionRationale.
type DecisionRationale struct {
	Decision Decision
	Justifies []MemoryNode
}

// Community is one label-propagation cluster.
type Community struct {
	Label   string
	Members []MemoryNode
}

// IntelligenceReport is the result of AnalyzeMemoryIntelligence.
type IntelligenceReport struct {
	TotalMemories        int
	AvgConnections       float64
	IsolatedMemories     int
	ObsoleteMemories     int
	KnowledgeHealthScore float64
	ConflictingTopics    []TopicConflict
	Clusters             map[string]int
	CentralMemories      []CentralMemory
	Recommendations      []string
}

// TopicConflict counts CONFLICTS_WITH edges grouped by topic.
type TopicConflict struct {
	Topic string
	Count int
}

// CentralMemory is one entry of an intelligence report's
// most-connected-memories list.
type CentralMemory struct {
	Memory      MemoryNode
	Connections int
}

// TrustFactors is calculate_trust_score's breakdown, returned
// alongside the score so callers and tests can verify the formula
// without recomputing it.
type TrustFactors struct {
	InboundCitations int
	RecencyDecay     float64
	ConflictPenalty  float64
}

// TrustWeights configures calculate_trust_score's weighted sum. The
// weights are used as given; a non-positive HalfLifeDays is replaced
// by 90.
type TrustWeights struct {
	CitationWeight float64
	RecencyWeight  float64
	ConflictWeight float64
	HalfLifeDays   float64
}
