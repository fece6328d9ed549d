// Package sqlite implements the graph store on top of SQLite: nodes
// and edges are plain rows, and traversal, label propagation, and
// scoring are computed in Go against an in-memory adjacency snapshot
// rather than in the query language, since SQLite has no recursive
// graph-path support worth relying on for variable-depth BFS.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bwmarrin/snowflake"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/graph"
)

// communityEdgeKinds mirrors the reference implementation's
// detect_memory_communities relationship filter (RELATES_TO | EXTENDS
// | RESPONDS_TO); SUPERSEDES and CONFLICTS_WITH describe evolution and
// disagreement, not topical closeness, so they don't feed clustering.
var communityEdgeKinds = map[graph.EdgeKind]bool{
	graph.EdgeRelatesTo:  true,
	graph.EdgeExtends:    true,
	graph.EdgeRespondsTo: true,
}

// citationEdgeKinds is calculate_trust_score's inbound-citation set.
var citationEdgeKinds = map[graph.EdgeKind]bool{
	graph.EdgeRespondsTo: true,
	graph.EdgeExtends:    true,
}

type Client struct {
	db   *sql.DB
	node *snowflake.Node
}

type Config struct {
	DBPath string
}

func NewClient(cfg Config) (*Client, error) {
	const op = "graph/sqlite.NewClient"

	if cfg.DBPath != "" && cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}

	c := &Client{db: db, node: node}
	if err := c.initTables(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	return c, nil
}

func (c *Client) initTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_nodes (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			content TEXT NOT NULL,
			topic TEXT NOT NULL DEFAULT '',
			obsolete INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS memory_nodes_owner_idx ON memory_nodes(owner_id)`,
		`CREATE TABLE IF NOT EXISTS components (
			name TEXT PRIMARY KEY,
			kind TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			pros TEXT NOT NULL DEFAULT '[]',
			cons TEXT NOT NULL DEFAULT '[]',
			alternatives TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			tag TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			UNIQUE(from_id, to_id, kind)
		)`,
		`CREATE INDEX IF NOT EXISTS edges_from_idx ON edges(from_id)`,
		`CREATE INDEX IF NOT EXISTS edges_to_idx ON edges(to_id)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Close() error { return c.db.Close() }

func (c *Client) UpsertMemoryNode(ctx context.Context, n graph.MemoryNode) error {
	const op = "graph/sqlite.UpsertMemoryNode"
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO memory_nodes (id, owner_id, content, topic, obsolete, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, content = excluded.content, topic = excluded.topic
	`, n.ID, n.OwnerID, n.Content, n.Topic, n.CreatedAt.Unix())
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) DeleteMemoryNode(ctx context.Context, id string) error {
	const op = "graph/sqlite.DeleteMemoryNode"
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_nodes WHERE id = ?`, id); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

// mergeEdge is idempotent: repeat calls with the same (from, to, kind)
// leave a single edge in place, matching the reference implementation's
// Cypher MERGE semantics.
func (c *Client) mergeEdge(ctx context.Context, from, to string, kind graph.EdgeKind, tag string, createdAt int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO edges (from_id, to_id, kind, tag, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, kind) DO UPDATE SET tag = excluded.tag
	`, from, to, string(kind), tag, createdAt)
	return err
}

func (c *Client) LinkMemories(ctx context.Context, fromID, toID string, kind graph.EdgeKind) error {
	const op = "graph/sqlite.LinkMemories"
	if err := c.mergeEdge(ctx, fromID, toID, kind, "", nowUnix()); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	if kind == graph.EdgeSupersedes {
		if _, err := c.db.ExecContext(ctx, `UPDATE memory_nodes SET obsolete = 1 WHERE id = ?`, toID); err != nil {
			return apperr.New(apperr.StoreUnavailable, op, err)
		}
	}
	return nil
}

func (c *Client) loadEdges(ctx context.Context) ([]dbEdge, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT from_id, to_id, kind, tag FROM edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dbEdge
	for rows.Next() {
		var e dbEdge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Kind, &e.Tag); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *Client) getMemoryNode(ctx context.Context, id string) (*graph.MemoryNode, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, owner_id, content, topic, obsolete, created_at FROM memory_nodes WHERE id = ?`, id)
	return scanMemoryNode(row)
}

func scanMemoryNode(row *sql.Row) (*graph.MemoryNode, error) {
	var n graph.MemoryNode
	var obsolete int
	var createdAt int64
	if err := row.Scan(&n.ID, &n.OwnerID, &n.Content, &n.Topic, &obsolete, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	n.Obsolete = obsolete != 0
	n.CreatedAt = unixToTime(createdAt)
	return &n, nil
}

func (c *Client) GetRelatedMemories(ctx context.Context, id string, depth int) ([]graph.RelatedMemory, error) {
	const op = "graph/sqlite.GetRelatedMemories"
	if depth <= 0 {
		depth = 2
	}

	edges, err := c.loadEdges(ctx)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	adj := buildAdjacency(edges)
	reached := bfs(adj, id, depth)

	var ids []string
	for nodeID := range reached {
		if nodeID == id {
			continue
		}
		ids = append(ids, nodeID)
	}
	sort.Strings(ids)

	var out []graph.RelatedMemory
	for _, nodeID := range ids {
		node, err := c.getMemoryNode(ctx, nodeID)
		if err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		if node == nil {
			continue
		}
		state := reached[nodeID]
		out = append(out, graph.RelatedMemory{Memory: *node, RelationshipPath: state.path, Distance: state.distance})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func (c *Client) FindPath(ctx context.Context, fromID, toID string) (*graph.Path, error) {
	const op = "graph/sqlite.FindPath"
	edges, err := c.loadEdges(ctx)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	adj := buildAdjacency(edges)
	nodes, kinds := shortestPath(adj, fromID, toID)
	if nodes == nil {
		return nil, nil
	}
	return &graph.Path{MemoryIDs: nodes, Relationships: kinds}, nil
}

func (c *Client) GetMemoryEvolution(ctx context.Context, topic string, since, until *int64) ([]graph.EvolutionEntry, error) {
	const op = "graph/sqlite.GetMemoryEvolution"

	query := `SELECT id, owner_id, content, topic, obsolete, created_at FROM memory_nodes WHERE content LIKE ?`
	args := []interface{}{"%" + topic + "%"}
	if since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *since)
	}
	if until != nil {
		query += ` AND created_at <= ?`
		args = append(args, *until)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	matched := map[string]graph.MemoryNode{}
	for rows.Next() {
		var n graph.MemoryNode
		var obsolete int
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Content, &n.Topic, &obsolete, &createdAt); err != nil {
			rows.Close()
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		n.Obsolete = obsolete != 0
		n.CreatedAt = unixToTime(createdAt)
		matched[n.ID] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	edges, err := c.loadEdges(ctx)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	resultSet := map[string]graph.MemoryNode{}
	for id, n := range matched {
		resultSet[id] = n
	}
	for _, e := range edges {
		if _, ok := matched[e.FromID]; !ok {
			continue
		}
		if e.Kind != string(graph.EdgeExtends) && e.Kind != string(graph.EdgeSupersedes) {
			continue
		}
		if _, already := resultSet[e.ToID]; already {
			continue
		}
		target, err := c.getMemoryNode(ctx, e.ToID)
		if err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		if target != nil {
			resultSet[e.ToID] = *target
		}
	}

	supersededBy := map[string]string{}
	for _, e := range edges {
		if e.Kind == string(graph.EdgeSupersedes) {
			supersededBy[e.FromID] = e.ToID
		}
	}

	var out []graph.EvolutionEntry
	for id, n := range resultSet {
		entry := graph.EvolutionEntry{Memory: n}
		if oldID, ok := supersededBy[id]; ok {
			if old, err := c.getMemoryNode(ctx, oldID); err == nil && old != nil {
				entry.Superseded = old
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Memory.CreatedAt.Equal(out[j].Memory.CreatedAt) {
			return out[i].Memory.ID < out[j].Memory.ID
		}
		return out[i].Memory.CreatedAt.Before(out[j].Memory.CreatedAt)
	})
	return out, nil
}

func (c *Client) FindSupersededMemories(ctx context.Context, ownerID string) ([]graph.SupersessionPair, error) {
	const op = "graph/sqlite.FindSupersededMemories"
	rows, err := c.db.QueryContext(ctx, `
		SELECT e.from_id, e.to_id
		FROM edges e
		JOIN memory_nodes old ON old.id = e.to_id
		WHERE e.kind = ? AND old.owner_id = ?
	`, string(graph.EdgeSupersedes), ownerID)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer rows.Close()

	var pairs []graph.SupersessionPair
	for rows.Next() {
		var currentID, obsoleteID string
		if err := rows.Scan(&currentID, &obsoleteID); err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		current, err := c.getMemoryNode(ctx, currentID)
		if err != nil || current == nil {
			continue
		}
		obsolete, err := c.getMemoryNode(ctx, obsoleteID)
		if err != nil || obsolete == nil {
			continue
		}
		pairs = append(pairs, graph.SupersessionPair{Obsolete: *obsolete, Current: *current})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Current.CreatedAt.After(pairs[j].Current.CreatedAt) })
	return pairs, nil
}

// GetConversationThread walks RESPONDS_TO edges from id (from_id ==
// id, since a reply's from_id points at what it responds to) up to
// the root, which has no outgoing RESPONDS_TO edge of its own. A
// visited set guards against a malformed cycle.
func (c *Client) GetConversationThread(ctx context.Context, id string) ([]graph.MemoryNode, error) {
	const op = "graph/sqlite.GetConversationThread"

	origin, err := c.getMemoryNode(ctx, id)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if origin == nil {
		return nil, nil
	}

	chain := []graph.MemoryNode{*origin}
	visited := map[string]bool{id: true}
	cur := id
	for {
		var parentID string
		row := c.db.QueryRowContext(ctx, `SELECT to_id FROM edges WHERE from_id = ? AND kind = ? LIMIT 1`, cur, string(graph.EdgeRespondsTo))
		if err := row.Scan(&parentID); err != nil {
			if err == sql.ErrNoRows {
				break
			}
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		if visited[parentID] {
			break
		}
		parent, err := c.getMemoryNode(ctx, parentID)
		if err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		if parent == nil {
			break
		}
		chain = append(chain, *parent)
		visited[parentID] = true
		cur = parentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (c *Client) CreateComponent(ctx context.Context, name, kind string) error {
	const op = "graph/sqlite.CreateComponent"
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO components (name, kind, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind
	`, name, kind, nowUnix())
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) LinkComponentDependency(ctx context.Context, from, to, tag string) error {
	const op = "graph/sqlite.LinkComponentDependency"
	if err := c.mergeEdge(ctx, componentNodeID(from), componentNodeID(to), graph.EdgeDependsOn, tag, nowUnix()); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) LinkMemoryToComponent(ctx context.Context, memoryID, component string) error {
	const op = "graph/sqlite.LinkMemoryToComponent"
	if err := c.mergeEdge(ctx, memoryID, componentNodeID(component), graph.EdgeDescribes, "", nowUnix()); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) GetImpactAnalysis(ctx context.Context, name string) (*graph.ImpactAnalysis, error) {
	const op = "graph/sqlite.GetImpactAnalysis"

	edges, err := c.loadEdges(ctx)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	// reverse[to] = list of components with a DEPENDS_ON edge pointing to `to`
	reverse := map[string][]string{}
	for _, e := range edges {
		if e.Kind != string(graph.EdgeDependsOn) {
			continue
		}
		reverse[e.ToID] = append(reverse[e.ToID], e.FromID)
	}

	start := componentNodeID(name)
	visited := map[string]bool{start: true}
	queue := []string{start}
	var dependents []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		deps := append([]string(nil), reverse[cur]...)
		sort.Strings(deps)
		for _, dep := range deps {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			dependents = append(dependents, dep)
			queue = append(queue, dep)
		}
	}

	memoryCounts := map[string]int{}
	for _, e := range edges {
		if e.Kind != string(graph.EdgeDescribes) {
			continue
		}
		if visited[e.ToID] {
			memoryCounts[strings.TrimPrefix(e.ToID, componentPrefix)]++
		}
	}

	result := &graph.ImpactAnalysis{Component: name, MemoryCounts: memoryCounts}
	for _, d := range dependents {
		result.DependentComponents = append(result.DependentComponents, strings.TrimPrefix(d, componentPrefix))
	}
	sort.Strings(result.DependentComponents)
	return result, nil
}

func (c *Client) CreateDecision(ctx context.Context, text, ownerID string, pros, cons, alternatives []string) (string, error) {
	const op = "graph/sqlite.CreateDecision"

	id := fmt.Sprintf("dec_%d", c.node.Generate().Int64())
	prosJSON, _ := json.Marshal(pros)
	consJSON, _ := json.Marshal(cons)
	altJSON, _ := json.Marshal(alternatives)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO decisions (id, text, owner_id, pros, cons, alternatives, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, text, ownerID, string(prosJSON), string(consJSON), string(altJSON), nowUnix())
	if err != nil {
		return "", apperr.New(apperr.StoreUnavailable, op, err)
	}
	return id, nil
}

func (c *Client) LinkDecisionJustifies(ctx context.Context, decisionID, memoryID string) error {
	const op = "graph/sqlite.LinkDecisionJustifies"
	if err := c.mergeEdge(ctx, decisionID, memoryID, graph.EdgeJustifies, "", nowUnix()); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func (c *Client) GetDecisionRationale(ctx context.Context, decisionID string) (*graph.DecisionRationale, error) {
	const op = "graph/sqlite.GetDecisionRationale"

	row := c.db.QueryRowContext(ctx, `SELECT id, text, owner_id, pros, cons, alternatives, created_at FROM decisions WHERE id = ?`, decisionID)
	var d graph.Decision
	var prosJSON, consJSON, altJSON string
	var createdAt int64
	if err := row.Scan(&d.ID, &d.Text, &d.OwnerID, &prosJSON, &consJSON, &altJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.NotFound, op, "decision %q not found", decisionID)
		}
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	_ = json.Unmarshal([]byte(prosJSON), &d.Pros)
	_ = json.Unmarshal([]byte(consJSON), &d.Cons)
	_ = json.Unmarshal([]byte(altJSON), &d.Alternatives)
	d.CreatedAt = unixToTime(createdAt)

	rows, err := c.db.QueryContext(ctx, `SELECT to_id FROM edges WHERE from_id = ? AND kind = ?`, decisionID, string(graph.EdgeJustifies))
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	defer rows.Close()

	var memoryIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		memoryIDs = append(memoryIDs, id)
	}

	var memories []graph.MemoryNode
	for _, id := range memoryIDs {
		n, err := c.getMemoryNode(ctx, id)
		if err != nil {
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		if n != nil {
			memories = append(memories, *n)
		}
	}
	return &graph.DecisionRationale{Decision: d, Justifies: memories}, nil
}

func (c *Client) DetectMemoryCommunities(ctx context.Context, ownerID string) ([]graph.Community, error) {
	const op = "graph/sqlite.DetectMemoryCommunities"

	rows, err := c.db.QueryContext(ctx, `SELECT id, owner_id, content, topic, obsolete, created_at FROM memory_nodes WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	nodesByID := map[string]graph.MemoryNode{}
	var ids []string
	for rows.Next() {
		var n graph.MemoryNode
		var obsolete int
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Content, &n.Topic, &obsolete, &createdAt); err != nil {
			rows.Close()
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		n.Obsolete = obsolete != 0
		n.CreatedAt = unixToTime(createdAt)
		nodesByID[n.ID] = n
		ids = append(ids, n.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	edges, err := c.loadEdges(ctx)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	adj := buildAdjacency(edges)

	labels := labelPropagate(ids, adj, communityEdgeKinds, 20)

	byLabel := map[string][]graph.MemoryNode{}
	for _, id := range ids {
		byLabel[labels[id]] = append(byLabel[labels[id]], nodesByID[id])
	}

	var labelKeys []string
	for l := range byLabel {
		labelKeys = append(labelKeys, l)
	}
	sort.Strings(labelKeys)

	var out []graph.Community
	for _, l := range labelKeys {
		members := byLabel[l]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		out = append(out, graph.Community{Label: l, Members: members})
	}
	return out, nil
}

func (c *Client) CalculateTrustScore(ctx context.Context, memoryID string, weights graph.TrustWeights, now int64) (float64, graph.TrustFactors, error) {
	const op = "graph/sqlite.CalculateTrustScore"

	node, err := c.getMemoryNode(ctx, memoryID)
	if err != nil {
		return 0, graph.TrustFactors{}, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if node == nil {
		return 0, graph.TrustFactors{}, apperr.Newf(apperr.NotFound, op, "memory %q not found in graph", memoryID)
	}

	edges, err := c.loadEdges(ctx)
	if err != nil {
		return 0, graph.TrustFactors{}, apperr.New(apperr.StoreUnavailable, op, err)
	}

	citations := 0
	conflicts := 0
	for _, e := range edges {
		if e.ToID == memoryID && citationEdgeKinds[graph.EdgeKind(e.Kind)] {
			citations++
		}
		if e.Kind == string(graph.EdgeConflictsWith) && (e.FromID == memoryID || e.ToID == memoryID) {
			conflicts++
		}
	}

	halfLife := weights.HalfLifeDays
	if halfLife <= 0 {
		halfLife = 90
	}
	ageDays := float64(now-node.CreatedAt.Unix()) / 86400
	if ageDays < 0 {
		ageDays = 0
	}
	recencyDecay := math.Pow(0.5, ageDays/halfLife)

	raw := weights.CitationWeight*float64(citations) + weights.RecencyWeight*recencyDecay - weights.ConflictWeight*float64(conflicts)
	score := math.Max(0, math.Min(1, raw))

	factors := graph.TrustFactors{
		InboundCitations: citations,
		RecencyDecay:      recencyDecay,
		ConflictPenalty:   weights.ConflictWeight * float64(conflicts),
	}
	return score, factors, nil
}

// AnalyzeMemoryIntelligence's knowledge_health_score is a weighted sum
// of four ratios, each contributing its full weight when the news is
// as good as possible and none when it's as bad as possible:
//
//	health = 10 * (0.4*(1-isolationRatio) + 0.3*(1-obsoleteRatio) +
//	               0.2*(1-conflictRatio) + 0.1*avgClusteringCoefficient)
//
// avgClusteringCoefficient is the mean local clustering coefficient
// (fraction of a node's neighbor pairs that are themselves connected)
// over every node with at least two neighbors; nodes with fewer than
// two neighbors don't contribute a term (an isolated or single-edge
// node is neither well- nor poorly-clustered).
func (c *Client) AnalyzeMemoryIntelligence(ctx context.Context, ownerID string, weights graph.TrustWeights, now int64) (*graph.IntelligenceReport, error) {
	const op = "graph/sqlite.AnalyzeMemoryIntelligence"

	rows, err := c.db.QueryContext(ctx, `SELECT id, owner_id, content, topic, obsolete, created_at FROM memory_nodes WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	nodesByID := map[string]graph.MemoryNode{}
	var ids []string
	for rows.Next() {
		var n graph.MemoryNode
		var obsolete int
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Content, &n.Topic, &obsolete, &createdAt); err != nil {
			rows.Close()
			return nil, apperr.New(apperr.StoreUnavailable, op, err)
		}
		n.Obsolete = obsolete != 0
		n.CreatedAt = unixToTime(createdAt)
		nodesByID[n.ID] = n
		ids = append(ids, n.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	total := len(ids)
	report := &graph.IntelligenceReport{TotalMemories: total, Clusters: map[string]int{}}
	if total == 0 {
		report.Recommendations = []string{"No memories yet."}
		return report, nil
	}

	edges, err := c.loadEdges(ctx)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	adj := buildAdjacency(edges)
	inSet := make(map[string]bool, total)
	for _, id := range ids {
		inSet[id] = true
	}

	connections := map[string]int{}
	isolated := 0
	totalConnections := 0
	for _, id := range ids {
		n := 0
		for _, e := range adj[id] {
			if inSet[e.neighbor] {
				n++
			}
		}
		connections[id] = n
		totalConnections += n
		if n == 0 {
			isolated++
		}
	}
	avgConnections := float64(totalConnections) / float64(total)

	obsolete := 0
	for _, id := range ids {
		if nodesByID[id].Obsolete {
			obsolete++
		}
	}

	conflictsByTopic := map[string]int{}
	conflictedMemories := map[string]bool{}
	for _, e := range edges {
		if e.Kind != string(graph.EdgeConflictsWith) {
			continue
		}
		if !inSet[e.FromID] && !inSet[e.ToID] {
			continue
		}
		if inSet[e.FromID] {
			topic := nodesByID[e.FromID].Topic
			if topic == "" {
				topic = "uncategorized"
			}
			conflictsByTopic[topic]++
			conflictedMemories[e.FromID] = true
		}
		if inSet[e.ToID] {
			conflictedMemories[e.ToID] = true
		}
	}
	var topics []string
	for t := range conflictsByTopic {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		if conflictsByTopic[topics[i]] == conflictsByTopic[topics[j]] {
			return topics[i] < topics[j]
		}
		return conflictsByTopic[topics[i]] > conflictsByTopic[topics[j]]
	})
	for i, t := range topics {
		if i >= 5 {
			break
		}
		report.ConflictingTopics = append(report.ConflictingTopics, graph.TopicConflict{Topic: t, Count: conflictsByTopic[t]})
	}

	communities, err := c.DetectMemoryCommunities(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, com := range communities {
		report.Clusters[com.Label] = len(com.Members)
	}

	sortedIDs := append([]string(nil), ids...)
	sort.Slice(sortedIDs, func(i, j int) bool {
		if connections[sortedIDs[i]] == connections[sortedIDs[j]] {
			return sortedIDs[i] < sortedIDs[j]
		}
		return connections[sortedIDs[i]] > connections[sortedIDs[j]]
	})
	for i, id := range sortedIDs {
		if i >= 10 || connections[id] == 0 {
			break
		}
		report.CentralMemories = append(report.CentralMemories, graph.CentralMemory{Memory: nodesByID[id], Connections: connections[id]})
	}

	avgClustering := localClusteringAverage(ids, adj, inSet)

	isolationRatio := float64(isolated) / float64(total)
	obsoleteRatio := float64(obsolete) / float64(total)
	conflictRatio := float64(len(conflictedMemories)) / float64(total)

	health := 10 * (0.4*(1-isolationRatio) + 0.3*(1-obsoleteRatio) + 0.2*(1-conflictRatio) + 0.1*avgClustering)
	health = math.Max(0, math.Min(10, health))

	report.AvgConnections = avgConnections
	report.IsolatedMemories = isolated
	report.ObsoleteMemories = obsolete
	report.KnowledgeHealthScore = health
	report.Recommendations = recommendations(isolated, obsolete, len(report.ConflictingTopics), health)
	return report, nil
}

func localClusteringAverage(ids []string, adj map[string][]adjEdge, inSet map[string]bool) float64 {
	var sum float64
	var counted int
	for _, id := range ids {
		var neighbors []string
		for _, e := range adj[id] {
			if inSet[e.neighbor] {
				neighbors = append(neighbors, e.neighbor)
			}
		}
		if len(neighbors) < 2 {
			continue
		}
		neighborSet := make(map[string]bool, len(neighbors))
		for _, n := range neighbors {
			neighborSet[n] = true
		}
		links := 0
		for _, n := range neighbors {
			for _, e := range adj[n] {
				if neighborSet[e.neighbor] && e.neighbor > n {
					links++
				}
			}
		}
		possible := len(neighbors) * (len(neighbors) - 1) / 2
		sum += float64(links) / float64(possible)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

func recommendations(isolated, obsolete, conflictTopics int, health float64) []string {
	var recs []string
	if isolated > 5 {
		recs = append(recs, fmt.Sprintf("Link %d isolated memories to related knowledge for better context", isolated))
	}
	if obsolete > 3 {
		recs = append(recs, fmt.Sprintf("Archive or update %d obsolete memories", obsolete))
	}
	if conflictTopics > 0 {
		recs = append(recs, fmt.Sprintf("Resolve %d conflicting topics to maintain knowledge consistency", conflictTopics))
	}
	if health < 5 {
		recs = append(recs, "Knowledge graph health is low; add more connections between related memories")
	}
	if len(recs) == 0 {
		recs = append(recs, "Memory graph is healthy; continue building interconnected knowledge")
	}
	return recs
}
