package sqlite

import (
	"sort"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/graph"
)

const componentPrefix = "component:"

func componentNodeID(name string) string { return componentPrefix + name }

func nowUnix() int64 { return time.Now().Unix() }

func unixToTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// adjEdge is one side of an undirected traversal step.
type adjEdge struct {
	neighbor string
	kind     graph.EdgeKind
}

// buildAdjacency turns a flat edge list into an undirected adjacency
// map, keeping the edge kind as observed from each side.
func buildAdjacency(edges []dbEdge) map[string][]adjEdge {
	adj := make(map[string][]adjEdge)
	for _, e := range edges {
		adj[e.FromID] = append(adj[e.FromID], adjEdge{neighbor: e.ToID, kind: graph.EdgeKind(e.Kind)})
		adj[e.ToID] = append(adj[e.ToID], adjEdge{neighbor: e.FromID, kind: graph.EdgeKind(e.Kind)})
	}
	for k := range adj {
		sort.Slice(adj[k], func(i, j int) bool { return adj[k][i].neighbor < adj[k][j].neighbor })
	}
	return adj
}

type dbEdge struct {
	FromID string
	ToID   string
	Kind   string
	Tag    string
}

// bfs runs breadth-first search from start up to maxDepth hops
// (maxDepth <= 0 means unbounded), returning each visited node's
// distance and the edge-kind path taken to reach it via the first
// (shortest) route found. Deterministic: neighbors are visited in
// sorted order, so ties always resolve the same way.
func bfs(adj map[string][]adjEdge, start string, maxDepth int) map[string]struct {
	distance int
	path     []graph.EdgeKind
} {
	type state struct {
		distance int
		path     []graph.EdgeKind
	}
	visited := map[string]state{start: {0, nil}}
	queue := []string{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curState := visited[cur]
		if maxDepth > 0 && curState.distance >= maxDepth {
			continue
		}
		for _, e := range adj[cur] {
			if _, seen := visited[e.neighbor]; seen {
				continue
			}
			path := make([]graph.EdgeKind, len(curState.path)+1)
			copy(path, curState.path)
			path[len(curState.path)] = e.kind
			visited[e.neighbor] = state{distance: curState.distance + 1, path: path}
			queue = append(queue, e.neighbor)
		}
	}

	out := make(map[string]struct {
		distance int
		path     []graph.EdgeKind
	}, len(visited))
	for k, v := range visited {
		out[k] = struct {
			distance int
			path     []graph.EdgeKind
		}{v.distance, v.path}
	}
	return out
}

// shortestPath returns the node-id sequence and edge-kind sequence of
// the shortest path from -> to, or nil if unreachable.
func shortestPath(adj map[string][]adjEdge, from, to string) ([]string, []graph.EdgeKind) {
	if from == to {
		return []string{from}, nil
	}
	type parent struct {
		node string
		kind graph.EdgeKind
	}
	prev := map[string]parent{}
	visited := map[string]bool{from: true}
	queue := []string{from}

	found := false
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range adj[cur] {
			if visited[e.neighbor] {
				continue
			}
			visited[e.neighbor] = true
			prev[e.neighbor] = parent{node: cur, kind: e.kind}
			if e.neighbor == to {
				found = true
				break
			}
			queue = append(queue, e.neighbor)
		}
	}
	if !visited[to] {
		return nil, nil
	}

	var nodes []string
	var kinds []graph.EdgeKind
	cur := to
	for cur != from {
		p := prev[cur]
		nodes = append([]string{cur}, nodes...)
		kinds = append([]graph.EdgeKind{p.kind}, kinds...)
		cur = p.node
	}
	nodes = append([]string{from}, nodes...)
	return nodes, kinds
}

// labelPropagate runs label propagation to convergence (or
// maxIterations, whichever comes first). Each round every node adopts
// the most frequent label among its neighbors' current labels; ties
// are broken by the lexicographically smallest label, and nodes are
// updated in place in sorted-by-id order, so a node already sees the
// labels its predecessors adopted earlier in the same round and the
// whole process is deterministic.
func labelPropagate(nodeIDs []string, adj map[string][]adjEdge, communityEdgeKinds map[graph.EdgeKind]bool, maxIterations int) map[string]string {
	labels := make(map[string]string, len(nodeIDs))
	for _, id := range nodeIDs {
		labels[id] = id
	}

	sorted := append([]string(nil), nodeIDs...)
	sort.Strings(sorted)

	nodeSet := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		nodeSet[id] = true
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for _, id := range sorted {
			counts := map[string]int{}
			for _, e := range adj[id] {
				if !nodeSet[e.neighbor] || !communityEdgeKinds[e.kind] {
					continue
				}
				counts[labels[e.neighbor]]++
			}
			if len(counts) == 0 {
				continue
			}
			best := labels[id]
			bestCount := -1
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if counts[k] > bestCount {
					bestCount = counts[k]
					best = k
				}
			}
			if best != labels[id] {
				labels[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}
