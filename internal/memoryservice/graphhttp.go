package memoryservice

import (
	"net/http"
	"strconv"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/graph"
)

// registerGraphRoutes mounts spec.md §6's "/graph/* endpoints mirror
// the engine operations in §4.4" read surface: everything the graph
// intelligence engine can answer that doesn't itself mutate memory
// content (mutation happens implicitly via background projection).
func (h *Handler) registerGraphRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /graph/memories/{id}/related", h.handleGraphRelated)
	mux.HandleFunc("GET /graph/memories/{id}/thread", h.handleGraphThread)
	mux.HandleFunc("GET /graph/path", h.handleGraphPath)
	mux.HandleFunc("GET /graph/evolution", h.handleGraphEvolution)
	mux.HandleFunc("GET /graph/superseded", h.handleGraphSuperseded)
	mux.HandleFunc("GET /graph/impact/{component}", h.handleGraphImpact)
	mux.HandleFunc("GET /graph/decisions/{id}/rationale", h.handleGraphDecisionRationale)
	mux.HandleFunc("GET /graph/communities", h.handleGraphCommunities)
	mux.HandleFunc("GET /graph/memories/{id}/trust", h.handleGraphTrust)
	mux.HandleFunc("GET /graph/intelligence", h.handleGraphIntelligence)

	// Write endpoints callers author directly rather than the projection
	// pipeline deriving implicitly. Most back a Gateway tool
	// (link_memories, create_component, link_component_dependency,
	// create_decision — spec.md §4.1); link-memory has no MCP mirror,
	// matching the original's own REST-only endpoint.
	mux.HandleFunc("POST /graph/memories/link", h.handleGraphLinkMemories)
	mux.HandleFunc("POST /graph/components", h.handleGraphCreateComponent)
	mux.HandleFunc("POST /graph/components/dependency", h.handleGraphLinkComponentDependency)
	mux.HandleFunc("POST /graph/components/link-memory", h.handleGraphLinkMemoryToComponent)
	mux.HandleFunc("POST /graph/decisions", h.handleGraphCreateDecision)
}

func (h *Handler) handleGraphRelated(w http.ResponseWriter, r *http.Request) {
	depth := 2
	if d, err := strconv.Atoi(r.URL.Query().Get("depth")); err == nil && d > 0 {
		depth = d
	}
	result, err := h.graph.GetRelatedMemories(r.Context(), r.PathValue("id"), depth)
	writeResult(w, map[string]interface{}{"results": result}, err)
}

func (h *Handler) handleGraphThread(w http.ResponseWriter, r *http.Request) {
	result, err := h.graph.GetConversationThread(r.Context(), r.PathValue("id"))
	writeResult(w, map[string]interface{}{"results": result}, err)
}

func (h *Handler) handleGraphPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.graph.FindPath(r.Context(), q.Get("from"), q.Get("to"))
	writeResult(w, result, err)
}

func (h *Handler) handleGraphEvolution(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since, until *int64
	if v := q.Get("since"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = &n
		}
	}
	if v := q.Get("until"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			until = &n
		}
	}
	result, err := h.graph.GetMemoryEvolution(r.Context(), q.Get("topic"), since, until)
	writeResult(w, map[string]interface{}{"results": result}, err)
}

func (h *Handler) handleGraphSuperseded(w http.ResponseWriter, r *http.Request) {
	result, err := h.graph.FindSupersededMemories(r.Context(), r.URL.Query().Get("user_id"))
	writeResult(w, map[string]interface{}{"results": result}, err)
}

func (h *Handler) handleGraphImpact(w http.ResponseWriter, r *http.Request) {
	result, err := h.graph.GetImpactAnalysis(r.Context(), r.PathValue("component"))
	writeResult(w, result, err)
}

func (h *Handler) handleGraphDecisionRationale(w http.ResponseWriter, r *http.Request) {
	result, err := h.graph.GetDecisionRationale(r.Context(), r.PathValue("id"))
	writeResult(w, result, err)
}

func (h *Handler) handleGraphCommunities(w http.ResponseWriter, r *http.Request) {
	result, err := h.graph.DetectMemoryCommunities(r.Context(), r.URL.Query().Get("user_id"))
	writeResult(w, map[string]interface{}{"results": result}, err)
}

func (h *Handler) handleGraphTrust(w http.ResponseWriter, r *http.Request) {
	weights := trustWeightsFromQuery(r)
	score, factors, err := h.graph.CalculateTrustScore(r.Context(), r.PathValue("id"), weights, time.Now().Unix())
	writeResult(w, map[string]interface{}{"score": score, "factors": factors}, err)
}

func (h *Handler) handleGraphIntelligence(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, apperr.Newf(apperr.BadInput, "memoryservice.handleGraphIntelligence", "user_id is required"))
		return
	}
	weights := trustWeightsFromQuery(r)
	result, err := h.graph.AnalyzeMemoryIntelligence(r.Context(), userID, weights, time.Now().Unix())
	writeResult(w, result, err)
}

func (h *Handler) handleGraphLinkMemories(w http.ResponseWriter, r *http.Request) {
	var body struct {
		A        string `json:"a"`
		B        string `json:"b"`
		Relation string `json:"relation"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.A == "" || body.B == "" || body.Relation == "" {
		writeError(w, apperr.Newf(apperr.BadInput, "memoryservice.handleGraphLinkMemories", "a, b, and relation are required"))
		return
	}
	err := h.graph.LinkMemories(r.Context(), body.A, body.B, graph.EdgeKind(body.Relation))
	writeResult(w, map[string]bool{"linked": err == nil}, err)
}

func (h *Handler) handleGraphCreateComponent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeError(w, apperr.Newf(apperr.BadInput, "memoryservice.handleGraphCreateComponent", "name is required"))
		return
	}
	err := h.graph.CreateComponent(r.Context(), body.Name, body.Kind)
	writeResult(w, map[string]bool{"created": err == nil}, err)
}

func (h *Handler) handleGraphLinkComponentDependency(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
		Tag  string `json:"tag"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.From == "" || body.To == "" {
		writeError(w, apperr.Newf(apperr.BadInput, "memoryservice.handleGraphLinkComponentDependency", "from and to are required"))
		return
	}
	err := h.graph.LinkComponentDependency(r.Context(), body.From, body.To, body.Tag)
	writeResult(w, map[string]bool{"linked": err == nil}, err)
}

func (h *Handler) handleGraphLinkMemoryToComponent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MemoryID  string `json:"memory_id"`
		Component string `json:"component"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.MemoryID == "" || body.Component == "" {
		writeError(w, apperr.Newf(apperr.BadInput, "memoryservice.handleGraphLinkMemoryToComponent", "memory_id and component are required"))
		return
	}
	err := h.graph.LinkMemoryToComponent(r.Context(), body.MemoryID, body.Component)
	writeResult(w, map[string]bool{"linked": err == nil}, err)
}

func (h *Handler) handleGraphCreateDecision(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text         string   `json:"text"`
		OwnerID      string   `json:"owner_id"`
		Pros         []string `json:"pros"`
		Cons         []string `json:"cons"`
		Alternatives []string `json:"alternatives"`
		JustifiedBy  []string `json:"justified_by"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Text == "" || body.OwnerID == "" {
		writeError(w, apperr.Newf(apperr.BadInput, "memoryservice.handleGraphCreateDecision", "text and owner_id are required"))
		return
	}
	id, err := h.graph.CreateDecision(r.Context(), body.Text, body.OwnerID, body.Pros, body.Cons, body.Alternatives)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, memoryID := range body.JustifiedBy {
		if err := h.graph.LinkDecisionJustifies(r.Context(), id, memoryID); err != nil {
			writeError(w, err)
			return
		}
	}
	writeResult(w, map[string]string{"id": id}, nil)
}

func trustWeightsFromQuery(r *http.Request) graph.TrustWeights {
	q := r.URL.Query()
	weights := graph.TrustWeights{CitationWeight: 0.5, RecencyWeight: 0.3, ConflictWeight: 0.4, HalfLifeDays: 90}
	if v, err := strconv.ParseFloat(q.Get("citation_weight"), 64); err == nil {
		weights.CitationWeight = v
	}
	if v, err := strconv.ParseFloat(q.Get("recency_weight"), 64); err == nil {
		weights.RecencyWeight = v
	}
	if v, err := strconv.ParseFloat(q.Get("conflict_weight"), 64); err == nil {
		weights.ConflictWeight = v
	}
	if v, err := strconv.ParseFloat(q.Get("half_life_days"), 64); err == nil {
		weights.HalfLifeDays = v
	}
	return weights
}
