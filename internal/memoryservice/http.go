package memoryservice

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/graph"
)

// Handler wires Service and graph.Store onto Go 1.22's pattern-based
// http.ServeMux, matching spec.md §6's REST API.
type Handler struct {
	svc     *Service
	graph   graph.Store
	isAdmin func(*http.Request) bool
	log     *slog.Logger
}

// NewHandler builds a mux serving spec.md §6's Memory Service and
// §4.4-mirroring /graph/* endpoints. isAdmin decides whether a request
// may call POST /reset; a nil isAdmin rejects every reset request.
func NewHandler(svc *Service, graphStore graph.Store, isAdmin func(*http.Request) bool, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{svc: svc, graph: graphStore, isAdmin: isAdmin, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /memories", h.handleAdd)
	mux.HandleFunc("GET /memories", h.handleGetAll)
	mux.HandleFunc("GET /memories/{id}", h.handleGet)
	mux.HandleFunc("PUT /memories/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /memories/{id}", h.handleDelete)
	mux.HandleFunc("GET /memories/{id}/history", h.handleHistory)
	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("POST /reset", h.handleReset)
	mux.HandleFunc("POST /graph/sync", h.handleGraphSync)
	h.registerGraphRoutes(mux)
	return mux
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var in AddInput
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := h.svc.Add(r.Context(), in)
	writeResult(w, result, err)
}

func (h *Handler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	result, err := h.svc.GetAll(r.Context(), q.Get("user_id"), q.Get("agent_id"), limit, offset)
	writeResult(w, result, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.Get(r.Context(), id, r.URL.Query().Get("user_id"))
	writeResult(w, result, err)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var body struct {
		UserID  string `json:"user_id"`
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.Update(r.Context(), id, body.UserID, body.Content)
	writeResult(w, result, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	err := h.svc.Delete(r.Context(), id, r.URL.Query().Get("user_id"))
	writeResult(w, map[string]bool{"deleted": err == nil}, err)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.History(r.Context(), id, r.URL.Query().Get("user_id"))
	writeResult(w, map[string]interface{}{"results": result}, err)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in SearchInput
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := h.svc.Search(r.Context(), in)
	writeResult(w, map[string]interface{}{"results": result}, err)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if h.isAdmin == nil || !h.isAdmin(r) {
		writeError(w, apperr.Newf(apperr.Unauthenticated, "memoryservice.handleReset", "administrative scope required"))
		return
	}
	err := h.svc.Reset(r.Context())
	writeResult(w, map[string]bool{"reset": err == nil}, err)
}

// handleGraphSync triggers manual re-projection of every memory owned
// by user_id, per spec.md §5's "Re-projection may be triggered
// manually via an administrative POST /graph/sync".
func (h *Handler) handleGraphSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.UserID == "" {
		writeError(w, apperr.Newf(apperr.BadInput, "memoryservice.handleGraphSync", "user_id is required"))
		return
	}

	memories, err := h.svc.GetAll(r.Context(), body.UserID, "", 0, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, mem := range memories {
		h.svc.scheduleProjection(mem, "")
	}
	writeResult(w, map[string]int{"scheduled": len(memories)}, nil)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseMemID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apperr.New(apperr.BadInput, "memoryservice.http", err))
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates an apperr.Error into spec.md §6's error
// envelope: {detail: string, code: string}, where code is the error's
// Kind, with the Kind's associated status code.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.Status())
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": err.Error(), "code": string(kind)})
}
