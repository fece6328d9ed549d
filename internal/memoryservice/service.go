// Package memoryservice implements the stateless HTTP layer over the
// vector store and graph store (spec.md §4.2), generalizing the
// teacher's pkg/core.Client CRUD surface and
// pkg/core.Client.IntelligentAdd pipeline into spec.md's single-LLM-
// call extraction algorithm.
package memoryservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/embedder"
	"github.com/snorlak1/mem0-server-mcp/internal/extractor"
	"github.com/snorlak1/mem0-server-mcp/internal/graph"
	"github.com/snorlak1/mem0-server-mcp/internal/llm"
	"github.com/snorlak1/mem0-server-mcp/internal/projection"
	"github.com/snorlak1/mem0-server-mcp/internal/vectorstore"
)

// UpdateSimilarityThreshold is the minimum cosine similarity an
// existing memory must have to an UPDATE op's content before it is
// treated as that op's target (spec.md §4.2 step 3).
const UpdateSimilarityThreshold = 0.7

// Service implements the Memory Service's business logic.
type Service struct {
	store     vectorstore.Store
	graph     graph.Store
	embedder  embedder.Provider
	extractor *extractor.Extractor
	projector *projection.Pool
	node      *snowflake.Node
	log       *slog.Logger
}

// New builds a Service over its four collaborators, generalizing
// pkg/core.NewClient's wiring of storage/llm/embedder into one place.
func New(store vectorstore.Store, graphStore graph.Store, emb embedder.Provider, ext *extractor.Extractor, projector *projection.Pool, log *slog.Logger) (*Service, error) {
	const op = "memoryservice.New"
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, apperr.New(apperr.Internal, op, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, graph: graphStore, embedder: emb, extractor: ext, projector: projector, node: node, log: log}, nil
}

// Add runs spec.md §4.2's extraction algorithm end to end.
func (s *Service) Add(ctx context.Context, in AddInput) (*AddResult, error) {
	const op = "memoryservice.Add"

	if in.UserID == "" {
		return nil, apperr.Newf(apperr.BadInput, op, "user_id is required")
	}

	messages := make([]llm.Message, len(in.Messages))
	for i, m := range in.Messages {
		messages[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	extractCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	ops, err := s.extractor.Extract(extractCtx, messages)
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}

	results := make([]MemoryResult, 0, len(ops))
	for _, opItem := range ops {
		switch opItem.Action {
		case "ADD":
			mem, err := s.insertMemory(ctx, in.UserID, in.AgentID, in.RunID, opItem.Content, in.Metadata)
			if err != nil {
				return nil, err
			}
			results = append(results, MemoryResult{ID: mem.ID, Memory: mem.Content, Event: EventAdd})
			s.scheduleProjection(mem, "")
		case "UPDATE":
			mem, updated, err := s.applyUpdate(ctx, in.UserID, in.AgentID, opItem.Content)
			if err != nil {
				return nil, err
			}
			if !updated {
				// No similar memory found within threshold: fall back
				// to treating it as a new fact, matching the
				// teacher's DecisionMaker.DecideActions fallback for
				// an UPDATE with no addressable target.
				mem, err = s.insertMemory(ctx, in.UserID, in.AgentID, in.RunID, opItem.Content, in.Metadata)
				if err != nil {
					return nil, err
				}
				results = append(results, MemoryResult{ID: mem.ID, Memory: mem.Content, Event: EventAdd})
			} else {
				results = append(results, MemoryResult{ID: mem.ID, Memory: mem.Content, Event: EventUpdate})
			}
			s.scheduleProjection(mem, "")
		case "NONE":
			continue
		}
	}

	return &AddResult{Results: results, Relations: []interface{}{}}, nil
}

func (s *Service) insertMemory(ctx context.Context, userID, agentID, runID, content string, metadata map[string]interface{}) (*Memory, error) {
	const op = "memoryservice.insertMemory"

	emb, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}

	id := s.node.Generate().Int64()
	now := time.Now().UTC()
	rec := &vectorstore.Record{
		ID: id, UserID: userID, AgentID: agentID, Content: content,
		ContentHash: contentHash(content), Embedding: emb, Metadata: metadata,
		CreatedAt: now, UpdatedAt: now,
	}
	if runID != "" {
		if rec.Metadata == nil {
			rec.Metadata = map[string]interface{}{}
		}
		rec.Metadata["run_id"] = runID
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if err := s.store.AppendHistory(ctx, vectorstore.HistoryEvent{
		MemoryID: id, UserID: userID, Event: vectorstore.EventAdd, NewMemory: content, CreatedAt: now,
	}); err != nil {
		s.log.Warn("failed to record history event", "memory_id", id, "error", err)
	}

	return recordToMemory(rec), nil
}

// applyUpdate implements step 3 of spec.md §4.2's extraction
// algorithm: find the memory nearest to content within the caller's
// scope, and if it clears UpdateSimilarityThreshold, replace its
// content in place.
func (s *Service) applyUpdate(ctx context.Context, userID, agentID, content string) (*Memory, bool, error) {
	const op = "memoryservice.applyUpdate"

	emb, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, false, apperr.New(apperr.ProviderUnavailable, op, err)
	}

	candidates, err := s.store.Search(ctx, emb, &vectorstore.SearchOptions{
		UserID: userID, AgentID: agentID, Limit: 1, MinScore: UpdateSimilarityThreshold,
	})
	if err != nil {
		return nil, false, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}

	target := candidates[0]
	updated, err := s.store.Update(ctx, target.ID, content, emb, &vectorstore.UpdateOptions{UserID: userID, AgentID: agentID})
	if err != nil {
		return nil, false, apperr.New(apperr.StoreUnavailable, op, err)
	}
	if err := s.store.AppendHistory(ctx, vectorstore.HistoryEvent{
		MemoryID: target.ID, UserID: userID, Event: vectorstore.EventUpdate,
		PreviousMemory: target.Content, NewMemory: content, CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn("failed to record history event", "memory_id", target.ID, "error", err)
	}

	return recordToMemory(updated), true, nil
}

func (s *Service) scheduleProjection(mem *Memory, topic string) {
	if s.projector == nil {
		return
	}
	s.projector.Schedule(projection.Task{
		MemoryID: mem.ID, OwnerID: mem.UserID, Content: mem.Content,
		Topic: topic, CreatedAt: mem.CreatedAt,
		Components: componentsFromMetadata(mem.Metadata),
	})
}

// componentsFromMetadata extracts the component names an AddInput's
// metadata references (spec.md line 35: the graph sync worker "attaches
// [a memory] to any components/decisions its metadata references"),
// under the "components" key. Both a []string and a JSON-decoded
// []interface{} of strings are accepted since metadata arrives over
// the wire as map[string]interface{}.
func componentsFromMetadata(metadata map[string]interface{}) []string {
	raw, ok := metadata["components"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Get fetches one memory, ownership-checked (spec.md §4.2's ownership
// enforcement: not_found is never distinguishable from access_denied
// by leaking existence, so a mismatched owner also surfaces as
// access_denied here, translated from the store's not_found).
func (s *Service) Get(ctx context.Context, id int64, userID string) (*Memory, error) {
	const op = "memoryservice.Get"
	rec, err := s.store.Get(ctx, id, &vectorstore.GetOptions{UserID: userID})
	if err != nil {
		return nil, s.translateOwnershipError(ctx, op, id, err)
	}
	return recordToMemory(rec), nil
}

// GetAll lists every memory owned by userID.
func (s *Service) GetAll(ctx context.Context, userID, agentID string, limit, offset int) ([]*Memory, error) {
	const op = "memoryservice.GetAll"
	recs, err := s.store.GetAll(ctx, &vectorstore.GetAllOptions{UserID: userID, AgentID: agentID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	out := make([]*Memory, len(recs))
	for i, r := range recs {
		out[i] = recordToMemory(r)
	}
	return out, nil
}

// Update replaces a memory's content, re-embedding and writing a
// history event.
func (s *Service) Update(ctx context.Context, id int64, userID, content string) (*Memory, error) {
	const op = "memoryservice.Update"

	existing, err := s.store.Get(ctx, id, &vectorstore.GetOptions{UserID: userID})
	if err != nil {
		return nil, s.translateOwnershipError(ctx, op, id, err)
	}

	emb, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}

	rec, err := s.store.Update(ctx, id, content, emb, &vectorstore.UpdateOptions{UserID: userID})
	if err != nil {
		return nil, s.translateOwnershipError(ctx, op, id, err)
	}
	if err := s.store.AppendHistory(ctx, vectorstore.HistoryEvent{
		MemoryID: id, UserID: userID, Event: vectorstore.EventUpdate,
		PreviousMemory: existing.Content, NewMemory: content, CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn("failed to record history event", "memory_id", id, "error", err)
	}

	mem := recordToMemory(rec)
	s.scheduleProjection(mem, "")
	return mem, nil
}

// Delete removes a memory, records history, and removes its graph
// mirror node.
func (s *Service) Delete(ctx context.Context, id int64, userID string) error {
	const op = "memoryservice.Delete"

	existing, err := s.store.Get(ctx, id, &vectorstore.GetOptions{UserID: userID})
	if err != nil {
		return s.translateOwnershipError(ctx, op, id, err)
	}

	if err := s.store.Delete(ctx, id, &vectorstore.DeleteOptions{UserID: userID}); err != nil {
		return s.translateOwnershipError(ctx, op, id, err)
	}
	if err := s.store.AppendHistory(ctx, vectorstore.HistoryEvent{
		MemoryID: id, UserID: userID, Event: vectorstore.EventDelete, PreviousMemory: existing.Content, CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.log.Warn("failed to record history event", "memory_id", id, "error", err)
	}

	if s.graph != nil {
		if err := s.graph.DeleteMemoryNode(ctx, formatID(id)); err != nil {
			s.log.Warn("failed to delete graph node for deleted memory", "memory_id", id, "error", err)
		}
	}
	return nil
}

// History returns a memory's ordered event trail, including its final
// DELETE event for a memory that has since been hard-deleted (spec.md
// §8: history outlives the memory it describes). Delete performs a
// hard delete, so a live Get against id always 404s afterward; the
// history table records UserID independently of the live row, so a
// not_found there falls back to trusting the history table's own
// ownership record rather than treating the endpoint as permanently
// unreachable.
func (s *Service) History(ctx context.Context, id int64, userID string) ([]HistoryEvent, error) {
	const op = "memoryservice.History"

	if _, err := s.store.Get(ctx, id, &vectorstore.GetOptions{UserID: userID}); err != nil {
		if apperr.KindOf(err) != apperr.NotFound {
			return nil, err
		}
		events, histErr := s.store.GetHistory(ctx, id, userID)
		if histErr == nil && len(events) > 0 {
			return toHistoryEvents(events), nil
		}
		return nil, s.translateOwnershipError(ctx, op, id, err)
	}

	events, err := s.store.GetHistory(ctx, id, userID)
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}
	return toHistoryEvents(events), nil
}

func toHistoryEvents(events []vectorstore.HistoryEvent) []HistoryEvent {
	out := make([]HistoryEvent, len(events))
	for i, e := range events {
		out[i] = HistoryEvent{
			Event: Event(e.Event), PreviousMemory: e.PreviousMemory, NewMemory: e.NewMemory, CreatedAt: e.CreatedAt,
		}
	}
	return out
}

// Search embeds the query once and issues an ownership-filtered
// k-nearest-neighbors search (spec.md §4.2's semantic search).
func (s *Service) Search(ctx context.Context, in SearchInput) ([]SearchResultItem, error) {
	const op = "memoryservice.Search"

	if in.UserID == "" {
		return nil, apperr.Newf(apperr.BadInput, op, "user_id is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	emb, err := s.embedder.Embed(ctx, in.Query)
	if err != nil {
		return nil, apperr.New(apperr.ProviderUnavailable, op, err)
	}

	recs, err := s.store.Search(ctx, emb, &vectorstore.SearchOptions{
		UserID: in.UserID, AgentID: in.AgentID, Limit: limit, Filters: in.Filters,
	})
	if err != nil {
		return nil, apperr.New(apperr.StoreUnavailable, op, err)
	}

	out := make([]SearchResultItem, len(recs))
	for i, r := range recs {
		out[i] = SearchResultItem{ID: formatID(r.ID), Memory: r.Content, Score: r.Score, Metadata: r.Metadata, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

// Reset performs the administrative full wipe. Callers are expected
// to have already checked the requester holds an admin scope; Reset
// itself trusts its caller (the HTTP layer enforces the check).
func (s *Service) Reset(ctx context.Context) error {
	const op = "memoryservice.Reset"
	if err := s.store.DeleteAll(ctx, &vectorstore.DeleteAllOptions{}); err != nil {
		return apperr.New(apperr.StoreUnavailable, op, err)
	}
	return nil
}

func recordToMemory(r *vectorstore.Record) *Memory {
	return &Memory{
		ID: formatID(r.ID), UserID: r.UserID, AgentID: r.AgentID, Content: r.Content,
		Metadata: r.Metadata, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Score: r.Score,
	}
}

// translateOwnershipError distinguishes spec.md §4.2's two GET-time
// failure modes. A vectorstore Store bakes the owner filter into its
// lookup predicate, so a not_found from an owner-scoped call is
// ambiguous: the row may never have existed, or it may belong to a
// different owner. This re-checks existence with no owner filter and
// reports access_denied only when the row is actually there under a
// different owner, preserving genuine not_found for rows that are not
// there at all.
func (s *Service) translateOwnershipError(ctx context.Context, op string, id int64, err error) error {
	if apperr.KindOf(err) != apperr.NotFound {
		return err
	}
	if _, getErr := s.store.Get(ctx, id, &vectorstore.GetOptions{}); getErr == nil {
		return apperr.New(apperr.AccessDenied, op, err)
	}
	return err
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
