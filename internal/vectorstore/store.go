// Package vectorstore defines the Store interface every vector-storage
// backend implements, and the shared record/option types they operate
// on.
package vectorstore

import (
	"context"
	"time"
)

// Record is a single stored memory, as seen by the vector store layer.
// It mirrors internal/memoryservice's Memory but stays independent of
// that package to avoid an import cycle back from the backends.
type Record struct {
	ID           int64
	UserID       string
	AgentID      string
	Content      string
	ContentHash  string
	Embedding    []float64
	Metadata     map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Score        float64
}

// IndexType names a vector index algorithm.
type IndexType string

const (
	IndexHNSW    IndexType = "HNSW"
	IndexIVFFlat IndexType = "IVF_FLAT"
)

// HNSWParams configures an HNSW index (spec §4.3, D<=2000).
type HNSWParams struct {
	M              int
	EfConstruction int
}

// IVFFlatParams configures an IVFFlat index (spec §4.3, D>2000).
type IVFFlatParams struct {
	Lists int
}

// IndexConfig describes the index CreateIndex should build. Backends
// that cannot build a native vector index (sqlite) treat this as a
// no-op.
type IndexConfig struct {
	IndexType     IndexType
	HNSWParams    *HNSWParams
	IVFFlatParams *IVFFlatParams
}

// SearchOptions constrains a Search call.
type SearchOptions struct {
	UserID   string
	AgentID  string
	Limit    int
	MinScore float64
	Filters  map[string]interface{}
}

// GetOptions constrains a Get call to a specific owner.
type GetOptions struct {
	UserID  string
	AgentID string
}

// UpdateOptions constrains an Update call to a specific owner.
type UpdateOptions struct {
	UserID  string
	AgentID string
}

// DeleteOptions constrains a Delete call to a specific owner.
type DeleteOptions struct {
	UserID  string
	AgentID string
}

// GetAllOptions constrains and paginates a GetAll call.
type GetAllOptions struct {
	UserID  string
	AgentID string
	Limit   int
	Offset  int
}

// DeleteAllOptions constrains a DeleteAll call to a specific owner.
type DeleteAllOptions struct {
	UserID  string
	AgentID string
}

// EventType names a history event kind.
type EventType string

const (
	EventAdd    EventType = "ADD"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// HistoryEvent is one append-only entry in a memory's audit trail.
type HistoryEvent struct {
	MemoryID       int64
	UserID         string
	Event          EventType
	PreviousMemory string
	NewMemory      string
	CreatedAt      time.Time
}

// Store is satisfied by every vector storage backend (sqlite, postgres,
// mysql). Every access-controlled method enforces ownership when the
// corresponding UserID/AgentID field is non-empty, returning an
// apperr.NotFound (never AccessDenied) so record existence is never
// leaked to a non-owner (spec §4.2's ownership rule).
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	Search(ctx context.Context, embedding []float64, opts *SearchOptions) ([]*Record, error)
	Get(ctx context.Context, id int64, opts *GetOptions) (*Record, error)
	Update(ctx context.Context, id int64, content string, embedding []float64, opts *UpdateOptions) (*Record, error)
	Delete(ctx context.Context, id int64, opts *DeleteOptions) error
	GetAll(ctx context.Context, opts *GetAllOptions) ([]*Record, error)
	DeleteAll(ctx context.Context, opts *DeleteAllOptions) error
	CreateIndex(ctx context.Context, cfg *IndexConfig) error

	// AppendHistory records one history event. History is append-only:
	// it is never rewritten or deleted alongside its memory.
	AppendHistory(ctx context.Context, ev HistoryEvent) error

	// GetHistory returns every event for memoryID, oldest first,
	// scoped to userID.
	GetHistory(ctx context.Context, memoryID int64, userID string) ([]HistoryEvent, error)

	Close() error
}

// ChooseIndexType implements spec §4.3's index-strategy decision:
// HNSW for embedding dimensionality at or below 2000, IVFFlat above.
func ChooseIndexType(dimensions int) IndexType {
	if dimensions <= 2000 {
		return IndexHNSW
	}
	return IndexIVFFlat
}
