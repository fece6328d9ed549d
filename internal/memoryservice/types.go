package memoryservice

import "time"

// Memory is a single stored memory as seen by the service layer,
// mirroring the teacher's pkg/core.Memory but trimmed to the fields
// spec.md's endpoints actually expose.
type Memory struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	AgentID   string                 `json:"agent_id,omitempty"`
	RunID     string                 `json:"run_id,omitempty"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Score     float64                `json:"score,omitempty"`
}

// Event names the operation behind a MemoryResult or HistoryEvent,
// matching the teacher's ADD/UPDATE/DELETE/NONE vocabulary. Extraction
// (POST /memories) only ever produces ADD/UPDATE/NONE; DELETE appears
// solely in a memory's history trail, recorded by the DELETE endpoint.
type Event string

const (
	EventAdd    Event = "ADD"
	EventUpdate Event = "UPDATE"
	EventNone   Event = "NONE"
	// EventDelete only ever appears in a HistoryEvent, never in a
	// MemoryResult: extraction emits ADD/UPDATE/NONE, deletes happen
	// only via the DELETE endpoint.
	EventDelete Event = "DELETE"
)

// MemoryResult is one entry of POST /memories' results array.
type MemoryResult struct {
	ID     string `json:"id"`
	Memory string `json:"memory"`
	Event  Event  `json:"event"`
}

// HistoryEvent is one entry of a memory's audit trail, as returned by
// GET /memories/{id}/history.
type HistoryEvent struct {
	Event          Event     `json:"event"`
	PreviousMemory string    `json:"previous_memory,omitempty"`
	NewMemory      string    `json:"new_memory,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AddInput is POST /memories' request body.
type AddInput struct {
	Messages []Message              `json:"messages"`
	UserID   string                 `json:"user_id"`
	AgentID  string                 `json:"agent_id,omitempty"`
	RunID    string                 `json:"run_id,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Message is one conversation turn, matching internal/llm.Message's
// shape so it can be forwarded to the extractor unchanged.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AddResult is POST /memories' response body.
type AddResult struct {
	Results   []MemoryResult `json:"results"`
	Relations []interface{}  `json:"relations"`
}

// SearchInput is POST /search's request body.
type SearchInput struct {
	Query   string                 `json:"query"`
	UserID  string                 `json:"user_id"`
	AgentID string                 `json:"agent_id,omitempty"`
	RunID   string                 `json:"run_id,omitempty"`
	Limit   int                    `json:"limit,omitempty"`
	Filters map[string]interface{} `json:"filters,omitempty"`
}

// SearchResultItem is one entry of POST /search's results array.
type SearchResultItem struct {
	ID        string                 `json:"id"`
	Memory    string                 `json:"memory"`
	Score     float64                `json:"score"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
