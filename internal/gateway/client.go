// Package gateway implements the MCP Gateway (spec.md §4.1): the
// process coding assistants talk to over the Model Context Protocol,
// which authenticates every call against internal/authstore, derives
// an effective project scope, and dispatches to the Memory Service
// over HTTP. The gateway never touches a vectorstore.Store or
// graph.Store directly.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
)

// MemoryClient is a thin HTTP client over internal/memoryservice's REST
// API, grounded on the teacher's provider clients' http.Client-plus-
// baseURL shape (pkg/llm/anthropic.Client, pkg/llm/qwen.Client).
type MemoryClient struct {
	http    *http.Client
	baseURL string
}

// NewMemoryClient builds a client bound to baseURL (e.g.
// http://localhost:8000) with the connect and per-request timeouts
// spec.md §4.1 names for chunk dispatch (10s connect, 180s request).
func NewMemoryClient(baseURL string, requestTimeout, connectTimeout time.Duration) *MemoryClient {
	return &MemoryClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
	}
}

// do issues a JSON request against path and decodes the response body
// into out (which may be nil to discard it). Non-2xx responses are
// translated from the Memory Service's {detail: string} envelope into
// an *apperr.Error carrying the matching Kind.
func (c *MemoryClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.New(apperr.Internal, "gateway.MemoryClient.do", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.New(apperr.Internal, "gateway.MemoryClient.do", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, "gateway.MemoryClient.do", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.New(apperr.StoreUnavailable, "gateway.MemoryClient.do", err)
	}

	if resp.StatusCode >= 300 {
		return apperr.Newf(statusToKind(resp.StatusCode), "gateway.MemoryClient.do", "%s", detailOf(respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.New(apperr.Internal, "gateway.MemoryClient.do", err)
	}
	return nil
}

func statusToKind(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest:
		return apperr.BadInput
	case http.StatusUnauthorized:
		return apperr.Unauthenticated
	case http.StatusForbidden:
		return apperr.AccessDenied
	case http.StatusNotFound:
		return apperr.NotFound
	default:
		return apperr.Internal
	}
}

func detailOf(body []byte) string {
	var env struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Detail != "" {
		return env.Detail
	}
	return string(body)
}

// AddInput mirrors internal/memoryservice.AddInput's wire shape without
// importing that package, keeping the gateway decoupled from the
// service's internal types.
type AddInput struct {
	Messages []Message              `json:"messages"`
	UserID   string                 `json:"user_id"`
	AgentID  string                 `json:"agent_id,omitempty"`
	RunID    string                 `json:"run_id,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Message is one conversation turn dispatched to POST /memories.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MemoryResult is one entry of POST /memories' results array. ID is
// the Memory Service's opaque string ID (spec.md §3), not a raw
// numeric key.
type MemoryResult struct {
	ID     string `json:"id"`
	Memory string `json:"memory"`
	Event  string `json:"event"`
}

// AddResult is POST /memories' response body.
type AddResult struct {
	Results []MemoryResult `json:"results"`
}

// Add dispatches one chunk's worth of conversation to the Memory
// Service. Chunk metadata rides in Metadata per spec.md §4.1's
// chunking contract.
func (c *MemoryClient) Add(ctx context.Context, in AddInput) (*AddResult, error) {
	var out AddResult
	if err := c.do(ctx, http.MethodPost, "/memories", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchInput mirrors POST /search's request body.
type SearchInput struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// Search returns ranked memories for query.
func (c *MemoryClient) Search(ctx context.Context, in SearchInput) ([]map[string]interface{}, error) {
	var out struct {
		Results []map[string]interface{} `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/search", in, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// GetAll returns every memory owned by userID.
func (c *MemoryClient) GetAll(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	path := "/memories?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a memory owned by userID.
func (c *MemoryClient) Delete(ctx context.Context, memoryID, userID string) error {
	path := fmt.Sprintf("/memories/%s?user_id=%s", url.PathEscape(memoryID), url.QueryEscape(userID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// History returns a memory's audit trail.
func (c *MemoryClient) History(ctx context.Context, memoryID, userID string) ([]map[string]interface{}, error) {
	var out struct {
		Results []map[string]interface{} `json:"results"`
	}
	path := fmt.Sprintf("/memories/%s/history?user_id=%s", url.PathEscape(memoryID), url.QueryEscape(userID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// LinkMemories creates an edge between two memories.
func (c *MemoryClient) LinkMemories(ctx context.Context, a, b, relation string) (map[string]interface{}, error) {
	var out map[string]interface{}
	body := map[string]string{"a": a, "b": b, "relation": relation}
	if err := c.do(ctx, http.MethodPost, "/graph/memories/link", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRelatedMemories returns a memory's subgraph out to depth hops.
func (c *MemoryClient) GetRelatedMemories(ctx context.Context, memoryID string, depth int) ([]map[string]interface{}, error) {
	var out struct {
		Results []map[string]interface{} `json:"results"`
	}
	path := fmt.Sprintf("/graph/memories/%s/related?depth=%d", url.PathEscape(memoryID), depth)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// AnalyzeMemoryIntelligence returns a user's full intelligence report.
func (c *MemoryClient) AnalyzeMemoryIntelligence(ctx context.Context, userID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	path := "/graph/intelligence?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComponent upserts a component node by name.
func (c *MemoryClient) CreateComponent(ctx context.Context, name, kind string) (map[string]interface{}, error) {
	var out map[string]interface{}
	body := map[string]string{"name": name, "kind": kind}
	if err := c.do(ctx, http.MethodPost, "/graph/components", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LinkComponentDependency creates a DEPENDS_ON edge between components.
func (c *MemoryClient) LinkComponentDependency(ctx context.Context, from, to, tag string) (map[string]interface{}, error) {
	var out map[string]interface{}
	body := map[string]string{"from": from, "to": to, "tag": tag}
	if err := c.do(ctx, http.MethodPost, "/graph/components/dependency", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeComponentImpact returns a component's downstream blast radius.
func (c *MemoryClient) AnalyzeComponentImpact(ctx context.Context, component string) (map[string]interface{}, error) {
	var out map[string]interface{}
	path := "/graph/impact/" + url.PathEscape(component)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDecision records a decision node, links it to every memory in
// justifiedBy via a JUSTIFIES edge, and returns its ID.
func (c *MemoryClient) CreateDecision(ctx context.Context, text, ownerID string, pros, cons, alternatives, justifiedBy []string) (map[string]interface{}, error) {
	var out map[string]interface{}
	body := map[string]interface{}{
		"text": text, "owner_id": ownerID,
		"pros": pros, "cons": cons, "alternatives": alternatives,
		"justified_by": justifiedBy,
	}
	if err := c.do(ctx, http.MethodPost, "/graph/decisions", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDecisionRationale returns a decision plus every memory that
// justifies it.
func (c *MemoryClient) GetDecisionRationale(ctx context.Context, decisionID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	path := "/graph/decisions/" + url.PathEscape(decisionID) + "/rationale"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
