package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/chunker"
	"github.com/snorlak1/mem0-server-mcp/internal/config"
)

// Deps carries everything a tool handler needs to resolve the caller,
// the effective project scope, and dispatch to the Memory Service.
type Deps struct {
	Client      *MemoryClient
	ProjectMode config.ProjectIDMode
	ManualID    string
	GlobalID    string
	ChunkCfg    chunker.Config
}

// projectID resolves the effective owner scope for req, per spec.md
// §4.1 step 2. The caller's project path travels as an MCP argument
// (not a transport header) since tool arguments are transport-neutral
// across the HTTP-stream and SSE mounts.
func (d Deps) projectID(ctx context.Context, req mcp.CallToolRequest) string {
	caller, _ := CallerFromContext(ctx)
	projectPath, _ := req.GetArguments()["project_path"].(string)
	return EffectiveProjectID(d.ProjectMode, projectPath, caller.UserID, d.ManualID, d.GlobalID)
}

// decode marshals req's arguments through JSON into a T, grounded on
// the JSON-roundtrip decode helper used for tool-argument binding
// elsewhere in the ecosystem (mcp-go handlers commonly receive
// arguments as a map[string]any and need a typed view of them).
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return out, fmt.Errorf("marshal arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("unmarshal arguments: %w", err)
	}
	return out, nil
}

func successResult(data interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperr.Detail(err))
}

// RegisterTools mounts every spec.md §4.1 tool onto s.
func RegisterTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("add_coding_preference",
		mcp.WithDescription("Store a coding preference or fact, chunking oversized text before ingestion."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to remember.")),
		mcp.WithString("project_path", mcp.Description("Caller's project directory identifier, used to derive project scope under auto mode.")),
	), handleAddCodingPreference(deps))

	s.AddTool(mcp.NewTool("search_coding_preferences",
		mcp.WithDescription("Search stored coding preferences by semantic similarity."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10).")),
		mcp.WithString("project_path", mcp.Description("Caller's project directory identifier.")),
	), handleSearchCodingPreferences(deps))

	s.AddTool(mcp.NewTool("get_all_coding_preferences",
		mcp.WithDescription("List every memory owned by the effective project."),
		mcp.WithString("project_path", mcp.Description("Caller's project directory identifier.")),
	), handleGetAllCodingPreferences(deps))

	s.AddTool(mcp.NewTool("delete_memory",
		mcp.WithDescription("Delete a stored memory by ID."),
		mcp.WithString("memory_id", mcp.Required(), mcp.Description("The memory's ID.")),
		mcp.WithString("project_path", mcp.Description("Caller's project directory identifier.")),
	), handleDeleteMemory(deps))

	s.AddTool(mcp.NewTool("get_memory_history",
		mcp.WithDescription("Return a memory's ordered history of ADD/UPDATE/DELETE events."),
		mcp.WithString("memory_id", mcp.Required(), mcp.Description("The memory's ID.")),
		mcp.WithString("project_path", mcp.Description("Caller's project directory identifier.")),
	), handleGetMemoryHistory(deps))

	s.AddTool(mcp.NewTool("link_memories",
		mcp.WithDescription("Create a relationship edge between two memories."),
		mcp.WithString("a", mcp.Required(), mcp.Description("Source memory ID.")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Target memory ID.")),
		mcp.WithString("relation", mcp.Required(), mcp.Description("Edge kind: relates_to, depends_on, supersedes, responds_to, extends, conflicts_with, describes, justifies.")),
	), handleLinkMemories(deps))

	s.AddTool(mcp.NewTool("get_related_memories",
		mcp.WithDescription("Return the subgraph reachable from a memory within depth hops."),
		mcp.WithString("memory_id", mcp.Required(), mcp.Description("The memory's ID.")),
		mcp.WithNumber("depth", mcp.Description("Traversal depth (default 2).")),
	), handleGetRelatedMemories(deps))

	s.AddTool(mcp.NewTool("analyze_memory_intelligence",
		mcp.WithDescription("Produce the full intelligence report for the effective project's memory subgraph."),
		mcp.WithString("project_path", mcp.Description("Caller's project directory identifier.")),
	), handleAnalyzeMemoryIntelligence(deps))

	s.AddTool(mcp.NewTool("create_component",
		mcp.WithDescription("Register a codebase component node."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Component name.")),
		mcp.WithString("kind", mcp.Description("Component kind, e.g. service, library.")),
	), handleCreateComponent(deps))

	s.AddTool(mcp.NewTool("link_component_dependency",
		mcp.WithDescription("Record that one component depends on another."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Dependent component name.")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Depended-on component name.")),
		mcp.WithString("tag", mcp.Description("Free-form label for the dependency, display only.")),
	), handleLinkComponentDependency(deps))

	s.AddTool(mcp.NewTool("analyze_component_impact",
		mcp.WithDescription("Return every component transitively depending on the given component and how many memories describe each."),
		mcp.WithString("component", mcp.Required(), mcp.Description("Component name.")),
	), handleAnalyzeComponentImpact(deps))

	s.AddTool(mcp.NewTool("create_decision",
		mcp.WithDescription("Record an architectural decision with pros, cons, and alternatives considered."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The decision statement.")),
		mcp.WithString("owner_id", mcp.Description("Decision owner; defaults to the caller.")),
		mcp.WithArray("pros", mcp.Description("Reasons in favor.")),
		mcp.WithArray("cons", mcp.Description("Reasons against.")),
		mcp.WithArray("alternatives", mcp.Description("Alternatives considered.")),
		mcp.WithArray("justified_by", mcp.Description("IDs of memories that justify this decision.")),
	), handleCreateDecision(deps))

	s.AddTool(mcp.NewTool("get_decision_rationale",
		mcp.WithDescription("Return a decision plus every memory that justifies it."),
		mcp.WithString("decision_id", mcp.Required(), mcp.Description("The decision's ID.")),
	), handleGetDecisionRationale(deps))
}

func handleAddCodingPreference(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			Text string `json:"text"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.add_coding_preference", err)), nil
		}
		if args.Text == "" {
			return errorResult(apperr.Newf(apperr.BadInput, "gateway.add_coding_preference", "text is required")), nil
		}
		result, err := Ingest(ctx, deps.Client, deps.ChunkCfg, deps.projectID(ctx, req), args.Text)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func handleSearchCodingPreferences(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.search_coding_preferences", err)), nil
		}
		if args.Limit <= 0 {
			args.Limit = 10
		}
		results, err := deps.Client.Search(ctx, SearchInput{Query: args.Query, UserID: deps.projectID(ctx, req), Limit: args.Limit})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]interface{}{"results": results})
	}
}

func handleGetAllCodingPreferences(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		results, err := deps.Client.GetAll(ctx, deps.projectID(ctx, req))
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]interface{}{"results": results})
	}
}

func handleDeleteMemory(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			MemoryID string `json:"memory_id"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.delete_memory", err)), nil
		}
		if args.MemoryID == "" {
			return errorResult(apperr.Newf(apperr.BadInput, "gateway.delete_memory", "memory_id is required")), nil
		}
		if err := deps.Client.Delete(ctx, args.MemoryID, deps.projectID(ctx, req)); err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]bool{"deleted": true})
	}
}

func handleGetMemoryHistory(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			MemoryID string `json:"memory_id"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.get_memory_history", err)), nil
		}
		results, err := deps.Client.History(ctx, args.MemoryID, deps.projectID(ctx, req))
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]interface{}{"results": results})
	}
}

func handleLinkMemories(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			A        string `json:"a"`
			B        string `json:"b"`
			Relation string `json:"relation"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.link_memories", err)), nil
		}
		if args.A == "" || args.B == "" || args.Relation == "" {
			return errorResult(apperr.Newf(apperr.BadInput, "gateway.link_memories", "a, b, and relation are required")), nil
		}
		result, err := deps.Client.LinkMemories(ctx, args.A, args.B, args.Relation)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func handleGetRelatedMemories(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			MemoryID string `json:"memory_id"`
			Depth    int    `json:"depth"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.get_related_memories", err)), nil
		}
		if args.Depth <= 0 {
			args.Depth = 2
		}
		results, err := deps.Client.GetRelatedMemories(ctx, args.MemoryID, args.Depth)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]interface{}{"results": results})
	}
}

func handleAnalyzeMemoryIntelligence(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := deps.Client.AnalyzeMemoryIntelligence(ctx, deps.projectID(ctx, req))
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func handleCreateComponent(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.create_component", err)), nil
		}
		if args.Name == "" {
			return errorResult(apperr.Newf(apperr.BadInput, "gateway.create_component", "name is required")), nil
		}
		result, err := deps.Client.CreateComponent(ctx, args.Name, args.Kind)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func handleLinkComponentDependency(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			From string `json:"from"`
			To   string `json:"to"`
			Tag  string `json:"tag"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.link_component_dependency", err)), nil
		}
		if args.From == "" || args.To == "" {
			return errorResult(apperr.Newf(apperr.BadInput, "gateway.link_component_dependency", "from and to are required")), nil
		}
		result, err := deps.Client.LinkComponentDependency(ctx, args.From, args.To, args.Tag)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func handleAnalyzeComponentImpact(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			Component string `json:"component"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.analyze_component_impact", err)), nil
		}
		result, err := deps.Client.AnalyzeComponentImpact(ctx, args.Component)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func handleCreateDecision(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			Text         string   `json:"text"`
			OwnerID      string   `json:"owner_id"`
			Pros         []string `json:"pros"`
			Cons         []string `json:"cons"`
			Alternatives []string `json:"alternatives"`
			JustifiedBy  []string `json:"justified_by"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.create_decision", err)), nil
		}
		if args.Text == "" {
			return errorResult(apperr.Newf(apperr.BadInput, "gateway.create_decision", "text is required")), nil
		}
		ownerID := args.OwnerID
		if ownerID == "" {
			caller, _ := CallerFromContext(ctx)
			ownerID = caller.UserID
		}
		result, err := deps.Client.CreateDecision(ctx, args.Text, ownerID, args.Pros, args.Cons, args.Alternatives, args.JustifiedBy)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func handleGetDecisionRationale(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[struct {
			DecisionID string `json:"decision_id"`
		}](req)
		if err != nil {
			return errorResult(apperr.New(apperr.BadInput, "gateway.get_decision_rationale", err)), nil
		}
		result, err := deps.Client.GetDecisionRationale(ctx, args.DecisionID)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}
