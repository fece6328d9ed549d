package gateway

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/snorlak1/mem0-server-mcp/internal/authstore"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewMCPServer builds the mcp-go server instance with every spec.md
// §4.1 tool registered, following the teacher's composition-root
// convention of a single New that wires dependencies and returns the
// ready-to-mount server.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"mem0-server-mcp",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Coding memory service: store, search, and reason over persistent coding preferences and architectural decisions."),
	)
	RegisterTools(s, deps)
	return s
}

// NewHandler mounts the HTTP-stream transport at /mcp/ (preferred) and
// the SSE transport at /sse/ (compatibility), both behind Authenticate,
// per spec.md §4.1. Every request on either path must carry the
// X-MCP-Token/X-MCP-UserID headers before mcp-go ever sees it.
func NewHandler(mcpServer *server.MCPServer, authStore authstore.Store) http.Handler {
	streamable := server.NewStreamableHTTPServer(mcpServer, server.WithStreamableHTTPBasePath("/mcp"))
	sse := server.NewSSEServer(mcpServer, server.WithBasePath("/sse"))

	mux := http.NewServeMux()
	mux.Handle("/mcp/", Authenticate(authStore, streamable))
	mux.Handle("/sse/", Authenticate(authStore, sse))
	return mux
}
