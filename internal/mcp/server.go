package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/portfolio-buddy/internal/assistant"
	"github.com/bull/portfolio-buddy/internal/indexer"
	"github.com/bull/portfolio-buddy/internal/storage"
)

// Asker answers a single question.
type Asker interface {
	Ask(ctx context.Context, question string) (*assistant.Answer, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Name      string // Implementation name advertised to clients
	Version   string
	Assistant Asker
	Store     storage.VectorStore
	Index     *indexer.IndexResult
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}
	if impl.Name == "" {
		impl.Name = "portfolio-buddy"
	}
	if impl.Version == "" {
		impl.Version = "v0.1.0"
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_buddy",
		Description: "Ask Buddy a question about the candidate's background, experience, skills or contact details. Answers come only from the candidate's biography.",
	}, makeAskHandler(cfg.Assistant))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the status of the biography index: source document, chunk count, embedding model and vector store health.",
	}, makeStatusHandler(cfg.Store, cfg.Index))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the same tools over Streamable HTTP. With stateless set
// no sessions are kept; the tools never call back into the client.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Stateless: stateless})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
