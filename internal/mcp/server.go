package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with the pipeline's query dependencies.
type Server struct {
	server    *mcp.Server
	retriever Retriever
	composer  Composer
	index     IndexReader
}

// Config holds server dependencies.
type Config struct {
	Retriever Retriever
	Composer  Composer
	Index     IndexReader
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "pakistan-law-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_law",
		Description: "Answer a question about Pakistani law from the indexed statutes. Cites the sections or articles the answer is based on.",
	}, makeAskHandler(cfg.Retriever, cfg.Composer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup_section",
		Description: "Retrieve the full text of a specific section or article by number (e.g. 302, 489-F, article 19). Optionally restrict to one body of law.",
	}, makeLookupHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_passages",
		Description: "Semantic search over all indexed Pakistani statutes. Returns ranked passages with citations; use lookup_section when the exact number is known.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Get the current status of the law index: collection name, chunk counts per document, and the last indexing time.",
	}, makeStatusHandler(cfg.Index))

	return &Server{
		server:    server,
		retriever: cfg.Retriever,
		composer:  cfg.Composer,
		index:     cfg.Index,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
