package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. The law tools are pure
	// request/response with no server-to-client calls, so stateless
	// works; default is stateful for clients that expect sessions.
	Stateless bool
}

// NewHTTPHandler serves the MCP server over Streamable HTTP. Mount it on
// a mux path alongside the health and landing handlers:
//
//	mux := http.NewServeMux()
//	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
//	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
//	http.ListenAndServe(":8080", mux)
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	sdkOpts := &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, sdkOpts)
}
