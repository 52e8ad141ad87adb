// Package mcp provides the Model Context Protocol server for partmatch.
//
// The server exposes catalog search over a loaded vector index so MCP
// clients can resolve free-text part descriptions to catalog products.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/asteroid-belt/partmatch/internal/search"
	"github.com/asteroid-belt/partmatch/internal/telemetry"
	"github.com/asteroid-belt/partmatch/pkg/version"
)

// Server wraps the MCP server with partmatch tools.
type Server struct {
	search    *search.Service
	server    *server.MCPServer
	telemetry telemetry.Client
}

// NewServer creates a new MCP server instance. The search service's index
// must already be loaded.
func NewServer(svc *search.Service, tc telemetry.Client) *Server {
	s := &Server{
		search:    svc,
		telemetry: tc,
	}

	s.server = server.NewMCPServer(
		"partmatch",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false), // subscribe=false for now
	)

	s.registerTools()
	s.registerResources()

	return s
}

// Serve starts the MCP server over stdio.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.server)
}

// registerTools adds all partmatch tools to the MCP server.
func (s *Server) registerTools() {
	s.server.AddTool(searchTool(), s.handleSearch)
	s.server.AddTool(lookupTool(), s.handleLookup)
	s.server.AddTool(indexStatsTool(), s.handleIndexStats)
}

// registerResources adds all partmatch resources to the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			resourcePrefix+"product/{row}",
			"Catalog product",
			mcp.WithTemplateDescription("JSON metadata of the catalog product at a row"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleProductResource,
	)
}
