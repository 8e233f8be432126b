// Package mcp exposes read-only salon data over the Model Context
// Protocol so external AI agents can look up customers, skill stats and
// inspiration images without going through the conversation API.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/salonkit/salonkit/internal/abilities"
	"github.com/salonkit/salonkit/internal/customers"
	"github.com/salonkit/salonkit/internal/inspirations"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes salon lookup tools. All tools
// are scoped to a single artist fixed at construction; MCP has no
// per-request identity.
type Server struct {
	ownerID      string
	customers    *customers.Store
	abilities    *abilities.Store
	inspirations *inspirations.Store
	mcp          *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(ownerID string, customerStore *customers.Store, abilityStore *abilities.Store, inspirationStore *inspirations.Store) *Server {
	s := &Server{
		ownerID:      ownerID,
		customers:    customerStore,
		abilities:    abilityStore,
		inspirations: inspirationStore,
	}

	s.mcp = server.NewMCPServer(
		"salonkit",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchCustomerTool, s.handleSearchCustomer)
	s.mcp.AddTool(getCustomerDetailTool, s.handleGetCustomerDetail)
	s.mcp.AddTool(getAbilitySummaryTool, s.handleGetAbilitySummary)
	s.mcp.AddTool(listInspirationsTool, s.handleListInspirations)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
