package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/Xevion/rustdoc-mcp/internal/config"
	"github.com/Xevion/rustdoc-mcp/internal/logger"
	"github.com/Xevion/rustdoc-mcp/internal/search"
	"github.com/Xevion/rustdoc-mcp/internal/workspace"
)

const (
	// ServerName is the MCP server name
	ServerName = "rustdoc-mcp"
	// ServerVersion is the current server version
	ServerVersion = "0.2.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	manager  *workspace.Manager
	searcher *search.Service
	cfg      config.Config
	log      zerolog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg config.Config, log zerolog.Logger) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	searcher, err := search.New(context.Background(), cfg.IndexPath, logger.Component(log, "search"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search index: %w", err)
	}

	manager := workspace.NewManager(
		workspace.NewCargoDiscoverer(logger.Component(log, "discover")),
		logger.Component(log, "workspace"),
	)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		manager:  manager,
		searcher: searcher,
		cfg:      cfg,
		log:      log,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.searcher.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(setWorkspaceTool(), s.handleSetWorkspace)
	s.mcp.AddTool(resolveItemTool(), s.handleResolveItem)
	s.mcp.AddTool(listChildrenTool(), s.handleListChildren)
	s.mcp.AddTool(listMethodsTool(), s.handleListMethods)
	s.mcp.AddTool(listTraitImplsTool(), s.handleListTraitImpls)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(listCratesTool(), s.handleListCrates)
}
