package fx

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	"github.com/docrag/docrag/internal/embeddings"
	"github.com/docrag/docrag/internal/engine"
	"github.com/docrag/docrag/internal/factory"
	appmcp "github.com/docrag/docrag/internal/mcp"
	"github.com/docrag/docrag/internal/storage"
)

// MCPParams represents dependencies for MCP server
type MCPParams struct {
	fx.In

	Config   *Config
	Embedder embeddings.Embedder
	Store    storage.ChunkStore
	Engine   *engine.Engine
	Pipeline *engine.Pipeline
}

// NewMCPServer creates a new MCP server instance over the shared components
func NewMCPServer(params MCPParams) *server.MCPServer {
	components := &factory.Components{
		Embedder: params.Embedder,
		Store:    params.Store,
		Engine:   params.Engine,
		Pipeline: params.Pipeline,
	}
	return appmcp.NewFromComponents(components, appmcp.ServerOptions{
		DB:             params.Config.DBPath,
		Backend:        params.Config.Backend,
		EmbedURL:       params.Config.EmbedURL,
		PrefixQuery:    params.Config.PrefixQuery,
		PrefixDocument: params.Config.PrefixDocument,
	})
}

// MCPLifecycle manages MCP server lifecycle
type MCPLifecycle struct {
	server   *server.MCPServer
	pipeline *engine.Pipeline
	config   *Config
}

// NewMCPLifecycle creates a new MCP lifecycle manager
func NewMCPLifecycle(srv *server.MCPServer, pipeline *engine.Pipeline, config *Config) *MCPLifecycle {
	return &MCPLifecycle{
		server:   srv,
		pipeline: pipeline,
		config:   config,
	}
}

// Start pre-indexes the source directory if one is configured
func (m *MCPLifecycle) Start(ctx context.Context) error {
	if m.config.SourceDir != "" {
		if _, err := m.pipeline.IndexDirectory(ctx, m.config.SourceDir, nil); err != nil {
			return fmt.Errorf("pre-index source dir failed: %w", err)
		}
	}
	return nil
}

// Stop handles graceful shutdown
func (m *MCPLifecycle) Stop(ctx context.Context) error {
	// store cleanup is handled by the storage module's stop hook
	return nil
}

// MCPModule provides MCP server components
var MCPModule = fx.Module("mcp",
	fx.Provide(
		NewMCPServer,
		NewMCPLifecycle,
	),
)
