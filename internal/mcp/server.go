package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/docrag/docrag/internal/constants"
	"github.com/docrag/docrag/internal/engine"
	"github.com/docrag/docrag/internal/factory"
	"github.com/docrag/docrag/internal/models"
)

// ServerOptions contains configuration for the MCP server
type ServerOptions struct {
	DB             string // SQLite database path
	Backend        string // Store backend (sqlvec, sqlite, memory)
	EmbedURL       string // Embedding API URL
	SourceDir      string // Directory to pre-index on startup
	PrefixQuery    string
	PrefixDocument string
}

// New returns an MCP server exposing the retrieval tools with default options.
func New() *server.MCPServer {
	return NewWithOptions(ServerOptions{})
}

// Server wraps an MCP server with configuration options
type Server struct {
	opts       ServerOptions
	server     *server.MCPServer
	factory    *factory.ComponentFactory
	components *factory.Components
}

// NewFromComponents returns an MCP server backed by already constructed
// components (fx wiring); it does not open stores of its own.
func NewFromComponents(components *factory.Components, opts ServerOptions) *server.MCPServer {
	if opts.EmbedURL == "" {
		opts.EmbedURL = constants.DefaultEmbedURL
	}
	srv := &Server{
		opts:       opts,
		components: components,
		server: server.NewMCPServer(
			"docrag/mcp",
			"0.1.0",
			server.WithToolCapabilities(true),
		),
	}
	srv.server.AddTool(newRagSearchTool(), srv.handleRagSearch)
	srv.server.AddTool(newDocumentCountTool(), srv.handleDocumentCount)
	return srv.server
}

// NewWithOptions returns an MCP server with the specified options.
// If SourceDir is specified, the server will pre-index it on startup.
func NewWithOptions(opts ServerOptions) *server.MCPServer {
	if opts.EmbedURL == "" {
		opts.EmbedURL = constants.DefaultEmbedURL
	}

	srv := &Server{
		opts: opts,
		server: server.NewMCPServer(
			"docrag/mcp",
			"0.1.0",
			server.WithToolCapabilities(true),
		),
	}

	// Initialize shared components if DB is configured
	if opts.DB != "" {
		if err := srv.initComponents(); err != nil {
			log.Printf("initialize components failed: %v", err)
		}
	}

	srv.server.AddTool(newRagSearchTool(), srv.handleRagSearch)
	srv.server.AddTool(newDocumentCountTool(), srv.handleDocumentCount)

	if opts.SourceDir != "" {
		log.Printf("pre-index source dir: %s", opts.SourceDir)
		if err := srv.preIndex(); err != nil {
			log.Printf("pre-index failed: %v", err)
		} else {
			log.Printf("pre-index completed")
		}
	}

	return srv.server
}

// initComponents initializes shared components that can be reused across requests
func (srv *Server) initComponents() error {
	if srv.opts.DB == "" {
		return fmt.Errorf("database path must be specified")
	}

	srv.factory = factory.NewComponentFactory(factory.ComponentConfig{
		DBPath:         srv.opts.DB,
		Backend:        srv.opts.Backend,
		EmbedURL:       srv.opts.EmbedURL,
		PrefixQuery:    srv.opts.PrefixQuery,
		PrefixDocument: srv.opts.PrefixDocument,
	})

	components, err := srv.factory.CreateComponents()
	if err != nil {
		return fmt.Errorf("initialize components failed: %w", err)
	}
	srv.components = components

	return nil
}

// Cleanup releases resources held by the server
func (srv *Server) Cleanup() error {
	if srv.components != nil {
		return srv.components.Cleanup()
	}
	return nil
}

// preIndex indexes the configured source directory using shared components
func (srv *Server) preIndex() error {
	if srv.factory == nil || srv.components == nil {
		return fmt.Errorf("components not initialized")
	}
	_, err := srv.components.Pipeline.IndexDirectory(context.Background(), srv.opts.SourceDir, nil)
	return err
}

// Tool definitions
func newRagSearchTool() mcp.Tool {
	return mcp.NewTool(
		"rag_search",
		mcp.WithDescription("Retrieve indexed document chunks most similar to a natural language query"),
		mcp.WithString("query", mcp.Description("Natural language query"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Max number of matched chunks"), mcp.DefaultNumber(constants.DefaultLimit)),
		mcp.WithBoolean(
			"with_context",
			mcp.Description("Include neighboring chunks around each match"),
			mcp.DefaultBool(true),
		),
		mcp.WithNumber(
			"context_size",
			mcp.Description("Neighbor chunks on each side of a match"),
			mcp.DefaultNumber(constants.DefaultContextSize),
		),
		mcp.WithBoolean(
			"full_document",
			mcp.Description("Return the whole reconstructed document instead of chunk context"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("db", mcp.Description("SQLite DB path override")),
		mcp.WithString("embed_url", mcp.Description("Embedding API URL override")),
	)
}

func newDocumentCountTool() mcp.Tool {
	return mcp.NewTool(
		"document_count",
		mcp.WithDescription("Number of documents in the index"),
		mcp.WithString("db", mcp.Description("SQLite DB path override")),
	)
}

// searchResponse is the structured payload of a rag_search call.
type searchResponse struct {
	Results []models.SearchResult `json:"results"`
	Message string                `json:"message,omitempty"`
}

// Handlers
func (srv *Server) handleRagSearch(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := engine.SearchOptions{
		Limit:        req.GetInt("limit", constants.DefaultLimit),
		WithContext:  req.GetBool("with_context", true),
		ContextSize:  req.GetInt("context_size", constants.DefaultContextSize),
		FullDocument: req.GetBool("full_document", false),
	}

	dbPath := req.GetString("db", srv.opts.DB)
	embURL := req.GetString("embed_url", srv.opts.EmbedURL)

	// If using custom config, create temporary components
	if dbPath != srv.opts.DB || embURL != srv.opts.EmbedURL {
		return srv.handleRagSearchWithCustomConfig(ctx, query, dbPath, embURL, opts)
	}

	if srv.components == nil || srv.components.Engine == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}
	return runSearch(ctx, srv.components.Engine, query, opts)
}

// handleRagSearchWithCustomConfig handles rag_search with custom db/embed URL
func (srv *Server) handleRagSearchWithCustomConfig(
	ctx context.Context,
	query, dbPath, embURL string,
	opts engine.SearchOptions,
) (*mcp.CallToolResult, error) {
	if dbPath == "" {
		return mcp.NewToolResultError(
			"database path must be specified (through parameters or server configuration)",
		), nil
	}

	f := factory.NewComponentFactory(factory.ComponentConfig{
		DBPath:         dbPath,
		Backend:        srv.opts.Backend,
		EmbedURL:       embURL,
		PrefixQuery:    srv.opts.PrefixQuery,
		PrefixDocument: srv.opts.PrefixDocument,
	})
	components, err := f.CreateComponents()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open store failed: %v", err)), nil
	}
	defer components.Cleanup() //nolint:errcheck

	return runSearch(ctx, components.Engine, query, opts)
}

func runSearch(
	ctx context.Context,
	eng *engine.Engine,
	query string,
	opts engine.SearchOptions,
) (*mcp.CallToolResult, error) {
	results, err := eng.Search(ctx, query, opts)
	if errors.Is(err, engine.ErrEmptyIndex) {
		return mcp.NewToolResultError(
			"the index is empty: index documents with `docrag index` before searching",
		), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp := searchResponse{Results: results}
	if len(results) == 0 {
		resp.Message = "no matching chunks"
	}
	return mcp.NewToolResultStructuredOnly(resp), nil
}

func (srv *Server) handleDocumentCount(
	_ context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	dbPath := req.GetString("db", srv.opts.DB)

	// If using custom DB, create temporary components
	if dbPath != srv.opts.DB {
		return srv.handleDocumentCountWithCustomConfig(dbPath)
	}

	if srv.components == nil || srv.components.Engine == nil {
		return mcp.NewToolResultError("components not initialized"), nil
	}
	count, err := srv.components.Engine.DocumentCount()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"document_count": count}), nil
}

// handleDocumentCountWithCustomConfig handles document_count with custom db
func (srv *Server) handleDocumentCountWithCustomConfig(dbPath string) (*mcp.CallToolResult, error) {
	if dbPath == "" {
		return mcp.NewToolResultError(
			"database path must be specified (through parameters or server configuration)",
		), nil
	}

	f := factory.NewComponentFactory(factory.ComponentConfig{
		DBPath:  dbPath,
		Backend: srv.opts.Backend,
	})
	components, err := f.CreateComponents()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open store failed: %v", err)), nil
	}
	defer components.Cleanup() //nolint:errcheck

	count, err := components.Engine.DocumentCount()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"document_count": count}), nil
}
