package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client wraps an MCP client aimed at our own server.
type Client struct{ c *client.Client }

// NewStdioClient creates and initializes an MCP client that launches this binary with mcp.
func NewStdioClient(ctx context.Context) (*Client, error) {
	return NewStdioClientWithOptions(ctx, ServerOptions{})
}

// NewStdioClientWithOptions launches the server binary with flags derived from
// the given options.
func NewStdioClientWithOptions(ctx context.Context, opts ServerOptions) (*Client, error) {
	args := []string{"mcp"}
	if opts.DB != "" {
		args = append(args, "--db", opts.DB)
	}
	if opts.EmbedURL != "" {
		args = append(args, "--embed-url", opts.EmbedURL)
	}
	if opts.SourceDir != "" {
		args = append(args, "--source-dir", opts.SourceDir)
	}
	tr := transport.NewStdio("docrag", nil, args...)
	return initClient(ctx, client.NewClient(tr))
}

// NewHTTPClient connects to a running server over streamable HTTP.
func NewHTTPClient(ctx context.Context, url string) (*Client, error) {
	tr, err := transport.NewStreamableHTTP(url)
	if err != nil {
		return nil, fmt.Errorf("new http transport: %w", err)
	}
	if err := tr.Start(ctx); err != nil {
		return nil, fmt.Errorf("start http transport: %w", err)
	}
	return initClient(ctx, client.NewClient(tr))
}

// NewSSEClient connects to a running server over SSE.
func NewSSEClient(ctx context.Context, url string) (*Client, error) {
	tr, err := transport.NewSSE(url)
	if err != nil {
		return nil, fmt.Errorf("new sse transport: %w", err)
	}
	return initClient(ctx, client.NewClient(tr))
}

// NewInProcessClient runs the server inside this process, no child process or
// network involved.
func NewInProcessClient(ctx context.Context, opts ServerOptions) (*Client, error) {
	s := NewWithOptions(opts)
	tr := transport.NewInProcessTransport(s)
	return initClient(ctx, client.NewClient(tr))
}

func initClient(ctx context.Context, cli *client.Client) (*Client, error) {
	ctxStart, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cli.Start(ctxStart); err != nil {
		return nil, fmt.Errorf("start mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "docrag-cli", Version: "0.1.0"}
	initReq.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := cli.Initialize(ctx, initReq); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("init mcp client: %w", err)
	}

	return &Client{c: cli}, nil
}

func (c *Client) Close() error { return c.c.Close() }

func (c *Client) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return c.c.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}})
}

func (c *Client) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return c.c.ListTools(ctx, req)
}
