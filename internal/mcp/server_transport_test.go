package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listToolNames drives the protocol handshake over tr and returns the tool
// names the server advertises.
func listToolNames(ctx context.Context, t *testing.T, tr transport.Interface) []string {
	t.Helper()
	cli := client.NewClient(tr)
	require.NoError(t, cli.Start(ctx))
	t.Cleanup(func() { _ = cli.Close() })

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0.0.1"}
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	_, err := cli.Initialize(ctx, initReq)
	require.NoError(t, err)

	res, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestStreamableHTTPTransport(t *testing.T) {
	ts := httptest.NewServer(server.NewStreamableHTTPServer(New()))
	t.Cleanup(ts.Close)

	cliTr, err := transport.NewStreamableHTTP(ts.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, cliTr.Start(ctx))

	names := listToolNames(ctx, t, cliTr)
	assert.Contains(t, names, "rag_search")
	assert.Contains(t, names, "document_count")
}

func TestSSETransport(t *testing.T) {
	sse := server.NewSSEServer(New(),
		server.WithStaticBasePath("/mcp"),
	)
	mux := http.NewServeMux()
	mux.Handle("/mcp/sse", sse.SSEHandler())
	mux.Handle("/mcp/message", sse.MessageHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cliTr, err := transport.NewSSE(ts.URL + "/mcp/sse")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	names := listToolNames(ctx, t, cliTr)
	assert.Contains(t, names, "rag_search")
	assert.Contains(t, names, "document_count")
}

func TestInProcessTransport(t *testing.T) {
	tr := transport.NewInProcessTransport(New())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, tr.Start(ctx))

	names := listToolNames(ctx, t, tr)
	assert.Contains(t, names, "rag_search")
	assert.Contains(t, names, "document_count")
}
