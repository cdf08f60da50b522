package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/docrag/docrag/internal/constants"
	appmcp "github.com/docrag/docrag/internal/mcp"
)

const (
	transportStdio  = "stdio"
	transportHTTP   = "http"
	transportSSE    = "sse"
	transportInproc = "inproc"
)

// NewMCPClientCommand creates commands for connecting to and interacting with MCP servers
func NewMCPClientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-client",
		Short: "MCP client commands",
		Long:  "Commands for connecting to and interacting with MCP servers",
	}

	cmd.AddCommand(
		newMCPCallCommand(),
		newMCPListToolsCommand(),
		newMCPSearchCommand(),
		newMCPCountCommand(),
	)

	return cmd
}

func newMCPCallCommand() *cobra.Command {
	var (
		db        string
		embedURL  string
		transport string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "call <tool_name> [args...]",
		Short: "Call a specific MCP tool",
		Long: `Call a specific MCP tool with arguments.
Arguments should be provided as key=value pairs.

Example:
  docrag mcp-client call rag_search query="replication protocol" limit=3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolName := args[0]
			toolArgs := make(map[string]any)

			// Parse key=value arguments
			for _, arg := range args[1:] {
				parts := strings.SplitN(arg, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid argument format: %s (expected key=value)", arg)
				}
				key, value := parts[0], parts[1]

				// Try to parse as number, bool, or keep as string
				if val, err := strconv.Atoi(value); err == nil {
					toolArgs[key] = val
				} else if val, err := strconv.ParseBool(value); err == nil {
					toolArgs[key] = val
				} else {
					toolArgs[key] = value
				}
			}

			// Add global options to args if not already specified
			if db != "" && toolArgs["db"] == nil {
				toolArgs["db"] = db
			}
			if embedURL != "" && toolArgs["embed_url"] == nil {
				toolArgs["embed_url"] = embedURL
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			opts := appmcp.ServerOptions{DB: db, EmbedURL: embedURL}
			client, err := createMCPClient(ctx, transport, address, opts)
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			result, err := client.Call(ctx, toolName, toolArgs)
			if err != nil {
				return fmt.Errorf("call tool failed: %w", err)
			}

			// Pretty print result
			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("format result failed: %w", err)
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&db, "db", "d", "", "SQLite database path")
	cmd.Flags().StringVar(&embedURL, "embed-url", "", "embed API address")
	cmd.Flags().
		StringVarP(&transport, "transport", "t", transportStdio, "transport (stdio, http, sse, inproc)")
	cmd.Flags().
		StringVarP(&address, "address", "a", "", "server URL (http/sse), ignored for stdio/inproc")

	return cmd
}

func newMCPListToolsCommand() *cobra.Command {
	var (
		transport string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "list-tools",
		Short: "List available MCP tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := createMCPClient(ctx, transport, address, appmcp.ServerOptions{})
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			result, err := client.ListTools(ctx, mcp.ListToolsRequest{})
			if err != nil {
				return fmt.Errorf("failed to list tools: %w", err)
			}

			if len(result.Tools) == 0 {
				fmt.Println("No tools available")
				return nil
			}

			fmt.Printf("Available MCP tools (%d):\n\n", len(result.Tools))
			for i, tool := range result.Tools {
				fmt.Printf("%d. %s\n", i+1, tool.Name)
				if tool.Description != "" {
					fmt.Printf("   Description: %s\n", tool.Description)
				}
				if len(tool.InputSchema.Properties) > 0 {
					fmt.Printf("   Parameters:\n")
					for name, prop := range tool.InputSchema.Properties {
						required := ""
						if slices.Contains(tool.InputSchema.Required, name) {
							required = " (required)"
						}
						if propMap, ok := prop.(map[string]any); ok {
							if desc, ok := propMap["description"].(string); ok {
								fmt.Printf("     - %s%s: %s\n", name, required, desc)
								continue
							}
						}
						fmt.Printf("     - %s%s\n", name, required)
					}
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().
		StringVarP(&transport, "transport", "t", transportStdio, "transport (stdio, http, sse, inproc)")
	cmd.Flags().
		StringVarP(&address, "address", "a", "", "server URL (http/sse), ignored for stdio/inproc")
	return cmd
}

func newMCPSearchCommand() *cobra.Command {
	var (
		db           string
		embedURL     string
		limit        int
		withContext  bool
		contextSize  int
		fullDocument bool
		transport    string
		address      string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents through the MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			opts := appmcp.ServerOptions{DB: db, EmbedURL: embedURL}
			client, err := createMCPClient(ctx, transport, address, opts)
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			toolArgs := map[string]any{
				"query":         query,
				"limit":         limit,
				"with_context":  withContext,
				"context_size":  contextSize,
				"full_document": fullDocument,
			}
			if db != "" {
				toolArgs["db"] = db
			}
			if embedURL != "" {
				toolArgs["embed_url"] = embedURL
			}

			result, err := client.Call(ctx, "rag_search", toolArgs)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("format result failed: %w", err)
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&db, "db", "d", "", "SQLite database path")
	cmd.Flags().
		StringVar(&embedURL, "embed-url", constants.DefaultEmbedURL, "embed API address")
	cmd.Flags().IntVarP(&limit, "limit", "k", constants.DefaultLimit, "number of results")
	cmd.Flags().BoolVar(&withContext, "with-context", true, "include neighboring chunks")
	cmd.Flags().IntVar(&contextSize, "context-size", constants.DefaultContextSize, "neighbor chunks per side")
	cmd.Flags().BoolVar(&fullDocument, "full-document", false, "return whole reconstructed documents")
	cmd.Flags().
		StringVarP(&transport, "transport", "t", transportStdio, "transport (stdio, http, sse, inproc)")
	cmd.Flags().
		StringVarP(&address, "address", "a", "", "server URL (http/sse), ignored for stdio/inproc")

	return cmd
}

func newMCPCountCommand() *cobra.Command {
	var (
		db        string
		transport string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Get the document count through the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := createMCPClient(ctx, transport, address, appmcp.ServerOptions{DB: db})
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			toolArgs := map[string]any{}
			if db != "" {
				toolArgs["db"] = db
			}

			result, err := client.Call(ctx, "document_count", toolArgs)
			if err != nil {
				return fmt.Errorf("count failed: %w", err)
			}

			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("format result failed: %w", err)
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&db, "db", "d", "", "SQLite database path")
	cmd.Flags().
		StringVarP(&transport, "transport", "t", transportStdio, "transport (stdio, http, sse, inproc)")
	cmd.Flags().
		StringVarP(&address, "address", "a", "", "server URL (http/sse), ignored for stdio/inproc")

	return cmd
}

func createMCPClient(
	ctx context.Context,
	transport, address string,
	opts appmcp.ServerOptions,
) (*appmcp.Client, error) {
	switch transport {
	case transportStdio:
		return appmcp.NewStdioClientWithOptions(ctx, opts)
	case transportHTTP:
		if address == "" {
			address = "http://127.0.0.1:8080/mcp"
		}
		return appmcp.NewHTTPClient(ctx, address)
	case transportSSE:
		if address == "" {
			address = "http://127.0.0.1:8080/mcp/sse"
		}
		return appmcp.NewSSEClient(ctx, address)
	case transportInproc:
		return appmcp.NewInProcessClient(ctx, opts)
	default:
		return nil, fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse, inproc)",
			transport,
		)
	}
}
