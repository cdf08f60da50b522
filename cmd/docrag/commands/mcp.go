package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	appfx "github.com/docrag/docrag/internal/fx"
)

// NewMCPServeCommand starts an MCP server that exposes the retrieval tools.
func NewMCPServeCommand() *cobra.Command {
	var (
		sourceDir string
		db        string
		backend   string
		embedURL  string
		transport string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long:  "Run MCP server, provide document retrieval tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var runner *appfx.CommandRunner
			app := appfx.NewAppWithConfig(db, backend, embedURL, sourceDir,
				fx.Populate(&runner),
			)

			// Start runs the pre-index lifecycle hook; serving then blocks
			// until the transport shuts down.
			if err := app.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}
			serveErr := runner.RunMCPServer(transport, address)

			stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
			defer cancel()
			if err := app.Stop(stopCtx); err != nil && serveErr == nil {
				serveErr = err
			}
			return serveErr
		},
	}

	cmd.Flags().StringVarP(&sourceDir, "source-dir", "s", "", "directory to pre-index on startup")
	cmd.Flags().StringVarP(&db, "db", "d", "", "SQLite database path")
	cmd.Flags().StringVar(&backend, "backend", "", "store backend (sqlvec, sqlite, memory)")
	cmd.Flags().StringVar(&embedURL, "embed-url", "", "embed API address")
	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse, http-handler)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address (http modes), e.g. :8080")

	return cmd
}
