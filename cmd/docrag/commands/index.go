package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	appfx "github.com/docrag/docrag/internal/fx"
)

func NewIndexCommand() *cobra.Command {
	var (
		sourceDir string
		dbPath    string
		backend   string
		embedURL  string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a directory of documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceDir == "" {
				return fmt.Errorf("--source-dir is required")
			}

			app := fx.New(
				appfx.AppModule,
				appfx.SupplyConfig(dbPath, backend, embedURL, ""),
				fx.Invoke(func(runner *appfx.CommandRunner) error {
					return runner.RunIndex(cmd.Context(), sourceDir)
				}),
			)
			return runApp(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source-dir", "", "Directory of documents to index")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite DB path (default: DB_PATH env or docrag.db)")
	cmd.Flags().StringVar(&backend, "backend", "", "Store backend: sqlvec, sqlite or memory")
	cmd.Flags().StringVar(&embedURL, "embed-url", "", "Embedding API URL")

	return cmd
}
