package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/docrag/docrag/internal/constants"
	"github.com/docrag/docrag/internal/engine"
	appfx "github.com/docrag/docrag/internal/fx"
)

func NewSearchCommand() *cobra.Command {
	var (
		dbPath       string
		backend      string
		embedURL     string
		limit        int
		withContext  bool
		contextSize  int
		fullDocument bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed documents by similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			opts := engine.SearchOptions{
				Limit:        limit,
				WithContext:  withContext,
				ContextSize:  contextSize,
				FullDocument: fullDocument,
			}

			app := fx.New(
				appfx.AppModule,
				appfx.SupplyConfig(dbPath, backend, embedURL, ""),
				fx.Invoke(func(runner *appfx.CommandRunner) error {
					return runner.RunSearch(cmd.Context(), query, opts)
				}),
			)
			return runApp(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite DB path (default: DB_PATH env or docrag.db)")
	cmd.Flags().StringVar(&backend, "backend", "", "Store backend: sqlvec, sqlite or memory")
	cmd.Flags().StringVar(&embedURL, "embed-url", "", "Embedding API URL")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultLimit, "Max number of matched chunks")
	cmd.Flags().BoolVar(&withContext, "with-context", true, "Include neighboring chunks around each match")
	cmd.Flags().IntVar(&contextSize, "context-size", constants.DefaultContextSize, "Neighbor chunks on each side of a match")
	cmd.Flags().BoolVar(&fullDocument, "full-document", false, "Return whole reconstructed documents")

	return cmd
}
