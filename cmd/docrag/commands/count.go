package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	appfx "github.com/docrag/docrag/internal/fx"
)

func NewCountCommand() *cobra.Command {
	var (
		dbPath  string
		backend string
	)

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of indexed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				appfx.AppModule,
				appfx.SupplyConfig(dbPath, backend, "", ""),
				fx.Invoke(func(runner *appfx.CommandRunner) error {
					return runner.RunCount()
				}),
			)
			return runApp(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite DB path (default: DB_PATH env or docrag.db)")
	cmd.Flags().StringVar(&backend, "backend", "", "Store backend: sqlvec, sqlite or memory")

	return cmd
}
