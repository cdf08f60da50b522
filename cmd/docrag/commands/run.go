package commands

import (
	"context"
	"fmt"

	"go.uber.org/fx"
)

// runApp starts the fx app, whose fx.Invoke does the actual work, and stops it
// again. One-shot commands use this; the mcp command blocks inside its invoke.
func runApp(ctx context.Context, app *fx.App) error {
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return nil
}
