package fx

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppModule combines all application modules
var AppModule = fx.Options(
	ConfigModule,
	LoggerModule,
	EmbeddingsModule,
	StorageModule,
	EngineModule,
	MCPModule,
	CommandModule,
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),
)

// SupplyConfig turns flag values into the named strings the config module
// consumes. Empty strings fall through to env vars and defaults.
func SupplyConfig(dbPath, backend, embedURL, sourceDir string) fx.Option {
	return fx.Supply(
		fx.Annotate(dbPath, fx.ResultTags(`name:"dbPath"`)),
		fx.Annotate(backend, fx.ResultTags(`name:"backend"`)),
		fx.Annotate(embedURL, fx.ResultTags(`name:"embedURL"`)),
		fx.Annotate(sourceDir, fx.ResultTags(`name:"sourceDir"`)),
	)
}

// NewAppWithConfig creates an Fx app with the given configuration values and
// the MCP lifecycle hook attached. Extra options are appended, typically an
// fx.Populate or fx.Invoke from a command.
func NewAppWithConfig(dbPath, backend, embedURL, sourceDir string, extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		AppModule,
		SupplyConfig(dbPath, backend, embedURL, sourceDir),
		fx.Invoke(func(lc fx.Lifecycle, mcpLifecycle *MCPLifecycle) {
			lc.Append(fx.Hook{
				OnStart: mcpLifecycle.Start,
				OnStop:  mcpLifecycle.Stop,
			})
		}),
	}
	opts = append(opts, extra...)
	return fx.New(opts...)
}
