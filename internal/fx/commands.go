package fx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/fx"

	"github.com/docrag/docrag/internal/engine"
	"github.com/docrag/docrag/internal/models"
)

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config    *Config
	engine    *engine.Engine
	pipeline  *engine.Pipeline
	mcpServer *server.MCPServer
}

// CommandParams represents dependencies for command runner
type CommandParams struct {
	fx.In

	Config    *Config
	Engine    *engine.Engine    `optional:"true"`
	Pipeline  *engine.Pipeline  `optional:"true"`
	MCPServer *server.MCPServer `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params CommandParams) *CommandRunner {
	return &CommandRunner{
		config:    params.Config,
		engine:    params.Engine,
		pipeline:  params.Pipeline,
		mcpServer: params.MCPServer,
	}
}

// RunIndex executes the index command with a progress bar over the pipeline's
// progress channel.
func (r *CommandRunner) RunIndex(ctx context.Context, sourceDir string) error {
	if r.pipeline == nil {
		return fmt.Errorf("indexing pipeline not available")
	}

	progress := make(chan models.IndexProgress, 16)
	var summary models.IndexSummary
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = r.pipeline.IndexDirectory(ctx, sourceDir, progress)
	}()

	var bar *progressbar.ProgressBar
	for ev := range progress {
		switch ev.Stage {
		case models.IndexStageScan:
			bar = progressbar.NewOptions(ev.TotalFiles,
				progressbar.OptionSetDescription("indexing"),
				progressbar.OptionShowCount(),
			)
		case models.IndexStageEmbed:
			if bar != nil {
				_ = bar.Set(ev.IndexedFiles + ev.SkippedFiles)
			}
		case models.IndexStageDone:
			if bar != nil {
				_ = bar.Finish()
			}
		}
	}
	<-done
	if runErr != nil {
		return runErr
	}

	fmt.Printf("\nindexed %d files (%d chunks), skipped %d\n",
		summary.IndexedFiles, summary.TotalChunks, summary.SkippedFiles)
	for _, fe := range summary.Errors {
		fmt.Printf("  %s: %v\n", fe.Path, fe.Err)
	}
	return nil
}

// RunSearch executes a similarity search and prints the results
func (r *CommandRunner) RunSearch(ctx context.Context, query string, opts engine.SearchOptions) error {
	if r.engine == nil {
		return fmt.Errorf("engine not available")
	}

	results, err := r.engine.Search(ctx, query, opts)
	if errors.Is(err, engine.ErrEmptyIndex) {
		return fmt.Errorf("the index is empty: run `docrag index` before searching")
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matching chunks")
		return nil
	}

	for _, res := range results {
		tag := ""
		switch {
		case res.IsFullDocument:
			tag = " (full document)"
		case res.IsContext:
			tag = " (context)"
		}
		fmt.Printf("[%.3f] %s#%d%s\n%s\n\n", res.Similarity, res.DocumentID, res.ChunkIndex, tag, res.Content)
	}
	return nil
}

// RunCount prints the number of indexed documents
func (r *CommandRunner) RunCount() error {
	if r.engine == nil {
		return fmt.Errorf("engine not available")
	}
	count, err := r.engine.DocumentCount()
	if err != nil {
		return err
	}
	fmt.Printf("%d documents\n", count)
	return nil
}

// RunPrune removes indexed documents whose source files no longer exist
func (r *CommandRunner) RunPrune(ctx context.Context) error {
	if r.pipeline == nil {
		return fmt.Errorf("indexing pipeline not available")
	}
	removed, err := r.pipeline.Prune(ctx)
	if err != nil {
		return err
	}
	for _, id := range removed {
		fmt.Printf("pruned %s\n", id)
	}
	fmt.Printf("pruned %d documents\n", len(removed))
	return nil
}

// RunMCPServer executes the MCP server on the requested transport
func (r *CommandRunner) RunMCPServer(transport, address string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}

	switch transport {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http":
		// Streamable HTTP server on address, default ":8080" if empty
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		httpSrv := server.NewStreamableHTTPServer(r.mcpServer)
		return httpSrv.Start(addr)
	case "sse":
		// SSE server exposes two endpoints; default base path "/mcp"
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(addr)
	case "http-handler":
		// Advanced: mount handlers on default net/http mux
		// address must be provided
		if address == "" {
			return fmt.Errorf("--address is required for http-handler mode, e.g. :8080")
		}
		sh := server.NewStreamableHTTPServer(r.mcpServer)
		http.Handle("/mcp", sh)
		return http.ListenAndServe(address, nil)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse, http-handler)",
			transport,
		)
	}
}

// CommandModule provides command runner
var CommandModule = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
