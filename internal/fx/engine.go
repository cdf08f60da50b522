package fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/docrag/docrag/internal/chunker"
	"github.com/docrag/docrag/internal/embeddings"
	"github.com/docrag/docrag/internal/engine"
	"github.com/docrag/docrag/internal/storage"
)

// EngineParams represents dependencies for the retrieval engine
type EngineParams struct {
	fx.In

	Embedder embeddings.Embedder
	Store    storage.ChunkStore
	Logger   *zap.Logger
}

// NewEngine creates the retrieval engine
func NewEngine(params EngineParams) *engine.Engine {
	return engine.New(params.Embedder, params.Store, params.Logger)
}

// NewChunker creates the text chunker with configured window sizes
func NewChunker(config *Config) chunker.Chunker {
	return chunker.NewText(config.ChunkSize, config.ChunkOverlap)
}

// PipelineParams represents dependencies for the indexing pipeline
type PipelineParams struct {
	fx.In

	Engine  *engine.Engine
	Chunker chunker.Chunker
	Logger  *zap.Logger
}

// NewPipeline creates the directory indexing pipeline
func NewPipeline(params PipelineParams) *engine.Pipeline {
	return engine.NewPipeline(params.Engine, params.Chunker, params.Logger, engine.PipelineOptions{})
}

// EngineModule provides the engine and indexing pipeline
var EngineModule = fx.Module("engine",
	fx.Provide(
		NewEngine,
		NewChunker,
		NewPipeline,
	),
)
