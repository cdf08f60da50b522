package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/docrag/docrag/internal/chunker"
	"github.com/docrag/docrag/internal/constants"
	"github.com/docrag/docrag/internal/embeddings"
	"github.com/docrag/docrag/internal/engine"
	"github.com/docrag/docrag/internal/storage"
	"github.com/docrag/docrag/internal/storage/memory"
	"github.com/docrag/docrag/internal/storage/sqlite"
	"github.com/docrag/docrag/internal/storage/sqlvec"
)

// ComponentConfig holds configuration for creating components
type ComponentConfig struct {
	DBPath         string
	Backend        string // sqlvec, sqlite or memory
	EmbedURL       string
	Dimension      int // 0 means infer from the first indexed document
	ChunkSize      int
	ChunkOverlap   int
	PrefixQuery    string
	PrefixDocument string
	Logger         *zap.Logger
}

// Components holds all the main components
type Components struct {
	Embedder embeddings.Embedder
	Store    storage.ChunkStore
	Engine   *engine.Engine
	Pipeline *engine.Pipeline
}

// ComponentFactory creates and manages component instances
type ComponentFactory struct {
	config ComponentConfig
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(config ComponentConfig) *ComponentFactory {
	if config.EmbedURL == "" {
		config.EmbedURL = constants.DefaultEmbedURL
	}
	if config.Backend == "" {
		config.Backend = constants.DefaultBackend
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = constants.DefaultChunkSize
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &ComponentFactory{config: config}
}

// CreateComponents creates all components with the given configuration
func (f *ComponentFactory) CreateComponents() (*Components, error) {
	embedder := f.CreateEmbedder()

	store, err := f.CreateStore()
	if err != nil {
		return nil, fmt.Errorf("create chunk store: %w", err)
	}

	eng := engine.New(embedder, store, f.config.Logger)
	pipe := engine.NewPipeline(eng, f.CreateChunker(), f.config.Logger, engine.PipelineOptions{})

	return &Components{
		Embedder: embedder,
		Store:    store,
		Engine:   eng,
		Pipeline: pipe,
	}, nil
}

// CreateEmbedder creates the HTTP API embedder with configured prefixes
func (f *ComponentFactory) CreateEmbedder() embeddings.Embedder {
	return embeddings.NewApi(f.config.EmbedURL, embeddings.ApiOptions{
		PrefixQuery:    f.config.PrefixQuery,
		PrefixDocument: f.config.PrefixDocument,
	})
}

// CreateLocalEmbedder creates a local embedder for testing
func (f *ComponentFactory) CreateLocalEmbedder(dimension int) embeddings.Embedder {
	return embeddings.NewLocal(dimension)
}

// CreateStore creates the chunk store for the configured backend
func (f *ComponentFactory) CreateStore() (storage.ChunkStore, error) {
	switch f.config.Backend {
	case constants.BackendMemory:
		return memory.New(), nil
	case constants.BackendSqlite:
		if f.config.DBPath == "" {
			return nil, fmt.Errorf("database path must be specified")
		}
		return sqlite.New(f.config.DBPath, f.config.Dimension)
	case constants.BackendSqlvec:
		if f.config.DBPath == "" {
			return nil, fmt.Errorf("database path must be specified")
		}
		return sqlvec.New(f.config.DBPath, f.config.Dimension)
	default:
		return nil, fmt.Errorf("unknown store backend %q", f.config.Backend)
	}
}

// CreateChunker creates the text chunker with configured window sizes
func (f *ComponentFactory) CreateChunker() chunker.Chunker {
	return chunker.NewText(f.config.ChunkSize, f.config.ChunkOverlap)
}

// Cleanup releases resources held by components
func (c *Components) Cleanup() error {
	if c.Store != nil {
		if closer, ok := c.Store.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				return fmt.Errorf("close chunk store: %w", err)
			}
		}
	}
	return nil
}
