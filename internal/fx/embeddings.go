package fx

import (
	"go.uber.org/fx"

	"github.com/docrag/docrag/internal/embeddings"
)

// EmbeddingsParams represents dependencies for embeddings components
type EmbeddingsParams struct {
	fx.In

	Config *Config
}

// NewEmbedder creates a new embedder instance
func NewEmbedder(params EmbeddingsParams) embeddings.Embedder {
	return embeddings.NewApi(params.Config.EmbedURL, embeddings.ApiOptions{
		PrefixQuery:    params.Config.PrefixQuery,
		PrefixDocument: params.Config.PrefixDocument,
	})
}

// EmbeddingsModule provides embeddings components
var EmbeddingsModule = fx.Module("embeddings",
	fx.Provide(NewEmbedder),
)
