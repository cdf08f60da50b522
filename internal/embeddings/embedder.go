package embeddings

// Embedder maps texts to fixed-dimension vectors. EmbedTexts is the batched
// variant used by the indexing path; EmbedQuery embeds a single search query.
// Implementations must be safe for concurrent use.
type Embedder interface {
	EmbedTexts(texts []string) ([][]float32, error)
	EmbedQuery(text string) ([]float32, error)
	ModelName() string
}
