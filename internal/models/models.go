package models

// Chunk is one contiguous span of a document's text, the unit of embedding
// and retrieval. Chunks are keyed by (DocumentID, Index); indexes are dense
// and ascending within a document (0..N-1).
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// SearchHit is a raw k-NN hit from the chunk store.
type SearchHit struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// SearchResult is one row of a search response. Context rows inherit the
// similarity of the hit that pulled them in; full-document rows carry the
// maximum similarity across the document's hits.
type SearchResult struct {
	DocumentID     string  `json:"document_id"`
	Content        string  `json:"content"`
	ChunkIndex     int     `json:"chunk_index"`
	Similarity     float32 `json:"similarity"`
	IsContext      bool    `json:"is_context"`
	IsFullDocument bool    `json:"is_full_document"`
}

// Index progress and stages
type IndexStage string

const (
	IndexStageScan  IndexStage = "scan"
	IndexStageEmbed IndexStage = "embed"
	IndexStageDone  IndexStage = "done"
)

// IndexProgress represents streaming progress updates for a directory
// indexing run.
type IndexProgress struct {
	Stage          IndexStage
	TotalFiles     int
	IndexedFiles   int
	SkippedFiles   int
	TotalChunks    int
	CurrentFile    string
	Message        string
	Percent        float32
}

// IndexSummary is the final tally of a directory indexing run. Per-file
// failures are isolated: a failed file appears in Errors and the run
// continues.
type IndexSummary struct {
	IndexedFiles int
	SkippedFiles int
	TotalChunks  int
	Errors       []FileError
}

// FileError records a per-file indexing failure.
type FileError struct {
	Path string
	Err  error
}
