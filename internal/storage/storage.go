package storage

import (
	"errors"

	"github.com/docrag/docrag/internal/models"
)

// ErrNotFound is returned by point lookups for absent chunks.
var ErrNotFound = errors.New("chunk not found")

// ErrDimensionMismatch is returned when a replace carries embeddings whose
// dimension differs from the store's fixed dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ChunkStore persists chunks and their embeddings keyed by
// (document_id, chunk_index) and answers k-NN similarity queries.
//
// ReplaceDocument is all-or-nothing: on any failure the store keeps its
// pre-call state, and a reader concurrent with a replace observes either the
// old or the new chunk set, never a mixture. Replaces for the same document
// identity are serialized; unrelated documents are not.
type ChunkStore interface {
	// ReplaceDocument atomically swaps all chunks of documentID for the given
	// contents, assigning chunk indexes by position. Replacing with zero
	// contents deletes the document.
	ReplaceDocument(documentID string, contents []string, embeddings [][]float32) error

	// TopKSimilar returns up to k chunks ranked by cosine similarity
	// descending, ties broken by (document_id, chunk_index) ascending.
	TopKSimilar(embedding []float32, k int) ([]models.SearchHit, error)

	// GetChunk is a point lookup; returns ErrNotFound if absent.
	GetChunk(documentID string, index int) (models.Chunk, error)

	// GetChunksInRange returns chunks with index in [low, high], clipped to
	// the document's valid range, ordered ascending.
	GetChunksInRange(documentID string, low, high int) ([]models.Chunk, error)

	// GetAllChunks returns the document's full chunk sequence ordered by index.
	GetAllChunks(documentID string) ([]models.Chunk, error)

	// CountDocuments returns the number of distinct document identities with
	// at least one chunk.
	CountDocuments() (int, error)

	// ListDocuments returns all document identities with at least one chunk.
	ListDocuments() ([]string, error)

	// DeleteDocument removes all chunks of documentID. Deleting an unknown
	// document is a no-op.
	DeleteDocument(documentID string) error
}
