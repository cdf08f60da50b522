// Package engine implements the retrieval core: indexing documents as
// embedded chunk sequences and answering similarity queries with optional
// context expansion or full-document reconstruction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/docrag/docrag/internal/embeddings"
	"github.com/docrag/docrag/internal/models"
	"github.com/docrag/docrag/internal/storage"
)

// ErrEmptyIndex is returned by Search when no documents have been indexed.
// Callers surface it distinctly from a query with no matches.
var ErrEmptyIndex = errors.New("no documents in the index")

// SearchOptions controls result shaping for one search request.
type SearchOptions struct {
	// Limit caps the number of anchor hits; expansion may add further rows.
	Limit int
	// WithContext pulls in up to ContextSize chunks on each side of a hit.
	WithContext bool
	ContextSize int
	// FullDocument replaces chunk-level context with the whole reconstructed
	// document. Takes precedence over WithContext.
	FullDocument bool
}

const defaultLimit = 5

// Engine orchestrates the embedder and the chunk store. It holds no state of
// its own beyond per-document replace locks; searches are pure reads over the
// store's current snapshot.
type Engine struct {
	embedder embeddings.Embedder
	store    storage.ChunkStore
	log      *zap.Logger

	// one lock per document identity, so concurrent re-indexes of the same
	// document serialize without stalling unrelated documents
	replaceLocks sync.Map // document_id -> *sync.Mutex
}

func New(embedder embeddings.Embedder, store storage.ChunkStore, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{embedder: embedder, store: store, log: log}
}

// Index embeds the chunk texts of one document and atomically replaces its
// stored chunk set. Any embedding or store failure aborts the whole document
// and leaves the prior state intact. Returns the number of chunks written.
func (e *Engine) Index(ctx context.Context, documentID string, texts []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var vecs [][]float32
	if len(texts) > 0 {
		var err error
		vecs, err = e.embedder.EmbedTexts(texts)
		if err != nil {
			return 0, fmt.Errorf("embed document %s: %w", documentID, err)
		}
	}

	mu := e.lockFor(documentID)
	mu.Lock()
	defer mu.Unlock()
	if err := e.store.ReplaceDocument(documentID, texts, vecs); err != nil {
		return 0, fmt.Errorf("store document %s: %w", documentID, err)
	}
	e.log.Debug("indexed document", zap.String("document", documentID), zap.Int("chunks", len(texts)))
	return len(texts), nil
}

// Search runs one similarity query. An empty index fails with ErrEmptyIndex;
// a non-empty index with no hits returns an empty, non-error result list.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]models.SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	count, err := e.store.CountDocuments()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, ErrEmptyIndex
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qvec, err := e.embedder.EmbedQuery(query)
	if err != nil {
		return nil, fmt.Errorf("embed query %q: %w", query, err)
	}
	hits, err := e.store.TopKSimilar(qvec, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(hits) == 0 {
		return []models.SearchResult{}, nil
	}
	results, err := e.expand(ctx, hits, opts)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	e.log.Debug("search completed",
		zap.String("query", query),
		zap.Int("hits", len(hits)),
		zap.Int("results", len(results)))
	return results, nil
}

type chunkKey struct {
	documentID string
	index      int
}

// expand turns raw hits into the final result list: per-hit context rows or
// per-document reconstruction, deduplicated by (document_id, chunk_index),
// ordered by similarity descending with each hit's block kept contiguous.
func (e *Engine) expand(ctx context.Context, hits []models.SearchHit, opts SearchOptions) ([]models.SearchResult, error) {
	var results []models.SearchResult
	pos := make(map[chunkKey]int)   // emitted chunk rows
	docPos := make(map[string]int)  // emitted full-document rows

	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := hit.Chunk.DocumentID

		if opts.FullDocument {
			if i, ok := docPos[doc]; ok {
				// document already reconstructed; keep the max similarity
				if hit.Score > results[i].Similarity {
					results[i].Similarity = hit.Score
				}
				continue
			}
			chunks, err := e.store.GetAllChunks(doc)
			if err != nil {
				return nil, fmt.Errorf("reconstruct document %s: %w", doc, err)
			}
			contents := make([]string, len(chunks))
			for i, c := range chunks {
				contents[i] = c.Content
			}
			results = append(results, models.SearchResult{
				DocumentID:     doc,
				Content:        strings.Join(contents, "\n"),
				ChunkIndex:     hit.Chunk.Index,
				Similarity:     hit.Score,
				IsFullDocument: true,
			})
			docPos[doc] = len(results) - 1
			continue
		}

		key := chunkKey{doc, hit.Chunk.Index}
		if i, ok := pos[key]; ok {
			// emitted earlier as another hit's context; the direct hit wins
			results[i].IsContext = false
			if hit.Score > results[i].Similarity {
				results[i].Similarity = hit.Score
			}
		} else {
			results = append(results, models.SearchResult{
				DocumentID: doc,
				Content:    hit.Chunk.Content,
				ChunkIndex: hit.Chunk.Index,
				Similarity: hit.Score,
			})
			pos[key] = len(results) - 1
		}

		if !opts.WithContext || opts.ContextSize <= 0 {
			continue
		}
		neighbors, err := e.store.GetChunksInRange(doc, hit.Chunk.Index-opts.ContextSize, hit.Chunk.Index+opts.ContextSize)
		if err != nil {
			return nil, fmt.Errorf("expand context for %s: %w", doc, err)
		}
		for _, c := range neighbors {
			if c.Index == hit.Chunk.Index {
				continue
			}
			k := chunkKey{doc, c.Index}
			if _, ok := pos[k]; ok {
				continue
			}
			results = append(results, models.SearchResult{
				DocumentID: doc,
				Content:    c.Content,
				ChunkIndex: c.Index,
				// context rows inherit the anchor's score
				Similarity: hit.Score,
				IsContext:  true,
			})
			pos[k] = len(results) - 1
		}
	}

	// stable: equal similarities keep first-hit rank order, so a hit's
	// context block stays contiguous behind it
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}

// DocumentCount returns the number of distinct documents with at least one
// chunk.
func (e *Engine) DocumentCount() (int, error) {
	return e.store.CountDocuments()
}

// ListDocuments returns every indexed document identity.
func (e *Engine) ListDocuments() ([]string, error) {
	return e.store.ListDocuments()
}

// DeleteDocument removes a document's chunks entirely.
func (e *Engine) DeleteDocument(documentID string) error {
	mu := e.lockFor(documentID)
	mu.Lock()
	defer mu.Unlock()
	if err := e.store.DeleteDocument(documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	e.log.Debug("deleted document", zap.String("document", documentID))
	return nil
}

func (e *Engine) lockFor(documentID string) *sync.Mutex {
	mu, _ := e.replaceLocks.LoadOrStore(documentID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
