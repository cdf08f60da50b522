package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/docrag/docrag/internal/models"
	"github.com/docrag/docrag/internal/storage"
)

type item struct {
	chunk models.Chunk
	vec   []float32
}

// Store is an in-memory ChunkStore used by tests and the ephemeral store
// backend. A single RWMutex gives replaces the required atomicity: readers
// see either the old or the new chunk set of a document.
type Store struct {
	mu   sync.RWMutex
	data map[string][]item // document_id -> items ordered by chunk index
}

func New() *Store {
	return &Store{data: make(map[string][]item)}
}

func (s *Store) ReplaceDocument(documentID string, contents []string, embeddings [][]float32) error {
	if len(contents) != len(embeddings) {
		return fmt.Errorf("contents and embeddings length mismatch: %d vs %d", len(contents), len(embeddings))
	}
	items := make([]item, len(contents))
	for i, content := range contents {
		items[i] = item{
			chunk: models.Chunk{DocumentID: documentID, Index: i, Content: content},
			vec:   embeddings[i],
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(items) == 0 {
		delete(s.data, documentID)
		return nil
	}
	s.data[documentID] = items
	return nil
}

func (s *Store) DeleteDocument(documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, documentID)
	return nil
}

func (s *Store) TopKSimilar(embedding []float32, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		k = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []models.SearchHit
	for _, items := range s.data {
		for _, it := range items {
			hits = append(hits, models.SearchHit{Chunk: it.chunk, Score: cosine(it.vec, embedding)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.DocumentID != hits[j].Chunk.DocumentID {
			return hits[i].Chunk.DocumentID < hits[j].Chunk.DocumentID
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) GetChunk(documentID string, index int) (models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.data[documentID]
	if index < 0 || index >= len(items) {
		return models.Chunk{}, fmt.Errorf("%w: %s[%d]", storage.ErrNotFound, documentID, index)
	}
	return items[index].chunk, nil
}

func (s *Store) GetChunksInRange(documentID string, low, high int) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.data[documentID]
	if low < 0 {
		low = 0
	}
	if high > len(items)-1 {
		high = len(items) - 1
	}
	var out []models.Chunk
	for i := low; i <= high; i++ {
		out = append(out, items[i].chunk)
	}
	return out, nil
}

func (s *Store) GetAllChunks(documentID string) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.data[documentID]
	out := make([]models.Chunk, 0, len(items))
	for _, it := range items {
		out = append(out, it.chunk)
	}
	return out, nil
}

func (s *Store) CountDocuments() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func (s *Store) ListDocuments() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0
	}
	return float32(dot / den)
}
