package sqlite_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrag/docrag/internal/storage"
	"github.com/docrag/docrag/internal/storage/sqlite"
)

func newStore(t *testing.T, dim int) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "chunks.db"), dim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func vec(vals ...float32) []float32 { return vals }

func TestReplaceDocument_Roundtrip(t *testing.T) {
	s := newStore(t, 3)
	err := s.ReplaceDocument("a.txt",
		[]string{"first", "second", "third"},
		[][]float32{vec(1, 0, 0), vec(0, 1, 0), vec(0, 0, 1)})
	require.NoError(t, err)

	chunks, err := s.GetAllChunks("a.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, "a.txt", ch.DocumentID)
		assert.Equal(t, i, ch.Index)
	}
	assert.Equal(t, "second", chunks[1].Content)
}

func TestReplaceDocument_Reindex(t *testing.T) {
	s := newStore(t, 2)
	require.NoError(t, s.ReplaceDocument("a.txt",
		[]string{"one", "two", "three"},
		[][]float32{vec(1, 0), vec(0, 1), vec(1, 1)}))
	require.NoError(t, s.ReplaceDocument("a.txt",
		[]string{"fresh"},
		[][]float32{vec(1, 0)}))

	chunks, err := s.GetAllChunks("a.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "fresh", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)

	count, err := s.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReplaceDocument_LengthMismatch(t *testing.T) {
	s := newStore(t, 2)
	err := s.ReplaceDocument("a.txt", []string{"one", "two"}, [][]float32{vec(1, 0)})
	assert.Error(t, err)
}

func TestReplaceDocument_DimensionMismatchKeepsPriorState(t *testing.T) {
	s := newStore(t, 2)
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"one"}, [][]float32{vec(1, 0)}))

	err := s.ReplaceDocument("a.txt", []string{"bad"}, [][]float32{vec(1, 0, 0)})
	require.ErrorIs(t, err, storage.ErrDimensionMismatch)

	chunks, err := s.GetAllChunks("a.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "one", chunks[0].Content)
}

func TestReplaceDocument_FailedBatchDoesNotFixDimension(t *testing.T) {
	s := newStore(t, 0)
	err := s.ReplaceDocument("a.txt",
		[]string{"one", "two"},
		[][]float32{vec(1, 0, 0), vec(1, 0)})
	require.ErrorIs(t, err, storage.ErrDimensionMismatch)

	count, err := s.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// the store is still empty, so the next consistent batch decides the dimension
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"one"}, [][]float32{vec(1, 0)}))

	err = s.ReplaceDocument("b.txt", []string{"bad"}, [][]float32{vec(1, 0, 0)})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestReplaceDocument_ConcurrentReaderSeesWholeDocuments(t *testing.T) {
	s := newStore(t, 2)
	three := [][]float32{vec(1, 0), vec(0, 1), vec(1, 1)}
	five := [][]float32{vec(1, 0), vec(0, 1), vec(1, 1), vec(1, 2), vec(2, 1)}
	require.NoError(t, s.ReplaceDocument("doc.txt", []string{"a", "b", "c"}, three))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			chunks, err := s.GetAllChunks("doc.txt")
			if err != nil {
				t.Errorf("concurrent read failed: %v", err)
				return
			}
			if n := len(chunks); n != 3 && n != 5 {
				t.Errorf("read a torn document: %d chunks", n)
				return
			}
		}
	}()

	for i := 0; i < 25; i++ {
		require.NoError(t, s.ReplaceDocument("doc.txt", []string{"a", "b", "c", "d", "e"}, five))
		require.NoError(t, s.ReplaceDocument("doc.txt", []string{"a", "b", "c"}, three))
	}
	close(done)
	wg.Wait()
}

func TestReplaceDocument_EmptyDeletes(t *testing.T) {
	s := newStore(t, 2)
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"one"}, [][]float32{vec(1, 0)}))
	require.NoError(t, s.ReplaceDocument("a.txt", nil, nil))

	count, err := s.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTopKSimilar_OrderAndTies(t *testing.T) {
	s := newStore(t, 2)
	require.NoError(t, s.ReplaceDocument("b.txt", []string{"exact"}, [][]float32{vec(1, 0)}))
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"also exact"}, [][]float32{vec(1, 0)}))
	require.NoError(t, s.ReplaceDocument("c.txt", []string{"orthogonal"}, [][]float32{vec(0, 1)}))

	hits, err := s.TopKSimilar(vec(1, 0), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	// ties broken by document_id ascending
	assert.Equal(t, "a.txt", hits[0].Chunk.DocumentID)
	assert.Equal(t, "b.txt", hits[1].Chunk.DocumentID)
	assert.Equal(t, "c.txt", hits[2].Chunk.DocumentID)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
	assert.InDelta(t, 0.0, float64(hits[2].Score), 1e-5)
}

func TestTopKSimilar_FewerThanK(t *testing.T) {
	s := newStore(t, 2)
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"one"}, [][]float32{vec(1, 0)}))

	hits, err := s.TopKSimilar(vec(1, 0), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestTopKSimilar_EmptyStore(t *testing.T) {
	s := newStore(t, 2)
	hits, err := s.TopKSimilar(vec(1, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestGetChunk(t *testing.T) {
	s := newStore(t, 2)
	require.NoError(t, s.ReplaceDocument("a.txt",
		[]string{"one", "two"},
		[][]float32{vec(1, 0), vec(0, 1)}))

	ch, err := s.GetChunk("a.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, "two", ch.Content)

	_, err = s.GetChunk("a.txt", 7)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetChunk("missing.txt", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetChunksInRange_Clipped(t *testing.T) {
	s := newStore(t, 2)
	contents := []string{"c0", "c1", "c2", "c3", "c4"}
	embs := make([][]float32, 5)
	for i := range embs {
		embs[i] = vec(float32(i), 1)
	}
	require.NoError(t, s.ReplaceDocument("a.txt", contents, embs))

	chunks, err := s.GetChunksInRange("a.txt", -2, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)

	chunks, err = s.GetChunksInRange("a.txt", 3, 99)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 3, chunks[0].Index)
	assert.Equal(t, 4, chunks[1].Index)
}

func TestListAndDeleteDocuments(t *testing.T) {
	s := newStore(t, 2)
	require.NoError(t, s.ReplaceDocument("b.txt", []string{"x"}, [][]float32{vec(1, 0)}))
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"y"}, [][]float32{vec(0, 1)}))

	docs, err := s.ListDocuments()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, docs)

	require.NoError(t, s.DeleteDocument("a.txt"))
	require.NoError(t, s.DeleteDocument("never-indexed.txt"))

	count, err := s.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
