package memory_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrag/docrag/internal/storage"
	"github.com/docrag/docrag/internal/storage/memory"
)

func vec(vals ...float32) []float32 { return vals }

func TestReplaceAndQuery(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.ReplaceDocument("a.txt",
		[]string{"one", "two"},
		[][]float32{vec(1, 0), vec(0, 1)}))

	hits, err := s.TopKSimilar(vec(0, 1), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "two", hits[0].Chunk.Content)
	assert.Equal(t, 1, hits[0].Chunk.Index)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
}

func TestReplace_Wholesale(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.ReplaceDocument("a.txt",
		[]string{"one", "two", "three"},
		[][]float32{vec(1, 0), vec(0, 1), vec(1, 1)}))
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"only"}, [][]float32{vec(1, 0)}))

	chunks, err := s.GetAllChunks("a.txt")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "only", chunks[0].Content)
}

func TestReplace_ConcurrentReaderSeesWholeDocuments(t *testing.T) {
	s := memory.New()
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

	for i := 0; i < 100; i++ {
		require.NoError(t, s.ReplaceDocument("doc.txt", []string{"a", "b", "c", "d", "e"}, five))
		require.NoError(t, s.ReplaceDocument("doc.txt", []string{"a", "b", "c"}, three))
	}
	close(done)
	wg.Wait()
}

func TestRangeAndPointLookups(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.ReplaceDocument("a.txt",
		[]string{"c0", "c1", "c2"},
		[][]float32{vec(1, 0), vec(0, 1), vec(1, 1)}))

	ch, err := s.GetChunk("a.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, "c2", ch.Content)

	_, err = s.GetChunk("a.txt", 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	chunks, err := s.GetChunksInRange("a.txt", -1, 10)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestCountListDelete(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.ReplaceDocument("b.txt", []string{"x"}, [][]float32{vec(1, 0)}))
	require.NoError(t, s.ReplaceDocument("a.txt", []string{"y"}, [][]float32{vec(0, 1)}))

	count, err := s.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	docs, err := s.ListDocuments()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, docs)

	require.NoError(t, s.DeleteDocument("b.txt"))
	count, _ = s.CountDocuments()
	assert.Equal(t, 1, count)
}
