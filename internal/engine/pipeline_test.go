package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docrag/docrag/internal/chunker"
	"github.com/docrag/docrag/internal/embeddings"
	"github.com/docrag/docrag/internal/engine"
	"github.com/docrag/docrag/internal/models"
	"github.com/docrag/docrag/internal/storage/memory"
)

func newPipeline(t *testing.T) (*engine.Pipeline, *engine.Engine) {
	t.Helper()
	eng := engine.New(embeddings.NewLocal(8), memory.New(), zap.NewNop())
	p := engine.NewPipeline(eng, chunker.NewText(16, 4), zap.NewNop(), engine.PipelineOptions{Workers: 2})
	return p, eng
}

func TestIndexDirectory(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "a.txt"), []byte("alpha beta gamma"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "b.md"), []byte("# heading\n\nsome body text"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "broken.bin"), []byte{0xff, 0xfe, 0x00}, 0o644))

	p, eng := newPipeline(t)
	summary, err := p.IndexDirectory(context.Background(), tmp, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.IndexedFiles)
	assert.Equal(t, 1, summary.SkippedFiles)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Path, "broken.bin")

	count, err := eng.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count, "a failed file must not affect the other documents")
}

func TestIndexDirectory_Progress(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "a.txt"), []byte("alpha beta"), 0o644))

	p, _ := newPipeline(t)
	progress := make(chan models.IndexProgress, 16)
	_, err := p.IndexDirectory(context.Background(), tmp, progress)
	require.NoError(t, err)

	var stages []models.IndexStage
	for ev := range progress {
		stages = append(stages, ev.Stage)
	}
	require.NotEmpty(t, stages)
	assert.Equal(t, models.IndexStageScan, stages[0])
	assert.Equal(t, models.IndexStageDone, stages[len(stages)-1])
}

func TestPrune(t *testing.T) {
	tmp := t.TempDir()
	keep := filepath.Join(tmp, "keep.txt")
	gone := filepath.Join(tmp, "gone.txt")
	require.NoError(t, os.WriteFile(keep, []byte("kept text"), 0o644))
	require.NoError(t, os.WriteFile(gone, []byte("doomed text"), 0o644))

	p, eng := newPipeline(t)
	_, err := p.IndexDirectory(context.Background(), tmp, nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(gone))

	removed, err := p.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{gone}, removed)

	count, err := eng.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	docs, err := eng.ListDocuments()
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, docs)
}
