package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docrag/docrag/internal/chunker"
	"github.com/docrag/docrag/internal/models"
)

// PipelineOptions bounds the indexing fan-out so a bulk reindex cannot
// overwhelm the embedder or the store.
type PipelineOptions struct {
	Workers int
}

// Pipeline walks a source directory and indexes each file as one document,
// keyed by its path. File-level failures (unreadable, binary, embed errors)
// are recorded and skipped; the run continues.
type Pipeline struct {
	engine  *Engine
	chunker chunker.Chunker
	log     *zap.Logger
	opt     PipelineOptions
}

func NewPipeline(engine *Engine, c chunker.Chunker, log *zap.Logger, opt PipelineOptions) *Pipeline {
	if opt.Workers <= 0 {
		opt.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{engine: engine, chunker: c, log: log, opt: opt}
}

// IndexDirectory indexes every regular file under root. Progress events are
// sent to progress when non-nil; the channel is closed when the run ends.
// Cancelling ctx stops scheduling new files but lets in-flight documents
// finish their atomic replace.
func (p *Pipeline) IndexDirectory(ctx context.Context, root string, progress chan<- models.IndexProgress) (models.IndexSummary, error) {
	if progress != nil {
		defer close(progress)
	}
	var summary models.IndexSummary

	files, err := listFiles(root)
	if err != nil {
		return summary, err
	}
	emit(progress, models.IndexProgress{
		Stage:      models.IndexStageScan,
		TotalFiles: len(files),
		Message:    "scanned source directory",
	})

	var mu sync.Mutex
	processed := 0
	var g errgroup.Group
	g.SetLimit(p.opt.Workers)

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			texts, chunkErr := p.chunker.ChunkFile(file)
			n := 0
			var indexErr error
			if chunkErr == nil && len(texts) > 0 {
				n, indexErr = p.engine.Index(ctx, file, texts)
			}

			mu.Lock()
			defer mu.Unlock()
			processed++
			switch {
			case chunkErr != nil:
				summary.SkippedFiles++
				summary.Errors = append(summary.Errors, models.FileError{Path: file, Err: chunkErr})
				p.log.Warn("skipping file", zap.String("file", file), zap.Error(chunkErr))
			case len(texts) == 0:
				summary.SkippedFiles++
				p.log.Warn("no chunks produced", zap.String("file", file))
			case indexErr != nil:
				summary.SkippedFiles++
				summary.Errors = append(summary.Errors, models.FileError{Path: file, Err: indexErr})
				p.log.Warn("indexing failed", zap.String("file", file), zap.Error(indexErr))
			default:
				summary.IndexedFiles++
				summary.TotalChunks += n
			}
			emit(progress, models.IndexProgress{
				Stage:        models.IndexStageEmbed,
				TotalFiles:   len(files),
				IndexedFiles: summary.IndexedFiles,
				SkippedFiles: summary.SkippedFiles,
				TotalChunks:  summary.TotalChunks,
				CurrentFile:  file,
				Percent:      float32(processed) / float32(len(files)),
			})
			return nil
		})
	}
	_ = g.Wait()

	emit(progress, models.IndexProgress{
		Stage:        models.IndexStageDone,
		TotalFiles:   len(files),
		IndexedFiles: summary.IndexedFiles,
		SkippedFiles: summary.SkippedFiles,
		TotalChunks:  summary.TotalChunks,
		Percent:      1,
	})
	p.log.Info("indexing run finished",
		zap.Int("indexed", summary.IndexedFiles),
		zap.Int("skipped", summary.SkippedFiles),
		zap.Int("chunks", summary.TotalChunks))
	return summary, ctx.Err()
}

// Prune deletes indexed documents whose source file no longer exists and
// returns the removed identities.
func (p *Pipeline) Prune(ctx context.Context) ([]string, error) {
	ids, err := p.engine.ListDocuments()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, statErr := os.Stat(id); statErr == nil || !os.IsNotExist(statErr) {
			continue
		}
		if err := p.engine.DeleteDocument(id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
		p.log.Info("pruned stale document", zap.String("document", id))
	}
	return removed, nil
}

func emit(ch chan<- models.IndexProgress, p models.IndexProgress) {
	if ch != nil {
		ch <- p
	}
}

func listFiles(root string) ([]string, error) {
	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !strings.HasPrefix(d.Name(), ".") {
			files = append(files, path)
		}
		return nil
	})
	return files, walkErr
}
