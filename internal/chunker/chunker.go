// Package chunker splits document text into overlapping spans, the unit the
// retrieval engine embeds and stores.
package chunker

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Chunker turns a document file into an ordered sequence of text spans.
type Chunker interface {
	ChunkFile(path string) ([]string, error)
}

// TextChunker splits text into overlapping word-based windows.
type TextChunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewText creates a chunker with the given size and overlap (in words).
func NewText(chunkSize, chunkOverlap int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = 256
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 8
	}
	return &TextChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ChunkFile reads path and chunks its content. Unreadable or non-UTF-8 files
// fail; callers skip the file and continue their batch.
func (c *TextChunker) ChunkFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("chunk %s: not valid UTF-8 text", path)
	}
	return c.Chunk(string(data)), nil
}

// Chunk splits text into overlapping windows. Empty input yields no chunks.
func (c *TextChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}
