package sqlite

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/docrag/docrag/internal/models"
	"github.com/docrag/docrag/internal/storage"
)

// Store is a pure-Go ChunkStore on modernc.org/sqlite. Embeddings are stored
// as little-endian float32 blobs and similarity is computed in Go with an
// exact scan, so it needs no cgo and no loadable extension. Suited to small
// and medium indexes; sqlvec.Store is the ANN-capable alternative.
type Store struct {
	db *sql.DB

	// mu serializes replaces so dimension inference on the first replace is
	// race-free under concurrent indexing workers.
	mu        sync.Mutex
	dimension int
}

func New(path string, dimension int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dimension: dimension}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		PRIMARY KEY (document_id, chunk_index)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ReplaceDocument(documentID string, contents []string, embeddings [][]float32) error {
	if len(contents) != len(embeddings) {
		return fmt.Errorf("contents and embeddings length mismatch: %d vs %d", len(contents), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// When constructed with dimension 0 the first committed batch decides the
	// dimension, mirroring the deferred vec-table creation in sqlvec. The
	// inference is recorded only after commit so a failed replace leaves the
	// store exactly as it was.
	dim := s.dimension
	for _, emb := range embeddings {
		if dim <= 0 {
			dim = len(emb)
			continue
		}
		if len(emb) != dim {
			return fmt.Errorf("%w: got %d, store is %d", storage.ErrDimensionMismatch, len(emb), dim)
		}
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO chunks(document_id, chunk_index, content, embedding) VALUES(?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i, content := range contents {
		if _, err := stmt.Exec(documentID, i, content, encodeVector(embeddings[i])); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.dimension = dim
	return nil
}

func (s *Store) DeleteDocument(documentID string) error {
	_, err := s.db.Exec(`DELETE FROM chunks WHERE document_id = ?`, documentID)
	return err
}

func (s *Store) TopKSimilar(embedding []float32, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		k = 5
	}
	rows, err := s.db.Query(`SELECT document_id, chunk_index, content, embedding FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var hits []models.SearchHit
	for rows.Next() {
		var ch models.Chunk
		var blob []byte
		if err := rows.Scan(&ch.DocumentID, &ch.Index, &ch.Content, &blob); err != nil {
			return nil, err
		}
		hits = append(hits, models.SearchHit{Chunk: ch, Score: cosine(decodeVector(blob), embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
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
	row := s.db.QueryRow(
		`SELECT document_id, chunk_index, content FROM chunks WHERE document_id = ? AND chunk_index = ?`,
		documentID, index,
	)
	var ch models.Chunk
	if err := row.Scan(&ch.DocumentID, &ch.Index, &ch.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Chunk{}, fmt.Errorf("%w: %s[%d]", storage.ErrNotFound, documentID, index)
		}
		return models.Chunk{}, err
	}
	return ch, nil
}

func (s *Store) GetChunksInRange(documentID string, low, high int) ([]models.Chunk, error) {
	if low < 0 {
		low = 0
	}
	rows, err := s.db.Query(
		`SELECT document_id, chunk_index, content FROM chunks
		 WHERE document_id = ? AND chunk_index BETWEEN ? AND ?
		 ORDER BY chunk_index ASC`,
		documentID, low, high,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

func (s *Store) GetAllChunks(documentID string) ([]models.Chunk, error) {
	rows, err := s.db.Query(
		`SELECT document_id, chunk_index, content FROM chunks
		 WHERE document_id = ? ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

func (s *Store) CountDocuments() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(DISTINCT document_id) FROM chunks`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListDocuments() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT document_id FROM chunks ORDER BY document_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanChunks(rows *sql.Rows) ([]models.Chunk, error) {
	var out []models.Chunk
	for rows.Next() {
		var ch models.Chunk
		if err := rows.Scan(&ch.DocumentID, &ch.Index, &ch.Content); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
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
