package sqlvec

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/docrag/docrag/internal/models"
	"github.com/docrag/docrag/internal/storage"
)

// Store is a ChunkStore backed by SQLite with the sqlite-vec extension.
// Chunk metadata lives in a plain table keyed by (document_id, chunk_index);
// embeddings live in a vec0 virtual table with cosine distance, joined
// through a rowid mapping table.
type Store struct {
	db *sql.DB

	// mu serializes replaces; SQLite allows one writer at a time anyway, and
	// holding it keeps dimension inference on the first replace race-free.
	mu        sync.Mutex
	dimension int
}

func New(path string, dimension int) (*Store, error) {
	// enable sqlite-vec for all future connections
	sqlite_vec.Auto()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// WAL keeps readers on their own snapshot while a replace commits
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db, dimension); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dimension: dimension}, nil
}

func migrate(db *sql.DB, dim int) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (document_id, chunk_index)
	);`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);`); err != nil {
		return err
	}
	// vec0 virtual table holds embeddings; dimension is fixed per table.
	// If dim <= 0, defer creation until the first replace when dimension is known.
	if dim > 0 {
		return createVecTables(db, dim)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func createVecTables(e execer, dim int) error {
	if _, err := e.Exec(fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
        embedding float32[%d] distance_metric=cosine
    );`, dim)); err != nil {
		return err
	}
	if _, err := e.Exec(`CREATE TABLE IF NOT EXISTS vec_map (
        rid INTEGER PRIMARY KEY,
        document_id TEXT NOT NULL,
        chunk_index INTEGER NOT NULL,
        UNIQUE (document_id, chunk_index)
    );`); err != nil {
		return err
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ReplaceDocument(documentID string, contents []string, embeddings [][]float32) error {
	if len(contents) != len(embeddings) {
		return fmt.Errorf("contents and embeddings length mismatch: %d vs %d", len(contents), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// With dimension 0 the first committed batch decides the dimension. It is
	// recorded only after commit; a rollback also undoes the vec-table DDL, so
	// a failed replace leaves the store exactly as it was.
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
	if err := ensureVecTables(tx, dim, len(embeddings)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := deleteDocumentTx(tx, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	chunkStmt, err := tx.Prepare(`INSERT INTO chunks(document_id, chunk_index, content) VALUES(?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = chunkStmt.Close() }()
	vecStmt, err := tx.Prepare(`INSERT INTO vec_chunks(embedding) VALUES(?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = vecStmt.Close() }()
	mapStmt, err := tx.Prepare(`INSERT INTO vec_map(rid, document_id, chunk_index) VALUES(?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = mapStmt.Close() }()

	for i, content := range contents {
		if _, err := chunkStmt.Exec(documentID, i, content); err != nil {
			_ = tx.Rollback()
			return err
		}
		v, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := vecStmt.Exec(v); err != nil {
			_ = tx.Rollback()
			return err
		}
		var rid int64
		if err := tx.QueryRow(`SELECT last_insert_rowid()`).Scan(&rid); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := mapStmt.Exec(rid, documentID, i); err != nil {
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
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := deleteDocumentTx(tx, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func deleteDocumentTx(tx *sql.Tx, documentID string) error {
	if has, err := hasVecTables(tx); err != nil {
		return err
	} else if has {
		if _, err := tx.Exec(`DELETE FROM vec_chunks WHERE rowid IN (
			SELECT rid FROM vec_map WHERE document_id = ?
		)`, documentID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM vec_map WHERE document_id = ?`, documentID); err != nil {
			return err
		}
	}
	_, err := tx.Exec(`DELETE FROM chunks WHERE document_id = ?`, documentID)
	return err
}

func (s *Store) TopKSimilar(embedding []float32, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		k = 5
	}
	if has, err := hasVecTables(s.db); err != nil {
		return nil, err
	} else if !has {
		// no replace has run yet; nothing indexed
		return nil, nil
	}
	v, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, err
	}
	// KNN via MATCH ... ORDER BY distance using sqlite-vec; cosine distance,
	// so similarity = 1 - distance. The inner query over-fetches so ties at
	// the k boundary are cut by the deterministic outer order, not by vec0's
	// internal candidate order.
	rows, err := s.db.Query(`
        WITH knn AS (
            SELECT rowid, distance
            FROM vec_chunks
            WHERE embedding MATCH ?
            ORDER BY distance
            LIMIT ?
        )
        SELECT c.document_id, c.chunk_index, c.content, k.distance
        FROM knn k
        JOIN vec_map m ON m.rid = k.rowid
        JOIN chunks c ON c.document_id = m.document_id AND c.chunk_index = m.chunk_index
        ORDER BY k.distance ASC, c.document_id ASC, c.chunk_index ASC
    `, v, k+16)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var hits []models.SearchHit
	for rows.Next() {
		var ch models.Chunk
		var distance float32
		if err := rows.Scan(&ch.DocumentID, &ch.Index, &ch.Content, &distance); err != nil {
			return nil, err
		}
		hits = append(hits, models.SearchHit{Chunk: ch, Score: 1 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
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

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func hasVecTables(q querier) (bool, error) {
	var name string
	err := q.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='vec_chunks'`).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func ensureVecTables(tx *sql.Tx, dim, inserts int) error {
	if has, err := hasVecTables(tx); err != nil {
		return err
	} else if has {
		return nil
	}
	if inserts == 0 {
		// nothing to insert; deletes work without the vec tables
		return nil
	}
	if dim <= 0 {
		return fmt.Errorf("cannot create vec_chunks: unknown embedding dimension")
	}
	return createVecTables(tx, dim)
}
