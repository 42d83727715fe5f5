// Package rag implements the consumer-supplied retrieval contract pkg/
// traversal's search() delegates to (spec §6.6): embed, search, and a
// document_ready snapshot hook. The contract itself is provider-agnostic;
// this package supplies one concrete provider backed by sqlite-vec, mirroring
// internal/store's SQLite wiring (mutex-guarded *sql.DB, schema string,
// NewXStore/NewXStoreWithDSN constructor pair) over a genuinely new
// schema — the teacher imports sqlite-vec-go-bindings but never wires a
// vec0 table, so the embeddings index below has no teacher precedent beyond
// the connection plumbing.
package rag

import (
	"database/sql"
	"fmt"
	"sync"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// schema holds the plain side table (rag_blocks) carrying the block_id/
// document_id/preview a matching rowid maps back to, since vec0 columns
// beyond the vector itself are awkward to query by non-numeric key. The
// index itself (rag_vectors, a vec0 virtual table keyed by rowid) is created
// separately in NewVectorStoreWithDSN, where its vector width is known.
const schema = `
CREATE TABLE IF NOT EXISTS rag_blocks (
    rowid_ref INTEGER PRIMARY KEY,
    block_id TEXT NOT NULL UNIQUE,
    document_id TEXT NOT NULL,
    preview TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rag_blocks_document ON rag_blocks(document_id);
`

// VectorStore is the sqlite-vec-backed embeddings index. Thread-safe for
// concurrent Embed/Search/DocumentReady calls, same as SQLiteStore.
type VectorStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	dim int
}

// NewVectorStore opens an in-memory VectorStore with Dimensions-wide
// vectors.
func NewVectorStore() (*VectorStore, error) {
	return NewVectorStoreWithDSN(":memory:", Dimensions)
}

// NewVectorStoreWithDSN opens a VectorStore at dsn (":memory:" or a file
// path) with vectors of width dim.
func NewVectorStoreWithDSN(dsn string, dim int) (*VectorStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("rag: failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("rag: failed to create schema: %w", err)
	}

	vecTable := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS rag_vectors USING vec0(embedding float[%d])",
		dim,
	)
	if _, err := db.Exec(vecTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("rag: failed to create vector index: %w", err)
	}

	return &VectorStore{db: db, dim: dim}, nil
}

// Close closes the underlying database connection.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// serialize renders vec as the blob format sqlite-vec expects for both
// inserts and MATCH queries.
func serialize(vec []float32) ([]byte, error) {
	return sqlitevec.SerializeFloat32(vec)
}
