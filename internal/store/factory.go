package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
)

// LexicalBackend selects the lexical index implementation.
type LexicalBackend string

const (
	// LexicalBackendSQLite uses SQLite FTS5 (default). Shares the store
	// database and supports concurrent multi-process access via WAL.
	LexicalBackendSQLite LexicalBackend = "sqlite"

	// LexicalBackendBleve uses Bleve v2. Exclusive file lock via BoltDB,
	// single process only.
	LexicalBackendBleve LexicalBackend = "bleve"
)

// NewLexicalIndex creates a LexicalIndex for the configured backend.
// db is the store's database handle (used by the sqlite backend); dataDir
// holds the bleve index directory. An empty backend defaults to sqlite.
func NewLexicalIndex(backend string, db *sql.DB, dataDir string) (LexicalIndex, error) {
	switch backend {
	case string(LexicalBackendSQLite), "":
		return NewFTSIndex(db)
	case string(LexicalBackendBleve):
		var path string
		if dataDir != "" {
			path = filepath.Join(dataDir, "lexical.bleve")
		}
		return NewBleveIndex(path)
	default:
		return nil, fmt.Errorf("unknown lexical backend: %s (valid options: sqlite, bleve)", backend)
	}
}
