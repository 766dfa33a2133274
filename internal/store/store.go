// Package store implements the retrieval daemon's single-file
// transactional index: documents, FTS5 lexical rows, packed vector
// blobs, graph edges, checkpoints, jobs, and audit events, all in one
// SQLite database opened with modernc.org/sqlite (pure Go, grounded on
// a reference sqlite-backed BM25 store).
package store

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// vectorCacheCapacity bounds the decode-cache entries.
const vectorCacheCapacity = 16384

// Store serializes all access to the SQLite database behind a single
// actor-style mutex. Read-heavy query paths still go through db/sql's own
// connection pool, but mutating multi-row operations take mu to keep
// transactions from interleaving destructively.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	vectorCache *lru.Cache[string, []float32]
}

// Open opens (creating if necessary) the database at path and runs the
// schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, daemonerr.Sqlite("failed to open database", err)
	}
	db.SetMaxOpenConns(1) // single-writer SQLite file; avoid SQLITE_BUSY churn

	cache, err := lru.New[string, []float32](vectorCacheCapacity)
	if err != nil {
		return nil, daemonerr.Sqlite("failed to allocate vector cache", err)
	}

	s := &Store{db: db, vectorCache: cache}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return daemonerr.Sqlite("schema migration statement failed", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Compact runs a WAL checkpoint-truncate followed by VACUUM.
func (s *Store) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return daemonerr.Sqlite("wal checkpoint failed", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return daemonerr.Sqlite("vacuum failed", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on any error. All
// mutating multi-row operations run under an explicit transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return daemonerr.Sqlite("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return daemonerr.Sqlite("failed to commit transaction", err)
	}
	return nil
}
