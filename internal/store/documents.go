package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// UpsertDocument upserts doc and atomically replaces its chunk set: prior
// FTS and vector rows for the document are purged, then reinserted from
// chunks. The persisted document ID for (SourceType,
// SourceID) always wins over doc.ID — new deterministic IDs never re-key
// an existing row.
func (s *Store) UpsertDocument(ctx context.Context, doc Document, chunks []Chunk) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		persistedID, err := upsertDocumentRow(ctx, tx, doc)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE document_id = ?`, persistedID); err != nil {
			return daemonerr.Sqlite("failed to purge fts rows", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE document_id = ?`, persistedID); err != nil {
			return daemonerr.Sqlite("failed to purge vector rows", err)
		}

		if !doc.Searchable {
			return nil
		}

		for _, c := range chunks {
			cid := chunkID(persistedID, c.Index)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunks_fts(chunk_id, document_id, source_type, title, text) VALUES (?, ?, ?, ?, ?)`,
				cid, persistedID, string(doc.SourceType), doc.Title, c.Text); err != nil {
				return daemonerr.Sqlite("failed to insert fts row", err)
			}
			blob := encodeVectorBlob(c.Embedding)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunk_vectors(chunk_id, document_id, chunk_index, vector_blob) VALUES (?, ?, ?, ?)`,
				cid, persistedID, c.Index, blob); err != nil {
				return daemonerr.Sqlite("failed to insert vector row", err)
			}
			s.vectorCache.Add(cid, c.Embedding)
		}
		return nil
	})
}

// UpsertDocumentRecord is a standalone document upsert used to publish
// progress before heavy embedding work.
func (s *Store) UpsertDocumentRecord(ctx context.Context, doc Document) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := upsertDocumentRow(ctx, tx, doc)
		return err
	})
}

// upsertDocumentRow inserts or updates the documents row, returning the
// persisted document ID (which may differ from doc.ID if a row already
// exists for this (source_type, source_id)).
func upsertDocumentRow(ctx context.Context, tx *sql.Tx, doc Document) (string, error) {
	var existingID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE source_type = ? AND source_id = ?`,
		string(doc.SourceType), doc.SourceID).Scan(&existingID)

	persistedID := doc.ID
	switch {
	case err == nil:
		persistedID = existingID
	case errors.Is(err, sql.ErrNoRows):
		// fresh document, use doc.ID as persistedID
	default:
		return "", daemonerr.Sqlite("failed to look up existing document", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, source_type, source_id, title, body, source_path_or_handle, updated_at, risk, partition_label, searchable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_type, source_id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			source_path_or_handle = excluded.source_path_or_handle,
			updated_at = excluded.updated_at,
			risk = excluded.risk,
			partition_label = excluded.partition_label,
			searchable = excluded.searchable
	`, persistedID, string(doc.SourceType), doc.SourceID, doc.Title, doc.Body, doc.SourcePathOrHandle,
		unixSeconds(doc.UpdatedAt), string(doc.Risk), doc.Partition, boolToInt(doc.Searchable))
	if err != nil {
		return "", daemonerr.Sqlite("failed to upsert document row", err)
	}
	return persistedID, nil
}

// IsDocumentCurrent reports whether the persisted row for (sourceType,
// sourceId) has updated_at >= updatedAt, meaning ingestion of this event
// would be a no-op.
func (s *Store) IsDocumentCurrent(ctx context.Context, sourceType SourceType, sourceID string, updatedAt float64) (bool, error) {
	var persisted float64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM documents WHERE source_type = ? AND source_id = ?`,
		string(sourceType), sourceID).Scan(&persisted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, daemonerr.Sqlite("failed to check document currency", err)
	}
	return persisted >= updatedAt, nil
}

// RefreshFileSearchability demotes file documents whose path ends with
// any of the given extensions to non-searchable, purging their chunks,
// vectors, and outgoing mentions edges.
func (s *Store) RefreshFileSearchability(ctx context.Context, nonSearchableExtensions []string) (int, error) {
	if len(nonSearchableExtensions) == 0 {
		return 0, nil
	}
	demoted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, source_path_or_handle FROM documents WHERE source_type = ? AND searchable = 1`,
			string(SourceFile))
		if err != nil {
			return daemonerr.Sqlite("failed to scan documents for demotion", err)
		}
		type cand struct{ id, path string }
		var candidates []cand
		for rows.Next() {
			var c cand
			if err := rows.Scan(&c.id, &c.path); err != nil {
				_ = rows.Close()
				return daemonerr.Sqlite("failed to scan document row", err)
			}
			candidates = append(candidates, c)
		}
		_ = rows.Close()

		for _, c := range candidates {
			lower := strings.ToLower(c.path)
			matched := false
			for _, ext := range nonSearchableExtensions {
				if strings.HasSuffix(lower, strings.ToLower(ext)) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE documents SET searchable = 0 WHERE id = ?`, c.id); err != nil {
				return daemonerr.Sqlite("failed to demote document", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE document_id = ?`, c.id); err != nil {
				return daemonerr.Sqlite("failed to purge fts rows on demotion", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE document_id = ?`, c.id); err != nil {
				return daemonerr.Sqlite("failed to purge vector rows on demotion", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM graph_edges WHERE source_node = ?`, c.id); err != nil {
				return daemonerr.Sqlite("failed to purge edges on demotion", err)
			}
			demoted++
		}
		return nil
	})
	return demoted, err
}

// DeleteDocumentsForPath deletes file documents matching the exact path
// or a path-prefix match, cascading to chunks,
// vectors, ingestion attempts, and graph edges in both directions (a
// path-prefix delete purges edges on both source_node and target_node,
// per the Open Question decision recorded in DESIGN.md).
func (s *Store) DeleteDocumentsForPath(ctx context.Context, sourceType SourceType, path string) (int, error) {
	var docs []documentKey
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_type, source_id FROM documents WHERE source_type = ? AND (
			source_path_or_handle = ? OR source_path_or_handle LIKE ?
		)`, string(sourceType), path, path+"%")
	if err != nil {
		return 0, daemonerr.Sqlite("failed to find documents for path delete", err)
	}
	for rows.Next() {
		var k documentKey
		if err := rows.Scan(&k.id, &k.sourceType, &k.sourceID); err != nil {
			_ = rows.Close()
			return 0, daemonerr.Sqlite("failed to scan document id", err)
		}
		docs = append(docs, k)
	}
	_ = rows.Close()

	const batchSize = 300
	deleted := 0
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]
		if err := s.deleteDocumentBatch(ctx, batch); err != nil {
			return deleted, err
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// documentKey identifies a document row by its persisted ID and its
// natural (sourceType, sourceId) key — ingestion_attempts is keyed by the
// latter, not the former, so a batch delete needs both.
type documentKey struct {
	id         string
	sourceType string
	sourceID   string
}

func (s *Store) deleteDocumentBatch(ctx context.Context, docs []documentKey) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(docs)), ",")
		ids := make([]any, len(docs))
		for i, d := range docs {
			ids[i] = d.id
		}

		for _, stmt := range []string{
			"DELETE FROM chunks_fts WHERE document_id IN (" + placeholders + ")",
			"DELETE FROM chunk_vectors WHERE document_id IN (" + placeholders + ")",
			"DELETE FROM graph_edges WHERE source_node IN (" + placeholders + ") OR target_node IN (" + placeholders + ")",
			"DELETE FROM documents WHERE id IN (" + placeholders + ")",
		} {
			execArgs := ids
			if strings.Count(stmt, "?") == 2*len(docs) {
				execArgs = append(append([]any{}, ids...), ids...)
			}
			if _, err := tx.ExecContext(ctx, stmt, execArgs...); err != nil {
				return daemonerr.Sqlite("failed to delete document batch", err)
			}
		}

		for _, d := range docs {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM ingestion_attempts WHERE source_type = ? AND source_id = ?`,
				d.sourceType, d.sourceID); err != nil {
				return daemonerr.Sqlite("failed to delete ingestion attempt", err)
			}
		}
		return nil
	})
}

// DeleteDocument removes a single document by its natural key, matching
// the live single-file delete-event path: only edges where the document
// is the source_node are purged, leaving target_node references intact
// (see DESIGN.md's Open Question decision — the broader prefix delete in
// DeleteDocumentsForPath purges both directions instead).
func (s *Store) DeleteDocument(ctx context.Context, sourceType SourceType, sourceID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM documents WHERE source_type = ? AND source_id = ?`,
			string(sourceType), sourceID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return daemonerr.Sqlite("failed to look up document for delete", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE document_id = ?`, id); err != nil {
			return daemonerr.Sqlite("failed to delete document", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE document_id = ?`, id); err != nil {
			return daemonerr.Sqlite("failed to delete document", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ingestion_attempts WHERE source_type = ? AND source_id = ?`, string(sourceType), sourceID); err != nil {
			return daemonerr.Sqlite("failed to delete document", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM graph_edges WHERE source_node = ?`, id); err != nil {
			return daemonerr.Sqlite("failed to delete document", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return daemonerr.Sqlite("failed to delete document", err)
		}
		return nil
	})
}

// DocumentCountBySource returns the number of documents per source type,
// for indexStats().
func (s *Store) DocumentCountBySource(ctx context.Context) (map[SourceType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_type, COUNT(*) FROM documents GROUP BY source_type`)
	if err != nil {
		return nil, daemonerr.Sqlite("failed to count documents by source", err)
	}
	defer rows.Close()

	counts := make(map[SourceType]int)
	for rows.Next() {
		var sourceType string
		var count int
		if err := rows.Scan(&sourceType, &count); err != nil {
			return nil, daemonerr.Sqlite("failed to scan document count row", err)
		}
		counts[SourceType(sourceType)] = count
	}
	return counts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
