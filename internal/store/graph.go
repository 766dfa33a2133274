package store

import (
	"context"
	"database/sql"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// InsertGraphEdges upserts a batch of co-occurrence edges, replacing any
// existing row with the same ID.
func (s *Store) InsertGraphEdges(ctx context.Context, edges []GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO graph_edges (id, source_node, target_node, edge_type, confidence, weight, source_type, event_time, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				confidence = excluded.confidence,
				weight = excluded.weight,
				event_time = excluded.event_time,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return daemonerr.Sqlite("failed to prepare edge insert", err)
		}
		defer stmt.Close()

		for _, e := range edges {
			var eventTime any
			if e.EventTime != nil {
				eventTime = unixSeconds(*e.EventTime)
			}
			if _, err := stmt.ExecContext(ctx, e.ID, e.SourceNode, e.TargetNode, e.EdgeType,
				e.Confidence, e.Weight, string(e.SourceType), eventTime, unixSeconds(e.UpdatedAt)); err != nil {
				return daemonerr.Sqlite("failed to insert graph edge", err)
			}
		}
		return nil
	})
}

// graphNeighbors selects edges touching any of seedDocumentIds, strongest
// first, capped at maxEdges.
func (s *Store) graphNeighbors(ctx context.Context, seedDocumentIds []string, maxEdges int) ([]GraphEdge, error) {
	if len(seedDocumentIds) == 0 || maxEdges <= 0 {
		return nil, nil
	}

	placeholders := ""
	args := make([]any, 0, 2*len(seedDocumentIds))
	for i, id := range seedDocumentIds {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}
	for _, id := range seedDocumentIds {
		args = append(args, id)
	}
	args = append(args, maxEdges)

	query := `
		SELECT id, source_node, target_node, edge_type, confidence, weight, source_type, event_time, updated_at
		FROM graph_edges
		WHERE source_node IN (` + placeholders + `) OR target_node IN (` + placeholders + `)
		ORDER BY confidence DESC, updated_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, daemonerr.Sqlite("failed to query graph neighbors", err)
	}
	defer rows.Close()

	var edges []GraphEdge
	for rows.Next() {
		var e GraphEdge
		var sourceType string
		var updatedAt float64
		var eventTime sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.SourceNode, &e.TargetNode, &e.EdgeType, &e.Confidence,
			&e.Weight, &sourceType, &eventTime, &updatedAt); err != nil {
			return nil, daemonerr.Sqlite("failed to scan graph edge", err)
		}
		e.SourceType = SourceType(sourceType)
		e.UpdatedAt = timeFromUnix(updatedAt)
		if eventTime.Valid {
			t := timeFromUnix(eventTime.Float64)
			e.EventTime = &t
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, daemonerr.Sqlite("failed reading graph neighbor rows", err)
	}
	return edges, nil
}
