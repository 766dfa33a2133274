package store

import (
	"context"
	"strings"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// LexicalSearch runs the FTS5-backed BM25 search plus path/title anchor
// pass. Exported for internal/search's retrieval sequence.
func (s *Store) LexicalSearch(ctx context.Context, queryText string, sourceTypes []SourceType, partitions []string, limit int) ([]LexicalHit, error) {
	return s.lexicalSearch(ctx, queryText, sourceTypes, partitions, limit)
}

// TopChunkVectorsBySimilarity runs the bounded brute-force cosine scan.
// Exported for internal/search's retrieval sequence.
func (s *Store) TopChunkVectorsBySimilarity(ctx context.Context, queryVector []float32, sourceType *SourceType, partition string, topK, scanLimit int, minimumSimilarity float64) ([]VectorHit, error) {
	return s.topChunkVectorsBySimilarity(ctx, queryVector, sourceType, partition, topK, scanLimit, minimumSimilarity)
}

// GraphNeighbors returns edges touching any of seedDocumentIds, strongest
// first, capped at maxEdges. Exported for GraphAugmentor.
func (s *Store) GraphNeighbors(ctx context.Context, seedDocumentIds []string, maxEdges int) ([]GraphEdge, error) {
	return s.graphNeighbors(ctx, seedDocumentIds, maxEdges)
}

// DocumentSummary is the metadata slice of a Document needed to render a
// suggestion: enough to show a title/path/recency without refetching the
// full body.
type DocumentSummary struct {
	ID         string
	SourceType SourceType
	Title      string
	Path       string
	UpdatedAt  float64
	Risk       RiskLabel
	Partition  string
}

// GetDocumentSummaries batch-fetches document metadata by ID, used to
// hydrate vector hits (which carry no title/path) and the directory
// clustering pass.
func (s *Store) GetDocumentSummaries(ctx context.Context, ids []string) (map[string]DocumentSummary, error) {
	out := make(map[string]DocumentSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	seen := map[string]struct{}{}
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]any, len(unique))
	for i, id := range unique {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_type, title, source_path_or_handle, updated_at, risk, partition_label
		 FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, daemonerr.Sqlite("failed to fetch document summaries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d DocumentSummary
		var sourceType, risk string
		if err := rows.Scan(&d.ID, &sourceType, &d.Title, &d.Path, &d.UpdatedAt, &risk, &d.Partition); err != nil {
			return nil, daemonerr.Sqlite("failed to scan document summary", err)
		}
		d.SourceType = SourceType(sourceType)
		d.Risk = RiskLabel(risk)
		out[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, daemonerr.Sqlite("failed reading document summary rows", err)
	}
	return out, nil
}
