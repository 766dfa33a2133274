package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// encodeVectorBlob packs a float32 vector as little-endian bytes. This
// is the only format ever written; decodeVectorBlob's JSON fallback
// exists purely to read rows from before this format existed.
func encodeVectorBlob(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVectorBlob decodes a packed little-endian float32 blob. When the
// first non-whitespace byte is '[', the blob is instead treated as a
// legacy JSON float array and decoded that way.
func decodeVectorBlob(blob []byte) ([]float32, error) {
	if i := firstNonSpace(blob); i >= 0 && blob[i] == '[' {
		var floats []float64
		if err := json.Unmarshal(blob[i:], &floats); err != nil {
			return nil, daemonerr.Invalid("malformed legacy vector json")
		}
		out := make([]float32, len(floats))
		for i, f := range floats {
			out[i] = float32(f)
		}
		return out, nil
	}

	if len(blob)%4 != 0 {
		return nil, daemonerr.Invalid("vector blob length not a multiple of 4")
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out, nil
}

func firstNonSpace(b []byte) int {
	for i, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return i
		}
	}
	return -1
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// topChunkVectorsBySimilarity performs an exact brute-force cosine scan
// over up to scanLimit stored vectors (newest-first), keeping the topK
// strongest matches at or above minimumSimilarity. Rows whose
// decoded vector length doesn't match len(queryVector) are skipped.
func (s *Store) topChunkVectorsBySimilarity(ctx context.Context, queryVector []float32, sourceType *SourceType, partition string, topK, scanLimit int, minimumSimilarity float64) ([]VectorHit, error) {
	query := `
		SELECT cv.chunk_id, cv.document_id, cv.vector_blob, d.updated_at
		FROM chunk_vectors cv
		JOIN documents d ON d.id = cv.document_id
		WHERE d.searchable = 1`
	args := []any{}
	if sourceType != nil {
		query += ` AND d.source_type = ?`
		args = append(args, string(*sourceType))
	}
	if partition != "" {
		query += ` AND d.partition_label = ?`
		args = append(args, partition)
	}
	query += ` ORDER BY d.updated_at DESC LIMIT ?`
	args = append(args, scanLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, daemonerr.Sqlite("failed to scan chunk vectors", err)
	}
	defer rows.Close()

	var candidates []VectorHit
	for rows.Next() {
		var chunkID, documentID string
		var blob []byte
		var updatedAt float64
		if err := rows.Scan(&chunkID, &documentID, &blob, &updatedAt); err != nil {
			return nil, daemonerr.Sqlite("failed to scan chunk vector row", err)
		}

		vec, cached := s.vectorCache.Get(chunkID)
		if !cached {
			decoded, err := decodeVectorBlob(blob)
			if err != nil {
				continue
			}
			vec = decoded
			s.vectorCache.Add(chunkID, vec)
		}
		if len(vec) != len(queryVector) {
			continue
		}

		sim := cosineSimilarity(queryVector, vec)
		if sim < minimumSimilarity {
			continue
		}
		candidates = append(candidates, VectorHit{
			ChunkID:    chunkID,
			DocumentID: documentID,
			UpdatedAt:  timeFromUnix(updatedAt),
			Similarity: sim,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, daemonerr.Sqlite("failed reading chunk vector rows", err)
	}

	top := retainTopK(candidates, topK)
	if err := s.populateChunkText(ctx, top); err != nil {
		return nil, err
	}
	return top, nil
}

// retainTopK keeps the topK strongest hits, ties broken by the most
// recently updated document, replacing the single weakest retained slot
// as stronger candidates are found.
func retainTopK(candidates []VectorHit, topK int) []VectorHit {
	if topK <= 0 || len(candidates) <= topK {
		sorted := append([]VectorHit{}, candidates...)
		sortHitsDesc(sorted)
		return sorted
	}

	kept := append([]VectorHit{}, candidates[:topK]...)
	sortHitsDesc(kept)
	for _, c := range candidates[topK:] {
		weakestIdx := len(kept) - 1
		if betterHit(c, kept[weakestIdx]) {
			kept[weakestIdx] = c
			sortHitsDesc(kept)
		}
	}
	return kept
}

func betterHit(a, b VectorHit) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

func sortHitsDesc(hits []VectorHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && betterHit(hits[j], hits[j-1]); j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func (s *Store) populateChunkText(ctx context.Context, hits []VectorHit) error {
	if len(hits) == 0 {
		return nil
	}
	placeholders := ""
	args := make([]any, len(hits))
	for i, h := range hits {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = h.ChunkID
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT chunk_id, text FROM chunks_fts WHERE chunk_id IN ("+placeholders+")", args...)
	if err != nil {
		return daemonerr.Sqlite("failed to load chunk text", err)
	}
	defer rows.Close()

	texts := make(map[string]string, len(hits))
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return daemonerr.Sqlite("failed to scan chunk text row", err)
		}
		texts[id] = text
	}
	if err := rows.Err(); err != nil {
		return daemonerr.Sqlite("failed reading chunk text rows", err)
	}

	for i := range hits {
		hits[i].ChunkText = texts[hits[i].ChunkID]
	}
	return nil
}
