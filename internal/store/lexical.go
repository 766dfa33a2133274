package store

import (
	"context"
	"strings"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

var defaultStopWords = BuildStopWordMap([]string{
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "for",
	"with", "is", "are", "was", "were", "be", "been", "being", "this",
	"that", "these", "those", "it", "its", "as", "at", "by", "from",
})

var pathTitleBoostCues = []string{"/docs/", "template", "readme"}
var pathTitlePenaltyCues = []string{"/site/", "/testing/", "/misc/", "/app archives/"}

// buildFTSMatchExpression tokenizes queryText and produces an FTS5 MATCH
// expression: tokens that look like "anchor" terms (mixed letters and
// digits, or an interior CamelCase word) are AND-ed together, while the
// remaining "content" tokens are OR-ed as a disjunction joined to the
// anchor clause with AND when both groups are non-empty. TokenizeCode has
// already lowercased the tokens and split them at camelCase boundaries, so
// only mixed letter/digit tokens become anchors here; CamelCase words
// from the query are never treated as anchors.
func buildFTSMatchExpression(queryText string) string {
	tokens := TokenizeCode(queryText)
	tokens = FilterStopWords(tokens, defaultStopWords)

	var anchors, content []string
	for _, raw := range tokens {
		if len(raw) < 3 && !(len(raw) >= 2 && containsDigit(raw)) {
			continue
		}
		quoted := `"` + strings.ReplaceAll(raw, `"`, `""`) + `"`
		if isAnchorToken(raw) {
			anchors = append(anchors, quoted)
		} else {
			content = append(content, quoted)
		}
	}

	anchorExpr := strings.Join(anchors, " AND ")
	contentExpr := strings.Join(content, " OR ")

	switch {
	case anchorExpr != "" && contentExpr != "":
		return "(" + anchorExpr + ") AND (" + contentExpr + ")"
	case anchorExpr != "":
		return anchorExpr
	default:
		return contentExpr
	}
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// isAnchorToken reports whether token is "mixed letters/digits" or an
// interior CamelCase word, treated as a high-signal anchor term.
func isAnchorToken(token string) bool {
	hasLetter, hasDigit := false, false
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if hasLetter && hasDigit {
		return true
	}
	return len(SplitCamelCase(token)) > 1
}

// lexicalSearch runs an FTS-backed BM25 join filtered by searchability,
// source type, and partition, then appends a path/title anchor pass with
// cue boosts/penalties, concatenating [pathTitleHits, contentHits] deduped
// by document ID and truncated to limit.
func (s *Store) lexicalSearch(ctx context.Context, queryText string, sourceTypes []SourceType, partitions []string, limit int) ([]LexicalHit, error) {
	matchExpr := buildFTSMatchExpression(queryText)
	if matchExpr == "" {
		return nil, nil
	}

	query := `
		SELECT d.id, d.source_type, d.title, d.source_path_or_handle, bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN documents d ON d.id = chunks_fts.document_id
		WHERE chunks_fts MATCH ? AND d.searchable = 1`
	args := []any{matchExpr}
	query += filterClause("d.source_type", sourceTypeStrings(sourceTypes), &args)
	query += filterClause("d.partition_label", partitions, &args)
	query += ` ORDER BY score LIMIT ?`
	args = append(args, limit*8)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return s.pathTitleAnchorHits(ctx, queryText, sourceTypes, partitions, limit)
		}
		return nil, daemonerr.Sqlite("lexical search failed", err)
	}

	seen := map[string]struct{}{}
	var contentHits []LexicalHit
	for rows.Next() {
		var id, sourceType, title, path string
		var score float64
		if err := rows.Scan(&id, &sourceType, &title, &path, &score); err != nil {
			_ = rows.Close()
			return nil, daemonerr.Sqlite("failed to scan lexical hit", err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		contentHits = append(contentHits, LexicalHit{
			DocumentID: id,
			SourceType: SourceType(sourceType),
			Title:      title,
			Path:       path,
			Score:      -score, // fts5 bm25() is negative; higher positive = better
			Reason:     "lexical",
		})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, daemonerr.Sqlite("failed reading lexical hits", err)
	}
	_ = rows.Close()

	pathTitleHits, err := s.pathTitleAnchorHits(ctx, queryText, sourceTypes, partitions, limit)
	if err != nil {
		return nil, err
	}

	var merged []LexicalHit
	for _, h := range pathTitleHits {
		if _, dup := seen[h.DocumentID]; dup {
			continue
		}
		seen[h.DocumentID] = struct{}{}
		merged = append(merged, h)
	}
	merged = append(merged, contentHits...)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// pathTitleAnchorHits scores substring matches of the raw query tokens
// against document title/path, applying cue boosts and penalties.
func (s *Store) pathTitleAnchorHits(ctx context.Context, queryText string, sourceTypes []SourceType, partitions []string, limit int) ([]LexicalHit, error) {
	tokens := FilterStopWords(TokenizeCode(queryText), defaultStopWords)
	if len(tokens) == 0 {
		return nil, nil
	}

	query := `SELECT id, source_type, title, source_path_or_handle FROM documents WHERE searchable = 1`
	args := []any{}
	query += filterClause("source_type", sourceTypeStrings(sourceTypes), &args)
	query += filterClause("partition_label", partitions, &args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, daemonerr.Sqlite("path/title anchor scan failed", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var id, sourceType, title, path string
		if err := rows.Scan(&id, &sourceType, &title, &path); err != nil {
			return nil, daemonerr.Sqlite("failed to scan document for anchor pass", err)
		}

		haystack := strings.ToLower(title + " " + path)
		matched := 0
		for _, t := range tokens {
			if strings.Contains(haystack, strings.ToLower(t)) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		score := float64(matched)
		for _, cue := range pathTitleBoostCues {
			if strings.Contains(haystack, cue) {
				score += 1.0
			}
		}
		for _, cue := range pathTitlePenaltyCues {
			if strings.Contains(haystack, cue) {
				score -= 1.0
			}
		}

		hits = append(hits, LexicalHit{
			DocumentID: id,
			SourceType: SourceType(sourceType),
			Title:      title,
			Path:       path,
			Score:      score,
			Reason:     "path-title-anchor",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, daemonerr.Sqlite("failed reading anchor pass rows", err)
	}

	sortLexicalHitsDesc(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func sortLexicalHitsDesc(hits []LexicalHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func sourceTypeStrings(sourceTypes []SourceType) []string {
	out := make([]string, len(sourceTypes))
	for i, st := range sourceTypes {
		out[i] = string(st)
	}
	return out
}

// filterClause appends an " AND col IN (...)" fragment (and its args) to
// args when values is non-empty, returning the SQL fragment to concatenate.
func filterClause(col string, values []string, args *[]any) string {
	if len(values) == 0 {
		return ""
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, v)
	}
	return " AND " + col + " IN (" + strings.Join(placeholders, ",") + ")"
}
