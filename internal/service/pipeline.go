package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/johnbean393/hivecrew-retrieval/internal/connector"
	"github.com/johnbean393/hivecrew-retrieval/internal/contextpack"
	"github.com/johnbean393/hivecrew-retrieval/internal/policy"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

const (
	chunkSizeChars = 1000

	// graphMentionConfidence/Weight are constant: confidence 0.6,
	// weight 1.0 for every mentions edge the Service inserts.
	graphMentionConfidence = 0.6
	graphMentionWeight     = 1.0
	graphMaxMentionTokens  = 10
	graphMinTokenLength    = 3
)

// ingestSingleEvent runs the seven-step per-event pipeline: idempotency
// check, payload resolution, document build, immediate upsert, chunk +
// embed, persist, graph edges. Any failure after the document row is
// upserted is recorded in metrics/audit and swallowed: the Document row
// survives, possibly without chunks or vectors.
func (s *Service) ingestSingleEvent(ctx context.Context, e connector.IngestionEvent) {
	occurredAtUnix := float64(e.OccurredAt.Unix())

	// Step 1: idempotency check.
	current, err := s.store.IsDocumentCurrent(ctx, e.SourceType, e.SourceID, occurredAtUnix)
	if err != nil {
		s.recordFailure(ctx, e, "idempotency_check_failed", err)
		return
	}
	if current {
		s.recordAttempt(ctx, e, "skipped")
		return
	}

	if e.Operation == connector.OpDelete {
		if err := s.store.DeleteDocument(ctx, e.SourceType, e.SourceID); err != nil {
			s.recordFailure(ctx, e, "delete_failed", err)
			return
		}
		s.recordAttempt(ctx, e, "success")
		return
	}

	// Step 2: resolve payload.
	body := strings.TrimSpace(e.Body)
	title := e.Title
	if e.SourceType == store.SourceFile {
		result := s.extractor.Extract(ctx, e.SourcePathOrHandle)
		s.recordExtractionOutcome(ctx, e, result)
		body = strings.TrimSpace(result.Content.Text)
		if result.Content.Title != "" {
			title = result.Content.Title
		}
		if body == "" {
			s.recordAttempt(ctx, e, string(result.Outcome))
			return
		}
	} else if body == "" {
		s.recordAttempt(ctx, e, "unsupported")
		return
	}

	// Step 3: build the Document.
	nonSearchableExt := s.policy.NonSearchableExtensions()
	doc := store.Document{
		ID:                 documentID(e.SourceType, e.SourceID),
		SourceType:         e.SourceType,
		SourceID:           e.SourceID,
		Title:              title,
		Body:               contextpack.Redact(body),
		SourcePathOrHandle: e.SourcePathOrHandle,
		UpdatedAt:          e.OccurredAt,
		Risk:               contextpack.InferRisk(body),
		Searchable:         !hasNonSearchableExtension(e.SourcePathOrHandle, nonSearchableExt),
	}
	doc.Partition = string(policy.PartitionForAge(doc.UpdatedAt))

	// Step 4: publish the document row immediately, before heavy work.
	if err := s.store.UpsertDocumentRecord(ctx, doc); err != nil {
		s.recordFailure(ctx, e, "document_record_upsert_failed", err)
		return
	}

	var chunks []store.Chunk
	if doc.Searchable {
		// Step 5: chunk + embed.
		texts := splitIntoChunks(doc.Body, chunkSizeChars, s.maxChunksPerDocument)
		if len(texts) > 0 {
			embedder := s.embedPool.For(doc.ID)
			vectors, err := embedder.EmbedBatch(ctx, texts)
			if err != nil {
				s.recordFailure(ctx, e, "embedding_failed", err)
				return
			}
			for i, text := range texts {
				var vec []float32
				if i < len(vectors) {
					vec = vectors[i]
				}
				chunks = append(chunks, store.Chunk{DocumentID: doc.ID, Index: i, Text: text, Embedding: vec})
			}
		}
	}

	// Step 6: persist chunks/vectors and graph edges.
	if err := s.store.UpsertDocument(ctx, doc, chunks); err != nil {
		s.recordFailure(ctx, e, "document_upsert_failed", err)
		return
	}
	if doc.Searchable {
		edges := buildGraphEdges(doc)
		if len(edges) > 0 {
			if err := s.store.InsertGraphEdges(ctx, edges); err != nil {
				s.recordFailure(ctx, e, "graph_edge_insert_failed", err)
				return
			}
		}
	}

	s.recordAttempt(ctx, e, "success")
}

// documentID derives the content-addressed document ID from the source
// type and source ID, prefixed "doc_".
func documentID(sourceType store.SourceType, sourceID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", sourceType, sourceID)))
	return "doc_" + hex.EncodeToString(sum[:])[:24]
}

func hasNonSearchableExtension(path string, extensions []string) bool {
	lower := strings.ToLower(path)
	for _, ext := range extensions {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// splitIntoChunks splits body into contiguous slices of up to size
// characters, capped at maxChunks.
func splitIntoChunks(body string, size, maxChunks int) []string {
	runes := []rune(body)
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if maxChunks > 0 && len(chunks) >= maxChunks {
			break
		}
	}
	return chunks
}

// buildGraphEdges derives up to graphMaxMentionTokens unique "mentions"
// edges from a searchable document's body. Tokens are alphanumeric runs that may also contain `@` or `.`
// (covers email addresses and dotted identifiers), length > 3,
// lower-cased for dedup.
func buildGraphEdges(doc store.Document) []store.GraphEdge {
	tokens := extractMentionTokens(doc.Body, graphMaxMentionTokens)
	edges := make([]store.GraphEdge, 0, len(tokens))
	for _, tok := range tokens {
		edges = append(edges, store.GraphEdge{
			ID:         fmt.Sprintf("%s:mentions:%s", doc.ID, tok),
			SourceNode: doc.ID,
			TargetNode: tok,
			EdgeType:   "mentions",
			Confidence: graphMentionConfidence,
			Weight:     graphMentionWeight,
			SourceType: doc.SourceType,
			UpdatedAt:  doc.UpdatedAt,
		})
	}
	return edges
}

func extractMentionTokens(body string, max int) []string {
	isTokenRune := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '@' || r == '.'
	}

	seen := make(map[string]struct{})
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		tok := strings.ToLower(current.String())
		current.Reset()
		if len([]rune(tok)) <= graphMinTokenLength {
			return
		}
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	for _, r := range body {
		if len(tokens) >= max {
			break
		}
		if isTokenRune(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	if len(tokens) < max {
		flush()
	}
	return tokens
}
