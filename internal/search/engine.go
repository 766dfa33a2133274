package search

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnbean393/hivecrew-retrieval/internal/embed"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// hotWarmPartitions and allPartitions are the storage-tier sets a search
// scans; "cold" is only scanned in deep mode, or on the typing-mode
// fallback path.
var hotWarmPartitions = []string{"hot", "warm"}
var allPartitions = []string{"hot", "warm", "cold"}

// SuggestStore is the subset of Store the engine needs for retrieval,
// narrowed to an interface so the engine can be tested against a fake.
type SuggestStore interface {
	LexicalSearch(ctx context.Context, queryText string, sourceTypes []store.SourceType, partitions []string, limit int) ([]store.LexicalHit, error)
	TopChunkVectorsBySimilarity(ctx context.Context, queryVector []float32, sourceType *store.SourceType, partition string, topK, scanLimit int, minimumSimilarity float64) ([]store.VectorHit, error)
	GetDocumentSummaries(ctx context.Context, ids []string) (map[string]store.DocumentSummary, error)
}

// Engine is the HybridSearchEngine: lexical + vector retrieval, fused by
// rank/similarity blending, boosted by graph co-occurrence, reranked by
// query/field overlap and freshness, and optionally clustered into
// directory pseudo-suggestions.
type Engine struct {
	store    SuggestStore
	embedder embed.Embedder
	graph    *GraphAugmentor
	reranker Reranker
}

// NewEngine builds a HybridSearchEngine.
func NewEngine(s SuggestStore, embedder embed.Embedder, graph *GraphAugmentor, reranker Reranker) *Engine {
	if reranker == nil {
		reranker = NewFeatureReranker()
	}
	return &Engine{store: s, embedder: embedder, graph: graph, reranker: reranker}
}

// Suggest runs the full retrieval sequence and returns up to req.Limit
// ranked suggestions.
func (e *Engine) Suggest(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	t := tuningFor(req.TypingMode)
	compacted := CompactQuery(req.Query)

	partitions := hotWarmPartitions
	if !req.TypingMode {
		partitions = allPartitions
	}

	var lexicalHits []store.LexicalHit
	var vectorHits []store.VectorHit
	var lexicalErr, vectorErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexicalHits, lexicalErr = e.store.LexicalSearch(gctx, compacted.Compacted, req.SourceFilters, partitions, t.lexicalLimit)
		return nil // degrade gracefully; don't cancel the vector leg
	})
	g.Go(func() error {
		vectorHits, vectorErr = e.searchVectors(gctx, compacted.Compacted, req, t, partitions)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	if lexicalErr != nil && vectorErr != nil {
		return Response{}, lexicalErr
	}
	partial := lexicalErr != nil || vectorErr != nil

	docIDs := make([]string, 0, len(lexicalHits)+len(vectorHits))
	for _, h := range lexicalHits {
		docIDs = append(docIDs, h.DocumentID)
	}
	for _, h := range vectorHits {
		docIDs = append(docIDs, h.DocumentID)
	}
	summaries, err := e.store.GetDocumentSummaries(ctx, docIDs)
	if err != nil {
		return Response{}, err
	}

	candidates := e.fuse(lexicalHits, vectorHits, summaries)
	sorted := sortedSuggestionSlice(candidates)

	if e.graph != nil {
		e.applyGraphBoost(ctx, sorted, t)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	}

	reranked := e.reranker.Rerank(ctx, req.Query, sorted, req.TypingMode)

	clusters := clusterDirectories(reranked, req.Query)
	combined := append(reranked, clusters...)
	sort.SliceStable(combined, func(i, j int) bool { return combined[i].Score > combined[j].Score })

	total := len(combined)
	limit := req.Limit
	if limit <= 0 || limit > len(combined) {
		limit = len(combined)
	}

	return Response{
		Suggestions:         combined[:limit],
		Partial:             partial,
		TotalCandidateCount: total,
		LatencyMs:           float64(time.Since(start)) / float64(time.Millisecond),
	}, nil
}

// searchVectors embeds the compacted query and runs the bounded
// brute-force cosine scan, retrying with the cold-partition fallback
// constants when the caller opted in and the hit count is too low.
func (e *Engine) searchVectors(ctx context.Context, compactedQuery string, req Request, t tuning, partitions []string) ([]store.VectorHit, error) {
	queryVector, err := e.embedder.Embed(ctx, compactedQuery)
	if err != nil {
		return nil, err
	}

	hits, err := e.vectorScan(ctx, queryVector, req.SourceFilters, partitions, t.vectorTopK, t.vectorScanLimit, t.similarityFloor)
	if err != nil {
		return nil, err
	}

	if len(hits) < t.coldFallbackMin && req.IncludeColdPartitionFallback {
		fallbackHits, err := e.vectorScan(ctx, queryVector, req.SourceFilters, allPartitions, t.coldTopK, t.coldScanLimit, t.similarityFloor)
		if err == nil {
			hits = fallbackHits
		}
	}
	return hits, nil
}

// vectorScan fans the single-partition, single-source-type store call out
// across every (partition, sourceType) combination requested, merging and
// re-truncating to topK client-side — Store's similarity scan only
// accepts one partition and one optional source type per call.
func (e *Engine) vectorScan(ctx context.Context, queryVector []float32, sourceTypes []store.SourceType, partitions []string, topK, scanLimit int, minSimilarity float64) ([]store.VectorHit, error) {
	sourceTypePtrs := []*store.SourceType{nil}
	if len(sourceTypes) > 0 {
		sourceTypePtrs = make([]*store.SourceType, len(sourceTypes))
		for i := range sourceTypes {
			st := sourceTypes[i]
			sourceTypePtrs[i] = &st
		}
	}

	byChunk := map[string]store.VectorHit{}
	for _, partition := range partitions {
		for _, st := range sourceTypePtrs {
			hits, err := e.store.TopChunkVectorsBySimilarity(ctx, queryVector, st, partition, topK, scanLimit, minSimilarity)
			if err != nil {
				return nil, err
			}
			for _, h := range hits {
				existing, ok := byChunk[h.ChunkID]
				if !ok || h.Similarity > existing.Similarity {
					byChunk[h.ChunkID] = h
				}
			}
		}
	}

	merged := make([]store.VectorHit, 0, len(byChunk))
	for _, h := range byChunk {
		merged = append(merged, h)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Similarity > merged[j].Similarity })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// fuse merges lexical and vector hits into a map of candidates keyed by
// document ID.
func (e *Engine) fuse(lexicalHits []store.LexicalHit, vectorHits []store.VectorHit, summaries map[string]store.DocumentSummary) map[string]*Suggestion {
	candidates := map[string]*Suggestion{}

	for rank, hit := range lexicalHits {
		summary := summaries[hit.DocumentID]
		score := (1.0 / float64(rank+1)) * lexicalRankWeight
		score += recencyWeight(documentUpdatedAt(summary)) * lexicalRecencyWeight

		s := &Suggestion{
			ID:         hit.DocumentID,
			DocumentID: hit.DocumentID,
			SourceType: hit.SourceType,
			Title:      hit.Title,
			Path:       hit.Path,
			Score:      score,
			UpdatedAt:  documentUpdatedAt(summary),
		}
		s.addReason(ReasonLexical)
		s.addReason(ReasonRecency)
		candidates[hit.DocumentID] = s
	}

	for _, hit := range vectorHits {
		summary := summaries[hit.DocumentID]
		score := hit.Similarity*vectorSimilarityWeight + recencyWeight(hit.UpdatedAt)*vectorRecencyWeight

		existing, isMerge := candidates[hit.DocumentID]
		if !isMerge {
			candidates[hit.DocumentID] = &Suggestion{
				ID:         hit.DocumentID,
				DocumentID: hit.DocumentID,
				SourceType: summary.SourceType,
				Title:      summary.Title,
				Path:       summary.Path,
				Snippet:    hit.ChunkText,
				Score:      score,
				UpdatedAt:  hit.UpdatedAt,
				Reasons:    []string{ReasonVector},
			}
			continue
		}

		a, b := existing.Score, score
		if a < b {
			a, b = b, a
		}
		existing.Score = a + b*mergedDualHitBonus
		existing.addReason(ReasonVector)
	}

	return candidates
}

func documentUpdatedAt(s store.DocumentSummary) time.Time {
	if s.UpdatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(int64(s.UpdatedAt), 0)
}

func sortedSuggestionSlice(candidates map[string]*Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(candidates))
	for _, s := range candidates {
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// applyGraphBoost adds a capped graph co-occurrence boost to eligible
// candidates. Seeds are the top graphSeedCount
// suggestions by current score; eligibility requires either a lexical
// match, or a vector match whose base score already clears
// graphEligibilityMinVector.
func (e *Engine) applyGraphBoost(ctx context.Context, sorted []Suggestion, t tuning) {
	seedCount := t.graphSeedCount
	if seedCount > len(sorted) {
		seedCount = len(sorted)
	}
	seeds := make([]string, seedCount)
	for i := 0; i < seedCount; i++ {
		seeds[i] = sorted[i].DocumentID
	}

	graphScores := e.graph.Score(ctx, seeds, t)
	if len(graphScores) == 0 {
		return
	}

	for i := range sorted {
		s := &sorted[i]
		raw, ok := graphScores[s.DocumentID]
		if !ok {
			continue
		}
		if !isGraphEligible(s, t) {
			continue
		}

		boost := raw * graphBoostScale
		if boost > t.graphBoostAbsoluteCap {
			boost = t.graphBoostAbsoluteCap
		}
		if relativeCap := s.Score * t.graphBoostRelativeCap; boost > relativeCap {
			boost = relativeCap
		}
		if boost <= 0 {
			continue
		}
		s.Score += boost
		s.addReason(ReasonGraph)
	}
}

func isGraphEligible(s *Suggestion, t tuning) bool {
	hasLexical, hasVector := false, false
	for _, r := range s.Reasons {
		switch r {
		case ReasonLexical:
			hasLexical = true
		case ReasonVector:
			hasVector = true
		}
	}
	if hasLexical {
		return true
	}
	return hasVector && s.Score >= t.graphEligibilityMinVector
}
