package search

import (
	"context"
	"sort"

	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// Reranker re-scores an already-fused, already-sorted suggestion list
// against the caller's original (uncompacted) query.
// It is a narrow interface so a future cross-encoder or remote reranker
// can stand in for FeatureReranker without touching the engine.
type Reranker interface {
	Rerank(ctx context.Context, originalQuery string, suggestions []Suggestion, typingMode bool) []Suggestion
}

// FeatureReranker scores title/snippet token overlap against the
// original query plus a linear freshness decay — no model call, so it
// never fails and never needs an Available check.
type FeatureReranker struct{}

// NewFeatureReranker builds the default, model-free Reranker.
func NewFeatureReranker() *FeatureReranker {
	return &FeatureReranker{}
}

// Rerank keeps the top rerankKeepCount suggestions for the mode, adds the
// title/snippet overlap and freshness terms to each score, and resorts.
func (r *FeatureReranker) Rerank(_ context.Context, originalQuery string, suggestions []Suggestion, typingMode bool) []Suggestion {
	t := tuningFor(typingMode)
	if len(suggestions) > t.rerankKeepCount {
		suggestions = suggestions[:t.rerankKeepCount]
	}

	queryTokens := uniqueTokenSet(originalQuery)
	if len(queryTokens) == 0 {
		return suggestions
	}

	for i := range suggestions {
		s := &suggestions[i]
		titleOverlap := tokenOverlapRatio(queryTokens, s.Title)
		snippetOverlap := tokenOverlapRatio(queryTokens, s.Snippet)
		fresh := freshnessBoost(s.UpdatedAt)

		s.Score += titleOverlap*rerankTitleOverlapWeight +
			snippetOverlap*rerankSnippetOverlapWeight +
			fresh*rerankFreshnessWeight
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	return suggestions
}

func uniqueTokenSet(text string) map[string]struct{} {
	tokens := store.TokenizeCode(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// tokenOverlapRatio is |queryTokens ∩ fieldTokens| / |queryTokens|.
func tokenOverlapRatio(queryTokens map[string]struct{}, field string) float64 {
	if len(queryTokens) == 0 || field == "" {
		return 0
	}
	fieldTokens := uniqueTokenSet(field)
	if len(fieldTokens) == 0 {
		return 0
	}
	matched := 0
	for t := range queryTokens {
		if _, ok := fieldTokens[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

var _ Reranker = (*FeatureReranker)(nil)
