package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureReranker_BoostsTitleAndSnippetOverlap(t *testing.T) {
	r := NewFeatureReranker()
	suggestions := []Suggestion{
		{ID: "a", Title: "unrelated document", Snippet: "nothing matches here", Score: 0.5},
		{ID: "b", Title: "password reset guide", Snippet: "steps to reset your password", Score: 0.5},
	}

	out := r.Rerank(context.Background(), "reset password", suggestions, true)

	assert.Equal(t, "b", out[0].ID, "the overlapping suggestion should rerank to the top")
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestFeatureReranker_TruncatesToKeepCount(t *testing.T) {
	r := NewFeatureReranker()
	suggestions := make([]Suggestion, typingTuning.rerankKeepCount+10)
	for i := range suggestions {
		suggestions[i] = Suggestion{ID: "doc", Score: float64(len(suggestions) - i)}
	}

	out := r.Rerank(context.Background(), "doc", suggestions, true)
	assert.Len(t, out, typingTuning.rerankKeepCount)
}

func TestFeatureReranker_EmptyQueryLeavesScoresUnchanged(t *testing.T) {
	r := NewFeatureReranker()
	suggestions := []Suggestion{{ID: "a", Title: "anything", Score: 0.7}}

	out := r.Rerank(context.Background(), "   ", suggestions, true)
	assert.Equal(t, 0.7, out[0].Score)
}

func TestTokenOverlapRatio_PartialMatch(t *testing.T) {
	queryTokens := uniqueTokenSet("reset my password now")
	ratio := tokenOverlapRatio(queryTokens, "password reset instructions")
	assert.Greater(t, ratio, 0.0)
	assert.Less(t, ratio, 1.0)
}
