package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

type fakeSuggestStore struct {
	lexicalHits []store.LexicalHit
	lexicalErr  error
	vectorHits  []store.VectorHit
	vectorErr   error
	summaries   map[string]store.DocumentSummary
}

func (f *fakeSuggestStore) LexicalSearch(ctx context.Context, queryText string, sourceTypes []store.SourceType, partitions []string, limit int) ([]store.LexicalHit, error) {
	return f.lexicalHits, f.lexicalErr
}

func (f *fakeSuggestStore) TopChunkVectorsBySimilarity(ctx context.Context, queryVector []float32, sourceType *store.SourceType, partition string, topK, scanLimit int, minimumSimilarity float64) ([]store.VectorHit, error) {
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	// only answer for the first partition probed, so multi-partition fan-out
	// in vectorScan doesn't duplicate hits across the test fixtures.
	if partition != "hot" && partition != "" {
		return nil, nil
	}
	return f.vectorHits, nil
}

func (f *fakeSuggestStore) GetDocumentSummaries(ctx context.Context, ids []string) (map[string]store.DocumentSummary, error) {
	out := map[string]store.DocumentSummary{}
	for _, id := range ids {
		if s, ok := f.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

func (f *fakeEmbedder) Dimensions() int                  { return len(f.vector) }
func (f *fakeEmbedder) ModelName() string                { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return f.err == nil }
func (f *fakeEmbedder) Close() error                     { return nil }
func (f *fakeEmbedder) SetBatchIndex(idx int)             {}
func (f *fakeEmbedder) SetFinalBatch(isFinal bool)        {}

func newTestEngine(store *fakeSuggestStore, embedder *fakeEmbedder, graph *GraphAugmentor) *Engine {
	return NewEngine(store, embedder, graph, NewFeatureReranker())
}

func TestEngine_Suggest_MergesLexicalAndVectorHitsOnSameDocument(t *testing.T) {
	now := time.Now()
	s := &fakeSuggestStore{
		lexicalHits: []store.LexicalHit{
			{DocumentID: "doc_1", SourceType: store.SourceFile, Title: "password reset guide", Path: "docs/reset.md"},
		},
		vectorHits: []store.VectorHit{
			{ChunkID: "doc_1:0", DocumentID: "doc_1", Similarity: 0.8, UpdatedAt: now, ChunkText: "reset your password here"},
		},
		summaries: map[string]store.DocumentSummary{
			"doc_1": {ID: "doc_1", SourceType: store.SourceFile, Title: "password reset guide", Path: "docs/reset.md", UpdatedAt: float64(now.Unix())},
		},
	}
	e := newTestEngine(s, &fakeEmbedder{vector: []float32{0.1, 0.2}}, nil)

	resp, err := e.Suggest(context.Background(), Request{Query: "reset password", Limit: 10, TypingMode: true})
	require.NoError(t, err)
	require.Len(t, resp.Suggestions, 1)

	got := resp.Suggestions[0]
	assert.Equal(t, "doc_1", got.DocumentID)
	assert.Contains(t, got.Reasons, ReasonLexical)
	assert.Contains(t, got.Reasons, ReasonVector)
	assert.False(t, resp.Partial)
}

func TestEngine_Suggest_DegradesToLexicalOnlyWhenVectorSearchFails(t *testing.T) {
	s := &fakeSuggestStore{
		lexicalHits: []store.LexicalHit{
			{DocumentID: "doc_1", SourceType: store.SourceFile, Title: "setup guide", Path: "docs/setup.md"},
		},
		vectorErr: errors.New("embedding backend down"),
		summaries: map[string]store.DocumentSummary{
			"doc_1": {ID: "doc_1", SourceType: store.SourceFile, Title: "setup guide", Path: "docs/setup.md"},
		},
	}
	e := newTestEngine(s, &fakeEmbedder{vector: []float32{0.1}}, nil)

	resp, err := e.Suggest(context.Background(), Request{Query: "setup", Limit: 10, TypingMode: true})
	require.NoError(t, err)
	assert.True(t, resp.Partial)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "doc_1", resp.Suggestions[0].DocumentID)
}

func TestEngine_Suggest_ReturnsErrorWhenBothLegsFail(t *testing.T) {
	s := &fakeSuggestStore{
		lexicalErr: errors.New("fts unavailable"),
		vectorErr:  errors.New("embedding backend down"),
	}
	e := newTestEngine(s, &fakeEmbedder{vector: []float32{0.1}}, nil)

	_, err := e.Suggest(context.Background(), Request{Query: "setup", Limit: 10, TypingMode: true})
	assert.Error(t, err)
}

func TestEngine_Suggest_TruncatesToRequestedLimit(t *testing.T) {
	var lexicalHits []store.LexicalHit
	summaries := map[string]store.DocumentSummary{}
	for i := 0; i < 5; i++ {
		id := "doc_" + string(rune('a'+i))
		lexicalHits = append(lexicalHits, store.LexicalHit{DocumentID: id, SourceType: store.SourceFile, Title: "doc", Path: "docs/" + id + ".md"})
		summaries[id] = store.DocumentSummary{ID: id, SourceType: store.SourceFile, Title: "doc", Path: "docs/" + id + ".md"}
	}
	s := &fakeSuggestStore{lexicalHits: lexicalHits, summaries: summaries}
	e := newTestEngine(s, &fakeEmbedder{vector: []float32{0.1}}, nil)

	resp, err := e.Suggest(context.Background(), Request{Query: "doc", Limit: 2, TypingMode: true})
	require.NoError(t, err)
	assert.Len(t, resp.Suggestions, 2)
	// five documents plus the directory-cluster suggestion for docs/
	assert.Equal(t, 6, resp.TotalCandidateCount)
}

func TestEngine_Suggest_GraphOnlyNeighborIsNotSuggested(t *testing.T) {
	s := &fakeSuggestStore{
		lexicalHits: []store.LexicalHit{
			{DocumentID: "doc_1", SourceType: store.SourceFile, Title: "seed document", Path: "docs/seed.md"},
		},
		summaries: map[string]store.DocumentSummary{
			"doc_1": {ID: "doc_1", SourceType: store.SourceFile, Title: "seed document", Path: "docs/seed.md"},
			"doc_2": {ID: "doc_2", SourceType: store.SourceFile, Title: "linked document", Path: "docs/linked.md"},
		},
	}
	graphStore := &fakeGraphStore{edges: []store.GraphEdge{
		{SourceNode: "doc_1", TargetNode: "doc_2", Confidence: 1, Weight: 1},
	}}
	e := newTestEngine(s, &fakeEmbedder{vector: []float32{0.1}}, NewGraphAugmentor(graphStore))

	resp, err := e.Suggest(context.Background(), Request{Query: "seed", Limit: 10, TypingMode: true})
	require.NoError(t, err)

	var boostedIDs []string
	for _, sug := range resp.Suggestions {
		boostedIDs = append(boostedIDs, sug.DocumentID)
	}
	assert.NotContains(t, boostedIDs, "doc_2", "doc_2 only appears as a graph edge target, never retrieved directly, so it never becomes a suggestion")
}
