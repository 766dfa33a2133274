package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbean393/hivecrew-retrieval/internal/connector"
	"github.com/johnbean393/hivecrew-retrieval/internal/contextpack"
	"github.com/johnbean393/hivecrew-retrieval/internal/search"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// seedOneDocument ingests an email-sourced document directly from body
// text, sidestepping the file extractor so the search/cache tests below
// don't need a real file on disk.
func seedOneDocument(t *testing.T, svc *Service, id, body string) {
	t.Helper()
	ctx := context.Background()
	svc.ingestSingleEvent(ctx, connector.IngestionEvent{
		SourceType: store.SourceEmail, SourceID: id, Title: filepath.Base(id),
		Body: body, OccurredAt: time.Now().UTC(), Operation: connector.OpUpsert,
	})
}

func TestSuggest_CacheHitSkipsEngineOnSecondCall(t *testing.T) {
	svc, _ := newTestService(t)
	seedOneDocument(t, svc, "/notes/plan.txt", "roadmap for the beta launch")

	req := search.Request{Query: "beta launch", Limit: 5}
	first, err := svc.Suggest(context.Background(), req)
	require.NoError(t, err)

	cached, ok := svc.cache.get(cacheKey(req))
	require.True(t, ok)
	assert.Equal(t, first, cached)

	second, err := svc.Suggest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPreview_ResolvesSuggestionSeenInRecentQuery(t *testing.T) {
	svc, _ := newTestService(t)
	seedOneDocument(t, svc, "/notes/plan.txt", "roadmap for the beta launch")

	resp, err := svc.Suggest(context.Background(), search.Request{Query: "beta launch", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Suggestions)

	got, ok := svc.Preview(resp.Suggestions[0].ID)
	require.True(t, ok)
	assert.Equal(t, resp.Suggestions[0].Title, got.Title)

	_, ok = svc.Preview("nonexistent-id")
	assert.False(t, ok)
}

func TestCreateContextPack_DelegatesToAssembler(t *testing.T) {
	svc, _ := newTestService(t)
	seedOneDocument(t, svc, "/notes/plan.txt", "roadmap for the beta launch")

	resp, err := svc.Suggest(context.Background(), search.Request{Query: "beta launch", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Suggestions)

	pack, err := svc.CreateContextPack(context.Background(), contextpack.Request{
		Query:                 "beta launch",
		SelectedSuggestionIDs: []string{resp.Suggestions[0].ID},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pack.ID)
	assert.Len(t, pack.Items, 1)
}

func TestRunBenchmarkSample_ReturnsLatencyPerQueryAndWarmsCache(t *testing.T) {
	svc, _ := newTestService(t)
	seedOneDocument(t, svc, "/notes/plan.txt", "roadmap for the beta launch")

	results, err := svc.RunBenchmarkSample(context.Background(), []string{"beta launch"})
	require.NoError(t, err)
	require.Contains(t, results, "beta launch")
	assert.GreaterOrEqual(t, results["beta launch"], 0.0)

	_, ok := svc.cache.LastSuggestions("beta launch")
	assert.True(t, ok, "benchmark sample should warm the suggest cache")
}
