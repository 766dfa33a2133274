package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEmbedServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req httpEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var inputs []string
		switch v := req.Input.(type) {
		case string:
			inputs = []string{v}
		case []any:
			for _, x := range v {
				inputs = append(inputs, x.(string))
			}
		}

		embeddings := make([][]float64, len(inputs))
		for i := range inputs {
			vec := make([]float64, dims)
			vec[0] = 1.0
			embeddings[i] = vec
		}

		resp := httpEmbedResponse{Model: req.Model, Embeddings: embeddings}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPEmbedder_DetectsDimensionsFromProbe(t *testing.T) {
	ts := fakeEmbedServer(t, 512)
	defer ts.Close()

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL, Model: "test-model"})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, 512, e.Dimensions())
}

func TestHTTPEmbedder_EmbedReturnsNormalizedVector(t *testing.T) {
	ts := fakeEmbedServer(t, 8)
	defer ts.Close()

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL, Model: "test-model"})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.InDelta(t, 1.0, vectorMagnitude(vec), 0.001)
}

func TestHTTPEmbedder_Embed_EmptyTextReturnsZeroVectorWithoutCallingServer(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := httpEmbedResponse{Embeddings: [][]float64{{1, 0}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL, Dimensions: 2, SkipHealthCheck: true})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, vec)
	assert.Equal(t, 0, calls)
}

func TestHTTPEmbedder_EmbedBatch_PreservesOrderAndChunksBySize(t *testing.T) {
	ts := fakeEmbedServer(t, 4)
	defer ts.Close()

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL, BatchSize: 2})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	texts := []string{"a", "", "b", "c"}
	results, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, []float32{0, 0, 0, 0}, results[1])
	assert.NotEqual(t, []float32{0, 0, 0, 0}, results[0])
}

func TestHTTPEmbedder_ConstructorFailsWhenHostUnreachable(t *testing.T) {
	_, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: "http://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestHTTPEmbedder_ConstructorRequiresHost(t *testing.T) {
	_, err := NewHTTPEmbedder(context.Background(), HTTPConfig{})
	assert.Error(t, err)
}

func TestHTTPEmbedder_Available_ReturnsFalseAfterClose(t *testing.T) {
	ts := fakeEmbedServer(t, 4)
	defer ts.Close()

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	assert.False(t, e.Available(context.Background()))
}

func TestHTTPEmbedder_SetBatchIndexWidensProgressiveTimeout(t *testing.T) {
	ts := fakeEmbedServer(t, 4)
	defer ts.Close()

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL, BatchSize: 1, TimeoutProgression: 1.5})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	e.SetBatchIndex(2000)
	assert.Greater(t, e.getProgressiveTimeout(0), DefaultWarmTimeout)
}

func TestHTTPEmbedder_EmbedBatch_EmptyListReturnsEmpty(t *testing.T) {
	ts := fakeEmbedServer(t, 4)
	defer ts.Close()

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	results, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHTTPEmbedder_Embed_ContextCancellationReturnsPromptly(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer ts.Close()
	defer close(block)

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Host: ts.URL, Dimensions: 4, SkipHealthCheck: true})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = e.Embed(ctx, "will hang")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
