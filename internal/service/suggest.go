package service

import (
	"context"
	"time"

	"github.com/johnbean393/hivecrew-retrieval/internal/contextpack"
	"github.com/johnbean393/hivecrew-retrieval/internal/search"
)

// Suggest implements the suggest() RPC: a cache lookup keyed by the full
// request shape, falling through to the retrieval engine on a miss.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (SuggestResponse, error) {
	key := cacheKey(req)
	if resp, ok := s.cache.get(key); ok {
		return resp, nil
	}

	start := time.Now()
	resp, err := s.engine.Suggest(ctx, req)
	if err != nil {
		s.metrics.recordError(err.Error())
		return SuggestResponse{}, err
	}
	s.latency.Record(time.Since(start))
	s.cache.put(key, req.Query, resp)
	return resp, nil
}

// CreateContextPack implements the createContextPack() RPC.
func (s *Service) CreateContextPack(ctx context.Context, req contextpack.Request) (contextpack.ContextPack, error) {
	return s.assembler.CreateContextPack(ctx, req)
}

// Preview implements the preview(itemId) RPC: resolves a suggestion ID
// against the most recent cache entries containing it, without
// re-running retrieval. Returns false when the ID hasn't been seen; IDs
// are not expired from the lookup index.
func (s *Service) Preview(itemID string) (search.Suggestion, bool) {
	return s.cache.byIDLookup(itemID)
}

// RunBenchmarkSample implements runBenchmarkSample([query]): runs each
// query through Suggest (bypassing the cache, since the point is to
// measure retrieval latency) and returns the observed latency per query.
func (s *Service) RunBenchmarkSample(ctx context.Context, queries []string) (map[string]float64, error) {
	out := make(map[string]float64, len(queries))
	for _, q := range queries {
		start := time.Now()
		resp, err := s.engine.Suggest(ctx, search.Request{Query: q, Limit: 10, TypingMode: false})
		if err != nil {
			s.metrics.recordError(err.Error())
			return nil, err
		}
		elapsed := float64(time.Since(start).Milliseconds())
		out[q] = elapsed
		s.latency.Record(time.Since(start))
		s.cache.put(cacheKey(search.Request{Query: q, Limit: 10, TypingMode: false}), q, resp)
	}
	return out, nil
}
