package embed

import (
	"context"
)

// Runtime is the Embedder actually handed to a Pool: a primary backend
// guarded by a BackendBreaker, falling back to the deterministic static
// embedder once the primary trips. Embedding must never fail outright,
// so every path through Runtime returns a vector, even if it's the
// fallback's lower-quality one at a different width than the primary.
type Runtime struct {
	primary  Embedder
	fallback *StaticEmbedder
	breaker  *BackendBreaker
}

var _ Embedder = (*Runtime)(nil)

// NewRuntime wraps primary with a breaker that falls back to a fresh
// StaticEmbedder after repeated failures. primary may be nil, in which
// case Runtime behaves as the static embedder alone (used when no HTTP
// backend is configured).
func NewRuntime(primary Embedder, breaker *BackendBreaker) *Runtime {
	if breaker == nil {
		breaker = NewBackendBreaker("embed-http-backend")
	}
	return &Runtime{
		primary:  primary,
		fallback: NewStaticEmbedder(),
		breaker:  breaker,
	}
}

func (r *Runtime) Embed(ctx context.Context, text string) ([]float32, error) {
	if r.primary == nil {
		return r.fallback.Embed(ctx, text)
	}
	return ExecuteWithFallback(r.breaker,
		func() ([]float32, error) { return r.primary.Embed(ctx, text) },
		func() ([]float32, error) { return r.fallback.Embed(ctx, text) },
	)
}

func (r *Runtime) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if r.primary == nil {
		return r.fallback.EmbedBatch(ctx, texts)
	}
	vecs, err := ExecuteWithFallback(r.breaker,
		func() ([][]float32, error) { return r.primary.EmbedBatch(ctx, texts) },
		func() ([][]float32, error) { return r.fallback.EmbedBatch(ctx, texts) },
	)
	if err != nil {
		return r.fallback.EmbedBatch(ctx, texts)
	}
	return vecs, nil
}

// Dimensions reports the width of whichever backend is currently live,
// since a tripped breaker serves shorter static vectors until it resets.
// Store.topChunkVectorsBySimilarity already tolerates a document whose
// stored vector length doesn't match the query vector by skipping it,
// so a dimension change across a circuit trip degrades gracefully
// rather than corrupting search.
func (r *Runtime) Dimensions() int {
	if r.primary != nil && r.breaker.Allow() {
		return r.primary.Dimensions()
	}
	return r.fallback.Dimensions()
}

func (r *Runtime) ModelName() string {
	if r.primary != nil && r.breaker.Allow() {
		return r.primary.ModelName()
	}
	return r.fallback.ModelName()
}

func (r *Runtime) Available(ctx context.Context) bool {
	if r.primary != nil && r.primary.Available(ctx) {
		return true
	}
	return r.fallback.Available(ctx)
}

func (r *Runtime) Close() error {
	var firstErr error
	if r.primary != nil {
		firstErr = r.primary.Close()
	}
	if err := r.fallback.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (r *Runtime) SetBatchIndex(idx int) {
	if r.primary != nil {
		r.primary.SetBatchIndex(idx)
	}
}

func (r *Runtime) SetFinalBatch(isFinal bool) {
	if r.primary != nil {
		r.primary.SetFinalBatch(isFinal)
	}
}

// BreakerState exposes the breaker's state for health reporting.
func (r *Runtime) BreakerState() BackendState {
	return r.breaker.State()
}
