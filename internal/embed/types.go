package embed

import (
	"context"
	"math"
	"time"
)

// Embedder batches text into fixed-dimension unit vectors. Every
// implementation must return exactly Dimensions() float32s per input,
// L2-normalized, and never fail on well-formed ASCII text (callers fall
// back to StaticEmbedder when a richer backend is unavailable).
type Embedder interface {
	// Embed returns the vector for a single text. Empty/whitespace-only
	// input yields a zero vector rather than an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds many texts in one call, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the fixed vector length this embedder produces.
	Dimensions() int

	// ModelName identifies the backing model, surfaced in service_state
	// for drift detection across restarts.
	ModelName() string

	// Available reports whether the backend can currently serve requests.
	Available(ctx context.Context) bool

	Close() error

	// SetBatchIndex and SetFinalBatch let a caller communicate batch
	// progress through a long backfill so a backend can widen its
	// request timeout as it goes; implementations with no such concern
	// no-op.
	SetBatchIndex(idx int)
	SetFinalBatch(isFinal bool)
}

const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 32

	// DefaultWarmTimeout applies once the backend has answered at least
	// one request recently; DefaultColdTimeout applies otherwise, since a
	// local model process may need to load weights first.
	DefaultWarmTimeout = 15 * time.Second
	DefaultColdTimeout = 180 * time.Second

	// ModelUnloadThreshold: once this long has passed since the last
	// successful call, treat the next one as cold again.
	ModelUnloadThreshold = 5 * time.Minute

	DefaultMaxRetries = 3
)

// Sustained-workload tuning: a long backfill can push a local embedding
// process into a slower steady state than its first few calls. These
// knobs widen the per-request timeout as batch index grows rather than
// assuming every request costs the same as the first.
const (
	DefaultInterBatchDelay    = 0 * time.Millisecond
	MaxInterBatchDelay        = 5 * time.Second
	DefaultTimeoutProgression = 1.5
	MaxTimeoutProgression     = 3.0

	DefaultRetryTimeoutMultiplier = 1.0
	MaxRetryTimeoutMultiplier     = 2.0
)

// DefaultDimensions is used when an HTTP backend hasn't reported its own
// dimensionality yet (before the first successful call or override).
const DefaultDimensions = 512

// StaticDimensions is the fixed width of the deterministic hash-fallback
// embedder, independent of whatever dimension an HTTP backend reports.
const StaticDimensions = 256

// normalizeVector returns v scaled to unit L2 norm. A zero vector is
// returned unchanged (avoids a divide-by-zero for empty-text inputs).
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
