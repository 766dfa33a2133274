package embed

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// BackendType selects which primary embedder a Runtime wraps.
type BackendType string

const (
	// BackendHTTP talks to a locally running embedding server.
	BackendHTTP BackendType = "http"
	// BackendStatic uses only the deterministic hash fallback, skipping
	// the HTTP backend entirely (useful offline or in tests).
	BackendStatic BackendType = "static"
)

// FactoryConfig is the user-facing surface for building an embedding
// Pool: a host/model to dial and the thermal tuning knobs that widen
// request timeouts over a long backfill.
type FactoryConfig struct {
	Backend BackendType
	Host    string
	Model   string

	InterBatchDelay        time.Duration
	TimeoutProgression     float64
	RetryTimeoutMultiplier float64

	// PoolSize overrides the default per-core pool sizing (0 = NumCPU()).
	PoolSize int
}

// DefaultFactoryConfig returns the baseline, then ApplyEnv layers
// RETRIEVAL_DAEMON_EMBED_* overrides on top, mirroring Config.Load's
// defaults-then-env precedence.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		Backend:                BackendHTTP,
		Host:                   "http://localhost:11434",
		Model:                  "",
		InterBatchDelay:        DefaultInterBatchDelay,
		TimeoutProgression:     DefaultTimeoutProgression,
		RetryTimeoutMultiplier: DefaultRetryTimeoutMultiplier,
	}
}

// ApplyEnv layers environment variable overrides onto cfg.
func (cfg FactoryConfig) ApplyEnv() FactoryConfig {
	if v := os.Getenv("RETRIEVAL_DAEMON_EMBED_BACKEND"); v != "" {
		switch strings.ToLower(v) {
		case "http":
			cfg.Backend = BackendHTTP
		case "static":
			cfg.Backend = BackendStatic
		}
	}
	if v := os.Getenv("RETRIEVAL_DAEMON_EMBED_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("RETRIEVAL_DAEMON_EMBED_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("RETRIEVAL_DAEMON_EMBED_INTER_BATCH_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			if d > MaxInterBatchDelay {
				d = MaxInterBatchDelay
			}
			cfg.InterBatchDelay = d
		}
	}
	if v := os.Getenv("RETRIEVAL_DAEMON_EMBED_TIMEOUT_PROGRESSION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1.0 {
			if f > MaxTimeoutProgression {
				f = MaxTimeoutProgression
			}
			cfg.TimeoutProgression = f
		}
	}
	if v := os.Getenv("RETRIEVAL_DAEMON_EMBED_RETRY_TIMEOUT_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1.0 {
			if f > MaxRetryTimeoutMultiplier {
				f = MaxRetryTimeoutMultiplier
			}
			cfg.RetryTimeoutMultiplier = f
		}
	}
	return cfg
}

// NewPoolFromConfig builds a per-core Pool of Runtimes. Each Runtime
// dials its own HTTPEmbedder instance (separate connection pools per
// core) guarded by an independent BackendBreaker, so one core's backend
// trouble doesn't trip the others.
func NewPoolFromConfig(ctx context.Context, cfg FactoryConfig) (*Pool, error) {
	if cfg.Backend == BackendStatic {
		return NewPool(cfg.PoolSize, func() (Embedder, error) {
			return NewRuntime(nil, nil), nil
		})
	}

	return NewPool(cfg.PoolSize, func() (Embedder, error) {
		primary, err := NewHTTPEmbedder(ctx, HTTPConfig{
			Host:                   cfg.Host,
			Model:                  cfg.Model,
			InterBatchDelay:        cfg.InterBatchDelay,
			TimeoutProgression:     cfg.TimeoutProgression,
			RetryTimeoutMultiplier: cfg.RetryTimeoutMultiplier,
		})
		if err != nil {
			// The HTTP backend is a black box with no guaranteed uptime;
			// a dial failure degrades this instance to static-only
			// rather than failing the whole pool (spec's "embedding
			// never fails for ASCII input" contract).
			return NewRuntime(nil, nil), nil
		}
		breaker := NewBackendBreaker(
			fmt.Sprintf("embed-http-backend-%s", cfg.Host),
			WithMaxFailures(5),
			WithResetTimeout(30*time.Second),
		)
		return NewRuntime(primary, breaker), nil
	})
}
