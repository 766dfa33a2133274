package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryConfig_ApplyEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_DAEMON_EMBED_BACKEND", "static")
	t.Setenv("RETRIEVAL_DAEMON_EMBED_HOST", "http://example.invalid:9999")
	t.Setenv("RETRIEVAL_DAEMON_EMBED_MODEL", "some-model")
	t.Setenv("RETRIEVAL_DAEMON_EMBED_INTER_BATCH_DELAY", "250ms")
	t.Setenv("RETRIEVAL_DAEMON_EMBED_TIMEOUT_PROGRESSION", "2.5")
	t.Setenv("RETRIEVAL_DAEMON_EMBED_RETRY_TIMEOUT_MULTIPLIER", "1.8")

	cfg := DefaultFactoryConfig().ApplyEnv()

	assert.Equal(t, BackendStatic, cfg.Backend)
	assert.Equal(t, "http://example.invalid:9999", cfg.Host)
	assert.Equal(t, "some-model", cfg.Model)
	assert.Equal(t, 250*time.Millisecond, cfg.InterBatchDelay)
	assert.InDelta(t, 2.5, cfg.TimeoutProgression, 0.001)
	assert.InDelta(t, 1.8, cfg.RetryTimeoutMultiplier, 0.001)
}

func TestFactoryConfig_ApplyEnv_ClampsOutOfRangeValues(t *testing.T) {
	t.Setenv("RETRIEVAL_DAEMON_EMBED_INTER_BATCH_DELAY", "1h")
	t.Setenv("RETRIEVAL_DAEMON_EMBED_TIMEOUT_PROGRESSION", "99")
	t.Setenv("RETRIEVAL_DAEMON_EMBED_RETRY_TIMEOUT_MULTIPLIER", "99")

	cfg := DefaultFactoryConfig().ApplyEnv()

	assert.Equal(t, MaxInterBatchDelay, cfg.InterBatchDelay)
	assert.InDelta(t, MaxTimeoutProgression, cfg.TimeoutProgression, 0.001)
	assert.InDelta(t, MaxRetryTimeoutMultiplier, cfg.RetryTimeoutMultiplier, 0.001)
}

func TestFactoryConfig_ApplyEnv_IgnoresUnknownBackend(t *testing.T) {
	t.Setenv("RETRIEVAL_DAEMON_EMBED_BACKEND", "quantum")

	cfg := DefaultFactoryConfig().ApplyEnv()

	assert.Equal(t, BackendHTTP, cfg.Backend)
}

func TestFactoryConfig_ApplyEnv_LeavesDefaultsWhenUnset(t *testing.T) {
	cfg := DefaultFactoryConfig().ApplyEnv()
	assert.Equal(t, DefaultFactoryConfig(), cfg)
}

func TestNewPoolFromConfig_StaticBackend_BuildsPoolWithNoDial(t *testing.T) {
	cfg := FactoryConfig{Backend: BackendStatic, PoolSize: 2}

	p, err := NewPoolFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, 2, p.Size())
	assert.Equal(t, "static", p.For("doc1").ModelName())
}

func TestNewPoolFromConfig_HTTPBackend_DialsEachInstance(t *testing.T) {
	ts := fakeEmbedServer(t, 4)
	defer ts.Close()

	cfg := FactoryConfig{Backend: BackendHTTP, Host: ts.URL, Model: "test-model", PoolSize: 2}

	p, err := NewPoolFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, 2, p.Size())
	assert.Equal(t, 4, p.For("doc1").Dimensions())
}

func TestNewPoolFromConfig_HTTPBackend_DegradesToStaticOnDialFailure(t *testing.T) {
	cfg := FactoryConfig{Backend: BackendHTTP, Host: "http://127.0.0.1:1", PoolSize: 1}

	p, err := NewPoolFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, "static", p.For("doc1").ModelName())
}

func TestNewPoolFromConfig_HTTPBackend_DegradesToStaticOnErrorStatus(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	cfg := FactoryConfig{Backend: BackendHTTP, Host: failing.URL, PoolSize: 1, RetryTimeoutMultiplier: 1.0}

	p, err := NewPoolFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, "static", p.For("doc1").ModelName())
}
