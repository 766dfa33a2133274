package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbean393/hivecrew-retrieval/internal/config"
)

// newTestDaemon builds a Daemon rooted at a fresh temp state dir with a
// static (non-network) embedder, by setting
// RETRIEVAL_DAEMON_EMBED_BACKEND=static for the duration of the test and
// writing a config file that selects the developer profile.
func newTestDaemon(t *testing.T) (*Daemon, Config) {
	t.Helper()
	t.Setenv("RETRIEVAL_DAEMON_EMBED_BACKEND", "static")

	stateDir := t.TempDir()
	cfg := Config{
		SocketPath: filepath.Join(stateDir, "daemon.sock"),
		PIDPath:    filepath.Join(stateDir, "daemon.pid"),
		StateDir:   stateDir,
		Timeout:    5 * time.Second,
	}

	appCfgPath := filepath.Join(stateDir, "config.json")
	appCfg := config.Default()
	appCfg.IndexingProfile = config.ProfileDeveloper
	require.NoError(t, config.Save(appCfgPath, appCfg))

	d, err := New(cfg, appCfgPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, cfg
}

func TestNew_BuildsAssembledDaemon(t *testing.T) {
	d, _ := newTestDaemon(t)
	assert.NotNil(t, d.svc)
	assert.NotNil(t, d.server)
}

func TestRun_ServesControlSurfaceUntilCancelled(t *testing.T) {
	d, cfg := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	client := NewClient(cfg)
	require.Eventually(t, func() bool { return client.IsRunning() }, 2*time.Second, 20*time.Millisecond)

	_, err := os.Stat(cfg.PIDPath)
	assert.NoError(t, err, "PID file should exist while running")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	_, err = os.Stat(cfg.PIDPath)
	assert.True(t, os.IsNotExist(err), "PID file should be removed after shutdown")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{}, "", nil)
	assert.Error(t, err)
}
