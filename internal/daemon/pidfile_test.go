package daemon

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.pid")
	pf := NewPIDFile(path)

	require.NoError(t, pf.Write())
	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_ReadMissingFileReturnsNotFound(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "daemon.pid"))
	_, err := pf.Read()
	assert.ErrorIs(t, err, ErrPIDFileNotFound)
}

func TestPIDFile_RemoveIsANoOpWhenMissing(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "daemon.pid"))
	assert.NoError(t, pf.Remove())
}

func TestPIDFile_IsRunningReflectsLiveProcess(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "daemon.pid"))
	require.NoError(t, pf.Write())
	assert.True(t, pf.IsRunning())
}

func TestPIDFile_IsRunningFalseForBogusPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999999"), 0o644))
	pf := NewPIDFile(path)
	assert.False(t, pf.IsRunning())
}

func TestPIDFile_SignalDeliversToSelf(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "daemon.pid"))
	require.NoError(t, pf.Write())

	handled := make(chan os.Signal, 1)
	signal.Notify(handled, syscall.SIGUSR1)
	defer signal.Stop(handled)

	require.NoError(t, pf.Signal(syscall.SIGUSR1))
	<-handled
}
