package daemon

import (
	"os"
	"path/filepath"
	"time"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// Config holds the control surface's transport configuration: where the
// daemon listens, where its PID and sqlite state live, and how long a
// client waits for a reply.
type Config struct {
	// SocketPath is the Unix domain socket path for IPC.
	SocketPath string

	// PIDPath is the file path for the daemon's process ID.
	PIDPath string

	// StateDir holds the sqlite store, context packs, and the
	// singleton lock file.
	StateDir string

	// AuthToken is compared against every RPC but ping. Empty disables
	// the check.
	AuthToken string

	// Timeout bounds client-daemon request/response round trips.
	Timeout time.Duration
}

// DefaultConfig returns a Config rooted at ~/.hivecrew-retrieval.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dir := filepath.Join(home, ".hivecrew-retrieval")
	return Config{
		SocketPath: filepath.Join(dir, "daemon.sock"),
		PIDPath:    filepath.Join(dir, "daemon.pid"),
		StateDir:   dir,
		Timeout:    30 * time.Second,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return daemonerr.Invalid("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return daemonerr.Invalid("PID path cannot be empty")
	}
	if c.StateDir == "" {
		return daemonerr.Invalid("state directory cannot be empty")
	}
	if c.Timeout <= 0 {
		return daemonerr.Invalid("timeout must be positive")
	}
	return nil
}

// EnsureDirs creates the socket, PID, and state directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{filepath.Dir(c.SocketPath), filepath.Dir(c.PIDPath), c.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return daemonerr.New(daemonerr.InvalidState, "failed to create daemon directory "+dir, err)
		}
	}
	return nil
}
