package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// ErrPIDFileNotFound is returned when the PID file doesn't exist.
var ErrPIDFileNotFound = daemonerr.Invalid("PID file not found")

// PIDFile manages the daemon's process ID file, used by the CLI to find
// and signal a running background daemon.
type PIDFile struct {
	path string
}

// NewPIDFile builds a PIDFile manager for path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the PID file path.
func (p *PIDFile) Path() string { return p.path }

// Write records the current process's PID, creating the directory if
// needed.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to create PID directory", err)
	}
	data := []byte(strconv.Itoa(os.Getpid()))
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to write PID file", err)
	}
	return nil
}

// Read returns the PID stored in the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrPIDFileNotFound
		}
		return 0, daemonerr.New(daemonerr.InvalidState, "failed to read PID file", err)
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, daemonerr.New(daemonerr.InvalidState, "invalid PID in file", err)
	}
	return pid, nil
}

// Remove deletes the PID file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return daemonerr.New(daemonerr.InvalidState, "failed to remove PID file", err)
	}
	return nil
}

// IsRunning reports whether the stored PID names a live process.
func (p *PIDFile) IsRunning() bool {
	pid, err := p.Read()
	if err != nil {
		return false
	}
	return processExists(pid)
}

// Signal sends sig to the stored PID's process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	pid, err := p.Read()
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to find process", err)
	}
	if err := process.Signal(sig); err != nil {
		return daemonerr.New(daemonerr.InvalidState, "failed to signal process", err)
	}
	return nil
}

// processExists reports whether pid names a live process, by sending it
// the null signal.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
