package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyWatcher is the concrete ChangeWatcher backed by fsnotify,
// recursively watching every directory under each root, using the same
// addRecursive/handleFsnotifyEvent pattern as internal/watcher/hybrid.go,
// stripped of its gitignore/config-file special cases — those concerns
// belong to the policy-driven connector here, not the raw watcher.
type FSNotifyWatcher struct {
	w       *fsnotify.Watcher
	changes chan RawChange
	errs    chan error
	stopCh  chan struct{}

	mu      sync.Mutex
	stopped bool
}

var _ ChangeWatcher = (*FSNotifyWatcher)(nil)

// NewFSNotifyWatcher constructs an FSNotifyWatcher with the given
// buffered channel capacity for change notifications.
func NewFSNotifyWatcher(bufferSize int) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSNotifyWatcher{
		w:       w,
		changes: make(chan RawChange, bufferSize),
		errs:    make(chan error, 16),
		stopCh:  make(chan struct{}),
	}, nil
}

func (f *FSNotifyWatcher) Start(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := f.addRecursive(root); err != nil {
			return err
		}
	}
	go f.loop(ctx)
	return nil
}

func (f *FSNotifyWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // swallow per-entry enumeration errors
		}
		if d.IsDir() {
			_ = f.w.Add(path)
		}
		return nil
	})
}

func (f *FSNotifyWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = f.Stop()
			return
		case <-f.stopCh:
			return
		case ev, ok := <-f.w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = f.w.Add(ev.Name)
				}
			}
			if ev.Op&fsnotify.Chmod != 0 && ev.Op == fsnotify.Chmod {
				continue
			}
			select {
			case f.changes <- RawChange{Path: ev.Name, Timestamp: time.Now()}:
			default:
				// buffer full: the connector's bounded pending set and
				// overflow-rescan path recovers from drops here.
			}
		case err, ok := <-f.w.Errors:
			if !ok {
				return
			}
			select {
			case f.errs <- err:
			default:
			}
		}
	}
}

func (f *FSNotifyWatcher) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil
	}
	f.stopped = true
	close(f.stopCh)
	err := f.w.Close()
	close(f.changes)
	close(f.errs)
	return err
}

func (f *FSNotifyWatcher) Changes() <-chan RawChange { return f.changes }
func (f *FSNotifyWatcher) Errors() <-chan error      { return f.errs }
