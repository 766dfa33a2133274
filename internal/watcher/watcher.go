// Package watcher provides the raw filesystem change-notification
// primitive consumed by internal/connector's FileConnector. It is
// deliberately thin: debouncing, quiet windows, and overflow recovery are
// policy-aware concerns that live in the connector, not here.
package watcher

import (
	"context"
	"time"
)

// RawChange is a single filesystem change notification, prior to any
// debouncing or policy evaluation.
type RawChange struct {
	Path      string
	Timestamp time.Time
}

// ChangeWatcher is the abstraction over a platform filesystem-change
// primitive. FSNotifyWatcher is the one concrete implementation.
type ChangeWatcher interface {
	// Start begins watching roots recursively. Returns once watches are
	// established; notifications are delivered asynchronously on Changes().
	Start(ctx context.Context, roots []string) error
	// Stop releases all watch resources. Safe to call more than once.
	Stop() error
	// Changes returns the channel of raw path notifications. Closed when
	// the watcher stops.
	Changes() <-chan RawChange
	// Errors returns non-fatal watcher errors; the watcher keeps running.
	// Closed when the watcher stops.
	Errors() <-chan error
}
