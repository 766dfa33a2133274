package connector

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnbean393/hivecrew-retrieval/internal/policy"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
	"github.com/johnbean393/hivecrew-retrieval/internal/watcher"
)

// pendingCapacity bounds the live-mode pending set.
const pendingCapacity = 2000

// overflowRescanCap bounds the rescan performed after a pending-set overflow.
const overflowRescanCap = 384

// maxDirectFlush bounds paths processed per flush.
const maxDirectFlush = 512

// FileConnector bridges a raw watcher.ChangeWatcher to policy-gated
// IngestionEvents, debouncing bursts with a quiet window and recovering
// from buffer overflow via a bounded rescan. Each notification resets a
// single quiet-window timer, and a generation counter discards firings
// superseded by a newer notification.
type FileConnector struct {
	w    watcher.ChangeWatcher
	pol  *policy.IndexingPolicy
	root []string

	quietWindow time.Duration
	events      chan IngestionEvent

	mu         sync.Mutex
	pending    map[string]struct{}
	overflowed bool
	generation int
	timer      *time.Timer
	lastFlush  time.Time
	stopped    bool
	stopCh     chan struct{}
}

// NewFileConnector constructs a FileConnector watching roots through w,
// gating candidates with pol, debouncing with quietWindow.
func NewFileConnector(w watcher.ChangeWatcher, pol *policy.IndexingPolicy, roots []string, quietWindow time.Duration) *FileConnector {
	return &FileConnector{
		w:           w,
		pol:         pol,
		root:        roots,
		quietWindow: quietWindow,
		events:      make(chan IngestionEvent, maxDirectFlush*2),
		pending:     make(map[string]struct{}),
		lastFlush:   time.Now(),
		stopCh:      make(chan struct{}),
	}
}

// Start begins watching and forwarding policy-gated IngestionEvents.
func (c *FileConnector) Start(ctx context.Context) error {
	if err := c.w.Start(ctx, c.root); err != nil {
		return err
	}
	go c.consume(ctx)
	return nil
}

// Stop releases the connector and its underlying watcher.
func (c *FileConnector) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	return c.w.Stop()
}

// Events returns the channel of policy-gated ingestion events.
func (c *FileConnector) Events() <-chan IngestionEvent { return c.events }

func (c *FileConnector) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case change, ok := <-c.w.Changes():
			if !ok {
				return
			}
			c.addPending(change.Path)
		}
	}
}

// addPending queues path for the next flush. Out-of-scope paths are
// rejected by the allowlist/exclude/extension check before they ever
// reach c.pending, so a burst of notifications for paths the policy
// would skip anyway can't trip the pendingCapacity overflow rescan.
func (c *FileConnector) addPending(path string) {
	if !c.pol.InScope(path) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	if len(c.pending) >= pendingCapacity {
		c.pending = make(map[string]struct{})
		c.overflowed = true
	} else {
		c.pending[path] = struct{}{}
	}

	c.generation++
	gen := c.generation
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.quietWindow, func() { c.flush(gen) })
}

// flush fires once per generation after the quiet window elapses with no
// newer notification superseding it.
func (c *FileConnector) flush(gen int) {
	c.mu.Lock()
	if c.stopped || gen != c.generation {
		c.mu.Unlock()
		return
	}
	overflowed := c.overflowed
	paths := make([]string, 0, len(c.pending))
	for p := range c.pending {
		paths = append(paths, p)
	}
	c.pending = make(map[string]struct{})
	c.overflowed = false
	lastFlush := c.lastFlush
	c.lastFlush = time.Now()
	c.mu.Unlock()

	if overflowed {
		c.rescan(lastFlush)
		return
	}

	if len(paths) > maxDirectFlush {
		paths = paths[:maxDirectFlush]
	}
	for _, p := range paths {
		c.emitForPath(p)
	}
}

// rescan recovers from an overflow by re-enumerating changes observed
// since lastFlush, bounded at overflowRescanCap.
func (c *FileConnector) rescan(since time.Time) {
	events, _, err := Backfill(context.Background(), c.pol, c.root, BackfillIncremental, encodeResumeToken(since, ""), overflowRescanCap)
	if err != nil {
		// Logged, and the overflow is re-armed from the same point so the
		// next flush re-attempts the rescan.
		slog.Warn("overflow rescan failed", "error", err)
		c.mu.Lock()
		c.overflowed = true
		c.lastFlush = since
		c.mu.Unlock()
		return
	}
	for _, e := range events {
		c.publish(e)
	}
}

func (c *FileConnector) emitForPath(path string) {
	info, err := os.Stat(path)
	if err != nil {
		c.publish(IngestionEvent{
			SourceType:         store.SourceFile,
			SourceID:           path,
			SourcePathOrHandle: path,
			OccurredAt:         time.Now(),
			Operation:          OpDelete,
		})
		return
	}
	if info.IsDir() {
		return
	}

	decision := c.pol.Evaluate(path, info.Size(), info.ModTime())
	if decision.Kind == policy.DecisionSkip {
		return
	}

	c.publish(IngestionEvent{
		SourceType:         store.SourceFile,
		SourceID:           path,
		SourcePathOrHandle: path,
		OccurredAt:         info.ModTime(),
		Operation:          OpUpsert,
		Partition:          decision.Partition,
	})
}

func (c *FileConnector) publish(e IngestionEvent) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	select {
	case c.events <- e:
	default:
		// bounded queue backpressure belongs to the Service; a full
		// connector output channel here just means the next flush retries.
	}
}
