package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
)

// Pool holds one Embedder instance per hardware core, so a document's
// embedding work always lands on the same runtime across retries and
// across the lifetime of a backfill (the Service selects an instance
// by hash(docID) mod poolSize rather than round-robin).
type Pool struct {
	mu        sync.RWMutex
	instances []Embedder
}

// PoolSize defaults to runtime.NumCPU(), matching how worker counts are
// sized elsewhere in this codebase.
func PoolSize() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// NewPool builds size instances via factory, closing any that were
// already created if a later one fails.
func NewPool(size int, factory func() (Embedder, error)) (*Pool, error) {
	if size <= 0 {
		size = PoolSize()
	}

	instances := make([]Embedder, 0, size)
	for i := 0; i < size; i++ {
		inst, err := factory()
		if err != nil {
			for _, existing := range instances {
				_ = existing.Close()
			}
			return nil, fmt.Errorf("embed: failed to build pool instance %d/%d: %w", i+1, size, err)
		}
		instances = append(instances, inst)
	}

	return &Pool{instances: instances}, nil
}

// For selects the instance responsible for a given document ID.
func (p *Pool) For(docID string) Embedder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.instances) == 0 {
		return nil
	}
	idx := hashToPoolIndex(docID, len(p.instances))
	return p.instances[idx]
}

// Size reports how many instances the pool holds.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances)
}

// Close releases every instance, collecting the first error encountered.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, inst := range p.instances {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Available reports whether every instance in the pool can currently
// serve requests.
func (p *Pool) Available(ctx context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, inst := range p.instances {
		if !inst.Available(ctx) {
			return false
		}
	}
	return true
}

func hashToPoolIndex(docID string, size int) int {
	if size <= 1 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(docID))
	return int(h.Sum64() % uint64(size))
}
