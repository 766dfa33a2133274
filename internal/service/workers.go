package service

import (
	"context"
	"sync"
)

// workerPool manages the currently running ingestion worker goroutines.
// Mutated only by the supervisor goroutine's reconcile calls. A priority
// change drains every worker and respawns at the new target: "a priority
// change drains and respawns all workers."
type workerPool struct {
	mu       sync.Mutex
	cancels  []context.CancelFunc
	priority WorkerPriority
	wg       sync.WaitGroup
}

func newWorkerPool() *workerPool {
	return &workerPool{}
}

// reconcile adjusts the running worker count to target, spawning each new
// worker by calling spawn(ctx) in its own goroutine. If priority differs
// from the currently running set's priority, every worker is stopped and
// respawned fresh at target even if the count is unchanged.
func (p *workerPool) reconcile(ctx context.Context, target int, priority WorkerPriority, spawn func(context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.cancels) > 0 && priority != p.priority {
		for _, cancel := range p.cancels {
			cancel()
		}
		p.cancels = nil
	}
	p.priority = priority

	for len(p.cancels) < target {
		workerCtx, cancel := context.WithCancel(ctx)
		p.cancels = append(p.cancels, cancel)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			spawn(workerCtx)
		}()
	}
	for len(p.cancels) > target {
		last := p.cancels[len(p.cancels)-1]
		p.cancels = p.cancels[:len(p.cancels)-1]
		last()
	}
}

// Count reports the number of currently running workers.
func (p *workerPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cancels)
}

// StopAll cancels every running worker and waits for them to exit.
func (p *workerPool) StopAll() {
	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
	p.mu.Unlock()
	p.wg.Wait()
}
