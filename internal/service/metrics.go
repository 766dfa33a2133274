package service

import "sync"

// metrics tracks the Service-actor-owned counters surfaced by health()
// and stateSnapshot().
type metrics struct {
	mu               sync.Mutex
	lastError        string
	extractionCounts map[string]int
	attemptCounts    map[string]int
}

func newMetrics() *metrics {
	return &metrics{
		extractionCounts: make(map[string]int),
		attemptCounts:    make(map[string]int),
	}
}

func (m *metrics) recordError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
}

func (m *metrics) recordExtractionOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractionCounts[outcome]++
}

func (m *metrics) recordAttemptOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attemptCounts[outcome]++
}

func (m *metrics) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

func (m *metrics) ExtractionCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.extractionCounts))
	for k, v := range m.extractionCounts {
		out[k] = v
	}
	return out
}
