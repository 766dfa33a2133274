package service

import (
	"context"

	"github.com/johnbean393/hivecrew-retrieval/pkg/version"
)

// Health implements the health() RPC.
func (s *Service) Health() HealthSnapshot {
	p50, p95 := s.latency.Percentiles()
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return HealthSnapshot{
		DaemonVersion:    version.Short(),
		Running:          running,
		QueueDepth:       s.queue.Depth(),
		InFlightCount:    int(s.inFlight),
		LastError:        s.metrics.LastError(),
		LatencyP50Ms:     p50,
		LatencyP95Ms:     p95,
		CurrentOperation: s.currentOperationSnapshot(),
		ExtractionCounts: s.metrics.ExtractionCounts(),
	}
}

// IndexingProgress implements the indexingProgress() RPC: one
// ProgressState per known backfill job, reflecting its checkpoint.
func (s *Service) IndexingProgress(ctx context.Context) ([]ProgressState, error) {
	jobs, err := s.store.ListBackfillJobs(ctx)
	if err != nil {
		return nil, err
	}
	progress := make([]ProgressState, 0, len(jobs))
	for _, job := range jobs {
		cp, ok, err := s.store.LoadCheckpoint(ctx, job.ScopeLabel, job.SourceType)
		if err != nil {
			return nil, err
		}
		p := ProgressState{SourceType: job.SourceType, ScopeLabel: job.ScopeLabel, Status: job.Status}
		if ok {
			p.ItemsProcessed = cp.ItemsProcessed
			p.ItemsSkipped = cp.ItemsSkipped
			p.EstimatedTotal = cp.EstimatedTotal
		}
		progress = append(progress, p)
	}
	return progress, nil
}

// IndexStats implements the indexStats() RPC.
func (s *Service) IndexStats(ctx context.Context) (IndexStats, error) {
	counts, err := s.store.DocumentCountBySource(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	stats := IndexStats{Sources: make([]SourceRuntimeStat, 0, len(counts))}
	for sourceType, count := range counts {
		stats.TotalDocumentCount += count
		stats.Sources = append(stats.Sources, SourceRuntimeStat{SourceType: sourceType, DocumentCount: count})
	}
	return stats, nil
}

// QueueActivityStats implements the queueActivity() RPC.
func (s *Service) QueueActivityStats() QueueActivity {
	return QueueActivity{
		QueueDepth: s.queue.Depth(),
		Sources:    s.queue.CountsBySource(),
	}
}

// StateSnapshot implements the stateSnapshot() RPC: a superset bundling
// health, progress, index stats, and queue activity for one round trip.
func (s *Service) StateSnapshot(ctx context.Context) (StateSnapshot, error) {
	progress, err := s.IndexingProgress(ctx)
	if err != nil {
		return StateSnapshot{}, err
	}
	indexStats, err := s.IndexStats(ctx)
	if err != nil {
		return StateSnapshot{}, err
	}

	sourceRuntime := make([]SourceRuntimeStat, len(indexStats.Sources))
	copy(sourceRuntime, indexStats.Sources)

	return StateSnapshot{
		Health:           s.Health(),
		Progress:         progress,
		IndexStats:       indexStats,
		QueueActivity:    s.QueueActivityStats(),
		SourceRuntime:    sourceRuntime,
		CurrentOperation: s.currentOperationSnapshot(),
	}, nil
}
