package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnbean393/hivecrew-retrieval/internal/connector"
	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

// backfillPageSize bounds a single connector.Backfill call when the
// caller (startup, or triggerBackfill with limit<=0) doesn't specify one.
const backfillPageSize = 500

const fileBackfillScope = "files"

// runStartupBackfill schedules the initial full backfill with the
// 5-attempt/500ms-doubling backoff.
func (s *Service) runStartupBackfill(ctx context.Context) {
	cfg := daemonerr.StartupBackfillRetryConfig()
	err := daemonerr.Retry(ctx, cfg, func() error {
		return s.runBackfillPass(ctx, connector.BackfillFull, 0)
	})

	s.mu.Lock()
	if err == nil {
		s.startupBackfillCompleted = true
	}
	s.mu.Unlock()
	if err != nil {
		s.metrics.recordError(err.Error())
	}
}

// TriggerBackfill implements triggerBackfill(limit): runs an
// incremental backfill pass on demand and surfaces any failure to the
// caller rather than retrying silently").
func (s *Service) TriggerBackfill(ctx context.Context, limit int) ([]store.BackfillCheckpoint, error) {
	if err := s.runBackfillPass(ctx, connector.BackfillIncremental, limit); err != nil {
		return nil, err
	}
	cp, ok, err := s.store.LoadCheckpoint(ctx, fileBackfillScope, store.SourceFile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []store.BackfillCheckpoint{cp}, nil
}

// ListBackfillJobs implements listBackfillJobs().
func (s *Service) ListBackfillJobs(ctx context.Context) ([]store.BackfillJob, error) {
	return s.store.ListBackfillJobs(ctx)
}

// PauseBackfill implements pauseBackfill(jobId): marks the job record
// paused. A running backfill pass does not read the job status; it stops
// only when its ctx is cancelled, which it checks between pages.
func (s *Service) PauseBackfill(ctx context.Context, jobID string, job store.BackfillJob) error {
	job.ID = jobID
	job.Status = "paused"
	job.UpdatedAt = time.Now().UTC()
	return s.store.UpsertBackfillJob(ctx, job)
}

// ResumeBackfill implements resumeBackfill(jobId).
func (s *Service) ResumeBackfill(ctx context.Context, jobID string, job store.BackfillJob) error {
	job.ID = jobID
	job.Status = "running"
	job.UpdatedAt = time.Now().UTC()
	return s.store.UpsertBackfillJob(ctx, job)
}

// ConfigureScopes implements configureScopes(): replaces the allowlist
// roots the policy and subsequent backfill/connector registrations use.
func (s *Service) ConfigureScopes(roots []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowlistRoots = roots
}

// runBackfillPass pages through connector.Backfill until a short page
// signals there's nothing more to enumerate, enqueuing every returned
// event and checkpointing progress after each page.
func (s *Service) runBackfillPass(ctx context.Context, mode connector.BackfillMode, limit int) error {
	startedAt := time.Now().UTC()
	jobID := "backfill_" + uuid.NewString()

	s.mu.Lock()
	roots := append([]string(nil), s.allowlistRoots...)
	s.mu.Unlock()

	upsertJob := func(status string) {
		_ = s.store.UpsertBackfillJob(ctx, store.BackfillJob{
			ID: jobID, SourceType: store.SourceFile, ScopeLabel: fileBackfillScope,
			Mode: string(mode), Status: status, StartedAt: startedAt, UpdatedAt: time.Now().UTC(),
		})
	}

	upsertJob("running")
	_ = s.store.AppendAudit(ctx, "audit_"+uuid.NewString(), "backfill_started", fileBackfillScope, float64(time.Now().Unix()))

	pageLimit := limit
	if pageLimit <= 0 {
		pageLimit = backfillPageSize
	}

	resumeToken := ""
	if mode == connector.BackfillIncremental {
		if cp, ok, err := s.store.LoadCheckpoint(ctx, fileBackfillScope, store.SourceFile); err == nil && ok {
			resumeToken = cp.ResumeToken
		}
	}

	processed := 0
	for {
		events, nextToken, err := connector.Backfill(ctx, s.policy, roots, mode, resumeToken, pageLimit)
		if err != nil {
			upsertJob("failed")
			return err
		}

		for _, e := range events {
			e.ID = uuid.NewString()
			s.queue.Push(e)
		}
		processed += len(events)

		_ = s.store.SaveCheckpoint(ctx, store.BackfillCheckpoint{
			Key: fileBackfillScope, SourceType: store.SourceFile, ScopeLabel: fileBackfillScope,
			ResumeToken: nextToken, ItemsProcessed: processed, Status: "running", UpdatedAt: time.Now().UTC(),
		})

		resumeToken = nextToken
		if len(events) < pageLimit || nextToken == "" {
			break
		}
		if limit > 0 && processed >= limit {
			break
		}
		select {
		case <-ctx.Done():
			upsertJob("failed")
			return ctx.Err()
		default:
		}
	}

	_ = s.store.SaveCheckpoint(ctx, store.BackfillCheckpoint{
		Key: fileBackfillScope, SourceType: store.SourceFile, ScopeLabel: fileBackfillScope,
		ResumeToken: resumeToken, ItemsProcessed: processed, Status: "idle", UpdatedAt: time.Now().UTC(),
	})
	upsertJob("completed")
	_ = s.store.AppendAudit(ctx, "audit_"+uuid.NewString(), "backfill_completed", fileBackfillScope, float64(time.Now().Unix()))
	return nil
}
