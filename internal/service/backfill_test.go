package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbean393/hivecrew-retrieval/internal/connector"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

func TestRunBackfillPass_EnqueuesDiscoveredFilesAndRecordsCheckpoint(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("hello from backfill"), 0o644))

	err := svc.runBackfillPass(ctx, connector.BackfillFull, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.queue.Depth())

	cp, ok, err := svc.store.LoadCheckpoint(ctx, fileBackfillScope, store.SourceFile)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "idle", cp.Status)
	assert.Equal(t, 1, cp.ItemsProcessed)

	jobs, err := svc.store.ListBackfillJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "completed", jobs[0].Status)
}

func TestTriggerBackfill_ReturnsCheckpointOnSuccess(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("content a"), 0o644))

	checkpoints, err := svc.TriggerBackfill(ctx, 100)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, fileBackfillScope, checkpoints[0].ScopeLabel)
}

func TestPauseAndResumeBackfill_UpdateJobStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	job := store.BackfillJob{SourceType: store.SourceFile, ScopeLabel: fileBackfillScope, Mode: "full"}
	require.NoError(t, svc.PauseBackfill(ctx, "job1", job))

	jobs, err := svc.store.ListBackfillJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "paused", jobs[0].Status)

	require.NoError(t, svc.ResumeBackfill(ctx, "job1", jobs[0]))
	jobs, err = svc.store.ListBackfillJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", jobs[0].Status)
}

func TestConfigureScopes_ReplacesAllowlistRoots(t *testing.T) {
	svc, _ := newTestService(t)
	svc.ConfigureScopes([]string{"/new/root"})

	svc.mu.Lock()
	roots := svc.allowlistRoots
	svc.mu.Unlock()
	assert.Equal(t, []string{"/new/root"}, roots)
}
