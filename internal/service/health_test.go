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

func TestHealth_ReflectsRunningStateAndVersion(t *testing.T) {
	svc, _ := newTestService(t)

	snap := svc.Health()
	assert.False(t, snap.Running)
	assert.NotEmpty(t, snap.DaemonVersion)
	assert.Equal(t, 0, snap.QueueDepth)
}

func TestIndexingProgress_JoinsJobsWithCheckpoints(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("progress marker"), 0o644))

	require.NoError(t, svc.runBackfillPass(ctx, connector.BackfillFull, 100))

	progress, err := svc.IndexingProgress(ctx)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, fileBackfillScope, progress[0].ScopeLabel)
	assert.Equal(t, "completed", progress[0].Status)
	assert.Equal(t, 1, progress[0].ItemsProcessed)
}

func TestIndexStats_CountsDocumentsPerSource(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.ingestSingleEvent(ctx, connector.IngestionEvent{
		SourceType: store.SourceEmail, SourceID: "msg-a", Body: "alpha content", Operation: connector.OpUpsert,
	})
	svc.ingestSingleEvent(ctx, connector.IngestionEvent{
		SourceType: store.SourceEmail, SourceID: "msg-b", Body: "beta content", Operation: connector.OpUpsert,
	})

	stats, err := svc.IndexStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocumentCount)
	require.Len(t, stats.Sources, 1)
	assert.Equal(t, store.SourceEmail, stats.Sources[0].SourceType)
	assert.Equal(t, 2, stats.Sources[0].DocumentCount)
}

func TestQueueActivityStats_ReportsDepthAndPerSourceCounts(t *testing.T) {
	svc, _ := newTestService(t)
	svc.queue.Push(connector.IngestionEvent{SourceID: "a", SourceType: store.SourceFile})
	svc.queue.Push(connector.IngestionEvent{SourceID: "b", SourceType: store.SourceEmail})

	activity := svc.QueueActivityStats()
	assert.Equal(t, 2, activity.QueueDepth)
	assert.Equal(t, 1, activity.Sources[store.SourceFile])
	assert.Equal(t, 1, activity.Sources[store.SourceEmail])
}

func TestStateSnapshot_BundlesHealthProgressStatsAndQueue(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("snapshot marker"), 0o644))
	require.NoError(t, svc.runBackfillPass(ctx, connector.BackfillFull, 100))

	for {
		e, ok := svc.queue.Pop()
		if !ok {
			break
		}
		svc.ingestSingleEvent(ctx, e)
	}

	snapshot, err := svc.StateSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.IndexStats.TotalDocumentCount)
	require.Len(t, snapshot.Progress, 1)
	require.Len(t, snapshot.SourceRuntime, 1)
	assert.Equal(t, snapshot.IndexStats.Sources, snapshot.SourceRuntime)
}
