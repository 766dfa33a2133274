package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_MarksRunningAndCompletesStartupBackfill(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	assert.True(t, svc.Health().Running)

	waitForCondition(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.startupBackfillCompleted
	})

	svc.Stop()
	assert.False(t, svc.Health().Running)
}

func TestStart_IsIdempotentWhenAlreadyRunning(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Start(ctx))
	svc.Stop()
}

func TestStop_IsANoOpWhenNotRunning(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Stop()
	assert.False(t, svc.Health().Running)
}

func TestPauseForSystemSleep_StopsPipelinesWithoutClearingRunning(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	svc.PauseForSystemSleep()
	assert.True(t, svc.isSleepPaused())
	assert.True(t, svc.Health().Running, "sleep pause suspends pipelines, not the running flag")

	svc.ResumeAfterSystemWake(ctx)
	assert.False(t, svc.isSleepPaused())

	svc.Stop()
}

func TestPauseForSystemSleep_IsANoOpWhenNotRunning(t *testing.T) {
	svc, _ := newTestService(t)
	svc.PauseForSystemSleep()
	assert.False(t, svc.isSleepPaused())
}

func TestAuthorize_RejectsWrongTokenAndAllowsEmptyConfig(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.Authorize("anything"), "no auth token configured means no check")

	svc.authToken = "secret"
	assert.Error(t, svc.Authorize("wrong"))
	assert.NoError(t, svc.Authorize("secret"))
}

func TestRegisterFileConnector_DeduplicatesSameInstance(t *testing.T) {
	svc, _ := newTestService(t)
	svc.RegisterFileConnector("file", "home", nil)
	svc.RegisterFileConnector("file", "home", nil)

	svc.connectorsMu.Lock()
	count := len(svc.connectors)
	svc.connectorsMu.Unlock()
	assert.Equal(t, 1, count)
}

func TestStart_ReturnsQuicklyEvenWithNoFilesToBackfill(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, svc.Start(ctx))
	defer svc.Stop()

	waitForCondition(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.startupBackfillCompleted
	})
}
