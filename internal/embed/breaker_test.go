package embed

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendBreaker_TripsAfterMaxFailures(t *testing.T) {
	b := NewBackendBreaker("test", WithMaxFailures(3), WithResetTimeout(time.Second))

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	assert.Equal(t, BackendDown, b.State())
	assert.False(t, b.Allow())
}

func TestBackendBreaker_ProbesAfterResetTimeout(t *testing.T) {
	b := NewBackendBreaker("test", WithMaxFailures(2), WithResetTimeout(50*time.Millisecond))

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	require.Equal(t, BackendDown, b.State())

	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, BackendProbing, b.State())
	assert.True(t, b.Allow())
}

func TestBackendBreaker_FailedProbeStaysDown(t *testing.T) {
	b := NewBackendBreaker("test", WithMaxFailures(2), WithResetTimeout(50*time.Millisecond))

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, BackendProbing, b.State())

	_, err := ExecuteWithFallback(b,
		func() (string, error) { return "", errors.New("still down") },
		func() (string, error) { return "fallback", nil },
	)
	assert.NoError(t, err)
	assert.Equal(t, BackendDown, b.State())
}

func TestBackendBreaker_SuccessResetsHealthy(t *testing.T) {
	b := NewBackendBreaker("test", WithMaxFailures(5))

	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, 2, b.Failures())

	b.RecordSuccess()
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, BackendHealthy, b.State())
}

func TestExecuteWithFallback_UsesFallbackWhenDown(t *testing.T) {
	b := NewBackendBreaker("test", WithMaxFailures(1))
	b.RecordFailure()
	require.Equal(t, BackendDown, b.State())

	fallbackCalled := false
	result, err := ExecuteWithFallback(b,
		func() (string, error) { return "primary", nil },
		func() (string, error) {
			fallbackCalled = true
			return "fallback", nil
		},
	)

	assert.NoError(t, err)
	assert.True(t, fallbackCalled)
	assert.Equal(t, "fallback", result)
}

func TestExecuteWithFallback_PropagatesPrimaryErrorWhileHealthy(t *testing.T) {
	b := NewBackendBreaker("test", WithMaxFailures(5))

	_, err := ExecuteWithFallback(b,
		func() (string, error) { return "", errors.New("boom") },
		func() (string, error) { return "fallback", nil },
	)

	assert.Error(t, err)
	assert.Equal(t, 1, b.Failures())
}

func TestBackendBreaker_Concurrent(t *testing.T) {
	b := NewBackendBreaker("test", WithMaxFailures(10), WithResetTimeout(time.Second))

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var failCount atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ExecuteWithFallback(b,
				func() (int, error) {
					if i%2 == 0 {
						return i, nil
					}
					return 0, errors.New("error")
				},
				func() (int, error) { return -1, nil },
			)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	assert.Equal(t, int32(20), successCount.Load()+failCount.Load())
}

func TestNewBackendBreaker_DefaultValues(t *testing.T) {
	b := NewBackendBreaker("test-backend")

	assert.Equal(t, "test-backend", b.Name())
	assert.Equal(t, 5, b.maxFailures)
	assert.Equal(t, 30*time.Second, b.resetTimeout)
	assert.Equal(t, BackendHealthy, b.State())
}

func TestBackendState_String(t *testing.T) {
	assert.Equal(t, "healthy", BackendHealthy.String())
	assert.Equal(t, "down", BackendDown.String())
	assert.Equal(t, "probing", BackendProbing.String())
}
