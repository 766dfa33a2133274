package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServerAndClient(t *testing.T, authToken string, handler RequestHandler) *Client {
	t.Helper()
	socketPath, _ := startTestServer(t, authToken, handler)
	return NewClient(Config{SocketPath: socketPath, AuthToken: authToken, Timeout: 2 * time.Second})
}

func TestClient_IsRunningTrueWhenServerUp(t *testing.T) {
	client := startTestServerAndClient(t, "", &fakeHandler{})
	assert.True(t, client.IsRunning())
}

func TestClient_IsRunningFalseWhenNoServer(t *testing.T) {
	client := NewClient(Config{SocketPath: filepath.Join(t.TempDir(), "nope.sock"), Timeout: 200 * time.Millisecond})
	assert.False(t, client.IsRunning())
}

func TestClient_CallNewRoundTripsResult(t *testing.T) {
	handler := &fakeHandler{healthResult: map[string]bool{"running": true}}
	client := startTestServerAndClient(t, "", handler)

	var result map[string]bool
	err := client.CallNew(context.Background(), MethodHealth, nil, &result)
	require.NoError(t, err)
	assert.True(t, result["running"])
}

func TestClient_CallNewSurfacesServerError(t *testing.T) {
	handler := &fakeHandler{authErr: assert.AnError}
	client := startTestServerAndClient(t, "secret", handler)
	client.authToken = "wrong"

	err := client.CallNew(context.Background(), MethodHealth, nil, nil)
	require.Error(t, err)
}

func TestClient_CallNewWithParamsAndNilOutDiscardsResult(t *testing.T) {
	handler := &fakeHandler{suggestResult: map[string]int{"totalCandidateCount": 1}}
	client := startTestServerAndClient(t, "", handler)

	err := client.CallNew(context.Background(), MethodSuggest, SuggestParams{Query: "x", Limit: 1}, nil)
	require.NoError(t, err)
	assert.Contains(t, handler.calls, "Suggest")
}
