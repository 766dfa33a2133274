package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_TextOutputWhenDaemonNotRunning(t *testing.T) {
	withIsolatedHome(t)
	cmd := newStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "not running")
}

func TestStatusCmd_JSONOutputWhenDaemonNotRunning(t *testing.T) {
	withIsolatedHome(t)
	cmd := newStatusCmd()
	cmd.SetArgs([]string{"--json"})
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	var result map[string]bool
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.False(t, result["running"])
}
