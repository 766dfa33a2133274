package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersAllSubcommands(t *testing.T) {
	rootCmd := NewRootCmd()
	for _, name := range []string{"daemon", "status", "suggest", "backfill", "version"} {
		found, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, "expected subcommand %q to be registered", name)
		assert.Equal(t, name, found.Name())
	}
}

func TestRootCmd_DaemonHasStartStopStatus(t *testing.T) {
	rootCmd := NewRootCmd()
	for _, args := range [][]string{{"daemon", "start"}, {"daemon", "stop"}, {"daemon", "status"}} {
		_, _, err := rootCmd.Find(args)
		require.NoError(t, err, "expected %v to resolve", args)
	}
}
