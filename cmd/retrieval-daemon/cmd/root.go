// Package cmd provides the CLI commands for the retrieval daemon.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/johnbean393/hivecrew-retrieval/pkg/version"
)

// NewRootCmd creates the root command for the retrieval-daemon CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieval-daemon",
		Short: "Local hybrid retrieval daemon",
		Long: `retrieval-daemon indexes local files into a hybrid BM25 + vector
store and serves suggestions and context packs over a Unix socket
control surface.

Run 'retrieval-daemon daemon start' to launch it, then talk to it with
'retrieval-daemon suggest', 'status', or 'backfill'.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("retrieval-daemon version {{.Version}}\n")

	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newBackfillCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
