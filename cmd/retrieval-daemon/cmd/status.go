package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnbean393/hivecrew-retrieval/internal/daemon"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and index stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	cfg := daemon.DefaultConfig()
	client := daemon.NewClient(cfg)

	if !client.IsRunning() {
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]bool{"running": false})
		}
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	var snapshot map[string]any
	if err := client.CallNew(ctx, daemon.MethodStateSnapshot, nil, &snapshot); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	fmt.Fprintln(out, "Daemon is running")
	for _, key := range []string{"health", "indexStats", "queueActivity"} {
		if v, ok := snapshot[key]; ok {
			fmt.Fprintf(out, "  %s: %v\n", key, v)
		}
	}
	return nil
}
