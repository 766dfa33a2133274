package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnbean393/hivecrew-retrieval/internal/daemon"
)

func newBackfillCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Trigger a backfill pass against the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 500, "Maximum files per backfill page")
	return cmd
}

func runBackfill(ctx context.Context, cmd *cobra.Command, limit int) error {
	cfg := daemon.DefaultConfig()
	client := daemon.NewClient(cfg)
	if !client.IsRunning() {
		return fmt.Errorf("daemon is not running; run 'retrieval-daemon daemon start' first")
	}

	var checkpoints []map[string]any
	if err := client.CallNew(ctx, daemon.MethodTriggerBackfill, daemon.TriggerBackfillParams{Limit: limit}, &checkpoints); err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(checkpoints)
}
