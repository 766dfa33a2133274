package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/johnbean393/hivecrew-retrieval/internal/daemon"
	"github.com/johnbean393/hivecrew-retrieval/internal/store"
)

func newSuggestCmd() *cobra.Command {
	var limit int
	var typingMode bool
	var sourceFilters string

	cmd := &cobra.Command{
		Use:   "suggest <query>",
		Short: "Ask the running daemon for suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd.Context(), cmd, args[0], limit, typingMode, sourceFilters)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of suggestions")
	cmd.Flags().BoolVar(&typingMode, "typing-mode", false, "Prioritize latency over completeness")
	cmd.Flags().StringVar(&sourceFilters, "sources", "", "Comma-separated source type filter")
	return cmd
}

func runSuggest(ctx context.Context, cmd *cobra.Command, query string, limit int, typingMode bool, sourceFilters string) error {
	cfg := daemon.DefaultConfig()
	client := daemon.NewClient(cfg)
	if !client.IsRunning() {
		return fmt.Errorf("daemon is not running; run 'retrieval-daemon daemon start' first")
	}

	params := daemon.SuggestParams{Query: query, Limit: limit, TypingMode: typingMode}
	if sourceFilters != "" {
		for _, raw := range strings.Split(sourceFilters, ",") {
			if s := strings.TrimSpace(raw); s != "" {
				params.SourceFilters = append(params.SourceFilters, store.SourceType(s))
			}
		}
	}

	var result map[string]any
	if err := client.CallNew(ctx, daemon.MethodSuggest, params, &result); err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
