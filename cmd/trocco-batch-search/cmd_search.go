package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/scan"
)

var (
	searchStrategy   string
	searchMaxBatches int
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Run one batch search from the terminal",
	Long:  "Runs a single scan against the configured TROCCO account and prints the result as JSON. Useful for smoke-testing credentials and strategies.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchStrategy, "strategy", scan.StrategyExhaustiveScan,
		"scan strategy: exhaustive_scan, keyword_chunks, alphabet_sweep, recent_first")
	searchCmd.Flags().IntVar(&searchMaxBatches, "max-batches", scan.DefaultMaxBatches,
		"batch budget (1-50)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	orchestrator, err := bootstrap()
	if err != nil {
		return err
	}

	result, err := orchestrator.Scan(cmd.Context(), scan.Params{
		SearchTerm: args[0],
		Strategy:   searchStrategy,
		MaxBatches: searchMaxBatches,
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
