package main

import (
	"github.com/spf13/cobra"

	"github.com/RyutoYoda/trocco-batch-search-mcp-server/internal/config"
	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/client"
	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/logging"
	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/scan"
)

var rootCmd = &cobra.Command{
	Use:           "trocco-batch-search",
	Short:         "Batch search over TROCCO job definitions",
	Long:          "Client-side batch search over the TROCCO job_definitions API, exposed as an MCP tool or one-shot CLI command.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
}

// bootstrap loads configuration, wires logging, and builds the orchestrator.
// Shared by every subcommand so they all see the same environment surface.
func bootstrap() (*scan.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	apiClient, err := client.New(client.Config{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		AuthHeader:   cfg.AuthHeader,
		AuthScheme:   cfg.AuthScheme,
		ExtraHeaders: cfg.ExtraHeaders,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return scan.NewOrchestrator(apiClient), nil
}
