package main

import (
	"net/http"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/RyutoYoda/trocco-batch-search-mcp-server/internal/mcp"
	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/logging"
	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/metrics"
)

var serveMetricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing the batch_search tool.
Hosts connect via their MCP configuration; logs go to stderr.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "",
		"optional listen address for Prometheus metrics (e.g. :9090)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	orchestrator, err := bootstrap()
	if err != nil {
		return err
	}

	logger := logging.NewLogger("cli")

	if serveMetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info().Str("addr", serveMetricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(serveMetricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	srv := mcpserver.NewServer(orchestrator)
	return srv.Run(cmd.Context(), &sdkmcp.StdioTransport{})
}
