// Package mcp exposes batch search to MCP hosts over stdio.
package mcp

import (
	"context"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/client"
	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/logging"
	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/scan"
)

// Server wraps the MCP SDK server around one scan orchestrator.
type Server struct {
	MCPServer    *sdkmcp.Server
	orchestrator *scan.Orchestrator
}

// NewServer creates the MCP server and registers the batch_search tool. The
// orchestrator is injected so tests can run against a fake transport.
func NewServer(orchestrator *scan.Orchestrator) *Server {
	s := &Server{orchestrator: orchestrator}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "trocco-batch-search", Version: "1.0.0"},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over the given transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	logger := logging.NewLogger("mcp")
	logger.Info().Msg("starting TROCCO batch search MCP server")
	return s.MCPServer.Run(ctx, transport)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name: "batch_search",
		Description: "Search TROCCO job definitions by keyword. Fetches the collection " +
			"in batches, filters client-side (the API has no substring search), " +
			"deduplicates, and enriches the top matches with connector details.",
	}, s.handleBatchSearch)
}

type batchSearchInput struct {
	SearchTerm string `json:"search_term" jsonschema:"keyword matched against job definition names and descriptions"`
	Strategy   string `json:"strategy,omitempty" jsonschema:"scan strategy: exhaustive_scan (default), keyword_chunks, alphabet_sweep, recent_first"`
	MaxBatches int    `json:"max_batches,omitempty" jsonschema:"batch budget, 1-50 (default 10)"`
}

// failureInfo is the structured error payload. Request/Response carry the
// API diagnostic context when the failure originated as an APIError.
type failureInfo struct {
	Message  string                 `json:"message"`
	Request  *client.RequestContext `json:"request,omitempty"`
	Response *client.Response       `json:"response,omitempty"`
}

type batchSearchOutput struct {
	OK              bool         `json:"ok"`
	Strategy        string       `json:"strategy,omitempty"`
	BatchesSearched int          `json:"batches_searched"`
	TotalScanned    int          `json:"total_scanned"`
	Matches         []scan.Match `json:"matches"`
	Progress        string       `json:"progress,omitempty"`
	Error           *failureInfo `json:"error,omitempty"`
}

// handleBatchSearch runs one scan. Every failure path still yields a
// well-formed {ok:false, error:{...}} payload so the host always receives a
// renderable result.
func (s *Server) handleBatchSearch(ctx context.Context, _ *sdkmcp.CallToolRequest, input batchSearchInput) (*sdkmcp.CallToolResult, batchSearchOutput, error) {
	result, err := s.orchestrator.Scan(ctx, scan.Params{
		SearchTerm: input.SearchTerm,
		Strategy:   input.Strategy,
		MaxBatches: input.MaxBatches,
	})
	if err != nil {
		logger := logging.NewLogger("mcp")
		logger.Warn().Err(err).Msg("batch_search failed")
		return nil, failureOutput(err), nil
	}

	return nil, batchSearchOutput{
		OK:              true,
		Strategy:        result.Strategy,
		BatchesSearched: result.BatchesSearched,
		TotalScanned:    result.TotalScanned,
		Matches:         result.Matches,
		Progress:        result.Progress,
	}, nil
}

func failureOutput(err error) batchSearchOutput {
	info := &failureInfo{Message: err.Error()}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		info.Request = &apiErr.Request
		info.Response = apiErr.Response
	}

	return batchSearchOutput{OK: false, Matches: []scan.Match{}, Error: info}
}
