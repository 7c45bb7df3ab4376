package scan

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/client"
)

// jobDefinitionsPath is the listing/detail endpoint relative to the API base.
const jobDefinitionsPath = "job_definitions"

// MaxBatchBudget bounds how many batches a single scan may request.
const MaxBatchBudget = 50

// DefaultMaxBatches is the batch budget used when the caller passes zero.
const DefaultMaxBatches = 10

// enrichHead is how many deduplicated matches receive a detail fetch.
const enrichHead = 5

// Usage errors raised before any network activity.
var (
	// ErrEmptySearchTerm is returned when the search term is empty.
	ErrEmptySearchTerm = errors.New("search term is required")

	// ErrMaxBatchesRange is returned when maxBatches is outside 1..50.
	ErrMaxBatchesRange = fmt.Errorf("max batches must be between 1 and %d", MaxBatchBudget)
)

// Prometheus metrics for scan operations.
var (
	scanBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trocco_scan_batches_total",
		Help: "Completed scan batches by strategy",
	}, []string{"strategy"})

	scanRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trocco_scan_records_total",
		Help: "Records inspected during scans by strategy",
	}, []string{"strategy"})

	scanMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trocco_scan_matches_total",
		Help: "Deduplicated matches produced by scans by strategy",
	}, []string{"strategy"})

	scanBatchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trocco_scan_batch_errors_total",
		Help: "Failed batch requests by strategy",
	}, []string{"strategy"})
)

// Params are the inputs of one scan invocation.
type Params struct {
	// SearchTerm is matched case-insensitively against name and description.
	SearchTerm string

	// Strategy is one of the Strategy* names (default exhaustive_scan).
	Strategy string

	// MaxBatches bounds the number of batch requests, 1..50 (default 10).
	MaxBatches int
}

// Orchestrator drives the client through strategy-specific query sequences
// and assembles a deduplicated, partially enriched result. It holds no
// per-scan state; concurrent scans are independent.
type Orchestrator struct {
	client  *client.Client
	baseURL string
	logger  zerolog.Logger
}

// NewOrchestrator creates an orchestrator bound to the given client.
func NewOrchestrator(c *client.Client) *Orchestrator {
	return &Orchestrator{
		client:  c,
		baseURL: c.BaseURL(),
		logger:  log.With().Str("component", "scan").Logger(),
	}
}

// Scan runs one batch search. Usage errors (empty term, unknown strategy,
// budget out of range) are returned synchronously; batch and detail-fetch
// failures never fail the scan, they only degrade it.
func (o *Orchestrator) Scan(ctx context.Context, params Params) (*Result, error) {
	if strings.TrimSpace(params.SearchTerm) == "" {
		return nil, ErrEmptySearchTerm
	}

	name := params.Strategy
	if name == "" {
		name = StrategyExhaustiveScan
	}
	strat, err := newStrategy(name, params.SearchTerm)
	if err != nil {
		return nil, err
	}

	maxBatches := params.MaxBatches
	if maxBatches == 0 {
		maxBatches = DefaultMaxBatches
	}
	if maxBatches < 1 || maxBatches > MaxBatchBudget {
		return nil, fmt.Errorf("%w (got %d)", ErrMaxBatchesRange, params.MaxBatches)
	}

	needle := strings.ToLower(params.SearchTerm)
	logger := o.logger.With().Str("strategy", name).Str("term", params.SearchTerm).Logger()

	var (
		accumulator     []JobRecord
		batchesSearched int
		totalScanned    int
	)

	for attempts := 0; attempts < maxBatches && strat.shouldContinue(); attempts++ {
		resp, err := o.client.Request(ctx, client.RequestSpec{
			Path:  jobDefinitionsPath,
			Query: strat.nextQuery(),
		})
		if err != nil {
			scanBatchErrorsTotal.WithLabelValues(name).Inc()
			if strat.fatalOnError() {
				logger.Warn().Err(err).Int("batch", attempts+1).
					Msg("Batch request failed - stopping scan")
				break
			}
			logger.Warn().Err(err).Int("batch", attempts+1).
				Msg("Batch request failed - skipping batch")
			strat.advance(batchOutcome{})
			continue
		}

		records := decodeBatch(resp)
		batchesSearched++
		totalScanned += len(records)
		scanBatchesTotal.WithLabelValues(name).Inc()
		scanRecordsTotal.WithLabelValues(name).Add(float64(len(records)))

		for _, record := range records {
			if matches(record, needle) {
				accumulator = append(accumulator, record)
			}
		}

		strat.advance(batchOutcome{records: records, raw: resp.Raw()})
	}

	deduped := dedupe(accumulator)
	scanMatchesTotal.WithLabelValues(name).Add(float64(len(deduped)))

	logger.Info().
		Int("batches", batchesSearched).
		Int("scanned", totalScanned).
		Int("matches", len(deduped)).
		Msg("Scan complete")

	projected := make([]Match, 0, len(deduped))
	for _, record := range deduped {
		projected = append(projected, Match{
			ID:               record.ID,
			Name:             record.Name,
			Description:      record.Description,
			InputOptionType:  record.InputOptionType,
			OutputOptionType: record.OutputOptionType,
			CreatedBy:        record.CreatedBy,
			URL:              deepLink(o.baseURL, record.ID),
		})
	}
	o.enrich(ctx, projected)

	return &Result{
		Strategy:        name,
		BatchesSearched: batchesSearched,
		TotalScanned:    totalScanned,
		Matches:         projected,
		Progress: fmt.Sprintf("searched %d batches, scanned %d records, found %d matches",
			batchesSearched, totalScanned, len(deduped)),
	}, nil
}

// matches is the shared predicate: case-folded substring match against name
// or description.
func matches(record JobRecord, needle string) bool {
	return strings.Contains(strings.ToLower(record.Name), needle) ||
		strings.Contains(strings.ToLower(record.Description), needle)
}

// decodeBatch extracts the items array from a listing response. Absent or
// oddly shaped fields decode to zero values rather than failing the batch.
func decodeBatch(resp *client.Response) []JobRecord {
	var page struct {
		Items []JobRecord `json:"items"`
	}
	if err := client.DecodeInto(resp.Data, &page); err != nil {
		return nil
	}
	return page.Items
}

// dedupe collapses the accumulator to first-occurrence-per-id order. The
// first batch that produced a given id keeps its position. Idempotent.
func dedupe(records []JobRecord) []JobRecord {
	seen := make(map[int64]struct{}, len(records))
	out := make([]JobRecord, 0, len(records))
	for _, record := range records {
		if _, ok := seen[record.ID]; ok {
			continue
		}
		seen[record.ID] = struct{}{}
		out = append(out, record)
	}
	return out
}

// deepLink derives the UI URL for a job definition by stripping the trailing
// API path segment from the base endpoint and appending the record id.
func deepLink(baseURL string, id int64) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Sprintf("%s/%s/%d", baseURL, jobDefinitionsPath, id)
	}
	trimmed := strings.TrimRight(u.Path, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		u.Path = trimmed[:idx]
	}
	u.RawQuery = ""
	return fmt.Sprintf("%s/%s/%d", strings.TrimRight(u.String(), "/"), jobDefinitionsPath, id)
}
