package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/client"
)

// enrich fetches the full detail record for the head of the deduplicated
// matches and attaches connector summaries in place. The fetches are
// independent and run concurrently; a failed fetch leaves that one match
// without a detail and never delays or fails the others.
func (o *Orchestrator) enrich(ctx context.Context, matches []Match) {
	head := len(matches)
	if head > enrichHead {
		head = enrichHead
	}

	var group errgroup.Group
	for i := 0; i < head; i++ {
		i := i
		group.Go(func() error {
			resp, err := o.client.Request(ctx, client.RequestSpec{
				Path: fmt.Sprintf("%s/%d", jobDefinitionsPath, matches[i].ID),
			})
			if err != nil {
				o.logger.Warn().Err(err).Int64("id", matches[i].ID).
					Msg("Detail fetch failed - match kept without enrichment")
				return nil
			}
			matches[i].Detail = summarizeDetail(resp.Raw(),
				matches[i].InputOptionType, matches[i].OutputOptionType)
			return nil
		})
	}
	_ = group.Wait()
}

// connectorShape is one known field layout for a connector type. probe is
// the gjson path of the option object relative to the detail body; every
// "{side}" placeholder is replaced with "input" or "output".
type connectorShape struct {
	probe string
	build func(opt gjson.Result) *ConnectorSummary
}

// path resolves the probe for one side.
func (s connectorShape) path(side string) string {
	return strings.ReplaceAll(s.probe, "{side}", side)
}

// connectorShapes maps a connector type to its known layouts, evaluated in
// order with first match winning. Supporting a new connector or a renamed
// field layout means adding an entry here, not new control flow.
var connectorShapes = map[string][]connectorShape{
	"s3": {
		{probe: "{side}_option.s3_{side}_option", build: buildS3Summary},
		{probe: "s3_{side}_option", build: buildS3Summary},
	},
	"snowflake": {
		{probe: "{side}_option.snowflake_{side}_option", build: buildSnowflakeSummary},
		{probe: "snowflake_{side}_option", build: buildSnowflakeSummary},
	},
	"bigquery": {
		{probe: "{side}_option.bigquery_{side}_option", build: buildBigQuerySummary},
		{probe: "bigquery_{side}_option", build: buildBigQuerySummary},
	},
}

// summarizeDetail reduces a detail body to per-side connector summaries.
// Unknown connector types and bodies with none of the known layouts yield
// nil sides rather than errors.
func summarizeDetail(raw []byte, inputType, outputType string) *MatchDetail {
	detail := &MatchDetail{
		Input:  summarizeConnector(raw, "input", inputType),
		Output: summarizeConnector(raw, "output", outputType),
	}
	if detail.Input == nil && detail.Output == nil {
		return nil
	}
	return detail
}

// summarizeConnector walks the shape table for one side, first match wins.
func summarizeConnector(raw []byte, side, connectorType string) *ConnectorSummary {
	shapes, ok := connectorShapes[connectorType]
	if !ok {
		return nil
	}
	for _, shape := range shapes {
		opt := gjson.GetBytes(raw, shape.path(side))
		if !opt.Exists() || !opt.IsObject() {
			continue
		}
		if summary := shape.build(opt); summary != nil {
			return summary
		}
	}
	return nil
}

// firstField returns the first non-empty value among candidate field names.
func firstField(opt gjson.Result, names ...string) string {
	for _, name := range names {
		if v := opt.Get(name); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func buildS3Summary(opt gjson.Result) *ConnectorSummary {
	bucket := firstField(opt, "bucket", "bucket_name")
	prefix := firstField(opt, "path_prefix", "prefix", "path")
	if bucket == "" {
		return nil
	}
	return &ConnectorSummary{
		Type:    "s3",
		Summary: fmt.Sprintf("s3://%s/%s", bucket, prefix),
		Fields:  map[string]string{"bucket": bucket, "prefix": prefix},
	}
}

func buildSnowflakeSummary(opt gjson.Result) *ConnectorSummary {
	database := firstField(opt, "database", "db")
	schema := firstField(opt, "schema", "schema_name")
	table := firstField(opt, "table", "table_name")
	warehouse := firstField(opt, "warehouse", "execution_warehouse")
	if database == "" && table == "" {
		return nil
	}
	return &ConnectorSummary{
		Type:    "snowflake",
		Summary: fmt.Sprintf("%s.%s.%s (warehouse: %s)", database, schema, table, warehouse),
		Fields: map[string]string{
			"database":  database,
			"schema":    schema,
			"table":     table,
			"warehouse": warehouse,
		},
	}
}

func buildBigQuerySummary(opt gjson.Result) *ConnectorSummary {
	project := firstField(opt, "project_id", "project")
	dataset := firstField(opt, "dataset", "dataset_id")
	table := firstField(opt, "table", "table_id")
	if project == "" && dataset == "" {
		return nil
	}
	return &ConnectorSummary{
		Type:    "bigquery",
		Summary: fmt.Sprintf("%s.%s.%s", project, dataset, table),
		Fields: map[string]string{
			"project": project,
			"dataset": dataset,
			"table":   table,
		},
	}
}
