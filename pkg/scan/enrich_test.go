package scan

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyutoYoda/trocco-batch-search-mcp-server/internal/testutil"
)

func TestScan_EnrichesHeadOfMatches(t *testing.T) {
	mock := testutil.NewMockTrocco()
	defer mock.Close()

	items := make([]testutil.JobDef, 7)
	for i := range items {
		items[i] = testutil.JobDef{
			ID:               int64(i + 1),
			Name:             "warehouse load",
			InputOptionType:  "s3",
			OutputOptionType: "snowflake",
		}
	}
	mock.SetBatches(testutil.Batch{Items: items})

	for _, item := range items {
		mock.SetDetail(item.ID, testutil.MockResponse{
			StatusCode: http.StatusOK,
			Body: testutil.DetailBody(item, map[string]any{
				"input_option": map[string]any{
					"s3_input_option": map[string]any{"bucket": "raw-events", "path_prefix": "2026/"},
				},
				"output_option": map[string]any{
					"snowflake_output_option": map[string]any{
						"database": "ANALYTICS", "schema": "PUBLIC", "table": "EVENTS", "warehouse": "LOAD_WH",
					},
				},
			}),
		})
	}

	o := newTestOrchestrator(t, mock)
	result, err := o.Scan(context.Background(), Params{SearchTerm: "warehouse"})
	require.NoError(t, err)
	require.Len(t, result.Matches, 7)

	for i, match := range result.Matches {
		if i < 5 {
			require.NotNil(t, match.Detail, "match %d is in the enrichment head", i)
			require.NotNil(t, match.Detail.Input)
			assert.Equal(t, "s3", match.Detail.Input.Type)
			assert.Equal(t, "s3://raw-events/2026/", match.Detail.Input.Summary)
			require.NotNil(t, match.Detail.Output)
			assert.Equal(t, "ANALYTICS.PUBLIC.EVENTS (warehouse: LOAD_WH)", match.Detail.Output.Summary)
		} else {
			assert.Nil(t, match.Detail, "match %d is beyond the enrichment head", i)
		}
	}

	assert.Equal(t, 5, mock.RequestCount("/api/job_definitions/1")+
		mock.RequestCount("/api/job_definitions/2")+
		mock.RequestCount("/api/job_definitions/3")+
		mock.RequestCount("/api/job_definitions/4")+
		mock.RequestCount("/api/job_definitions/5")+
		mock.RequestCount("/api/job_definitions/6")+
		mock.RequestCount("/api/job_definitions/7"))
}

func TestScan_DetailFailureIsIsolated(t *testing.T) {
	mock := testutil.NewMockTrocco()
	defer mock.Close()

	items := make([]testutil.JobDef, 5)
	for i := range items {
		items[i] = testutil.JobDef{
			ID:              int64(i + 1),
			Name:            "billing export",
			InputOptionType: "s3",
		}
	}
	mock.SetBatches(testutil.Batch{Items: items})

	for _, item := range items {
		if item.ID == 3 {
			mock.SetDetail(item.ID, testutil.MockResponse{
				StatusCode: http.StatusInternalServerError,
				Body:       `{"message":"boom"}`,
			})
			continue
		}
		mock.SetDetail(item.ID, testutil.MockResponse{
			StatusCode: http.StatusOK,
			Body: testutil.DetailBody(item, map[string]any{
				"input_option": map[string]any{
					"s3_input_option": map[string]any{"bucket": "exports", "prefix": "billing/"},
				},
			}),
		})
	}

	o := newTestOrchestrator(t, mock)
	result, err := o.Scan(context.Background(), Params{SearchTerm: "billing"})
	require.NoError(t, err, "a detail-fetch failure must not fail the call")
	require.Len(t, result.Matches, 5, "the failed candidate stays in the result")

	for _, match := range result.Matches {
		if match.ID == 3 {
			assert.Nil(t, match.Detail, "the failed candidate gets an empty detail")
			continue
		}
		require.NotNil(t, match.Detail, "id %d", match.ID)
		assert.Equal(t, "exports", match.Detail.Input.Fields["bucket"])
	}
}

func TestSummarizeConnector_LayoutVariants(t *testing.T) {
	nested := []byte(`{"input_option":{"s3_input_option":{"bucket":"b","path_prefix":"p/"}}}`)
	flat := []byte(`{"s3_input_option":{"bucket":"b","prefix":"p/"}}`)

	for name, raw := range map[string][]byte{"nested": nested, "flat": flat} {
		t.Run(name, func(t *testing.T) {
			summary := summarizeConnector(raw, "input", "s3")
			require.NotNil(t, summary)
			assert.Equal(t, "s3", summary.Type)
			assert.Equal(t, "b", summary.Fields["bucket"])
			assert.Equal(t, "p/", summary.Fields["prefix"])
		})
	}
}

func TestSummarizeConnector_FirstMatchWins(t *testing.T) {
	// Both layouts present: the nested variant is listed first and wins.
	raw := []byte(`{
		"input_option":{"s3_input_option":{"bucket":"nested-bucket"}},
		"s3_input_option":{"bucket":"flat-bucket"}
	}`)
	summary := summarizeConnector(raw, "input", "s3")
	require.NotNil(t, summary)
	assert.Equal(t, "nested-bucket", summary.Fields["bucket"])
}

func TestSummarizeConnector_BigQueryOutput(t *testing.T) {
	raw := []byte(`{"output_option":{"bigquery_output_option":{"project_id":"proj","dataset":"ds","table":"tbl"}}}`)
	summary := summarizeConnector(raw, "output", "bigquery")
	require.NotNil(t, summary)
	assert.Equal(t, "proj.ds.tbl", summary.Summary)
}

func TestSummarizeConnector_SnowflakeFieldAliases(t *testing.T) {
	raw := []byte(`{"output_option":{"snowflake_output_option":{"db":"D","schema_name":"S","table_name":"T","execution_warehouse":"W"}}}`)
	summary := summarizeConnector(raw, "output", "snowflake")
	require.NotNil(t, summary)
	assert.Equal(t, "D.S.T (warehouse: W)", summary.Summary)
	assert.Equal(t, "W", summary.Fields["warehouse"])
}

func TestSummarizeConnector_UnknownType(t *testing.T) {
	raw := []byte(`{"input_option":{"mysql_input_option":{"host":"db"}}}`)
	assert.Nil(t, summarizeConnector(raw, "input", "mysql"))
}

func TestSummarizeDetail_BothSidesMissing(t *testing.T) {
	assert.Nil(t, summarizeDetail([]byte(`{"id":1}`), "s3", "snowflake"))
}
