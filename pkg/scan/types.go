// Package scan implements multi-strategy batch search over the TROCCO
// job_definitions collection. The API has no server-side substring search,
// so the orchestrator sweeps the collection in batches, filters client-side,
// deduplicates, and enriches a bounded head of the matches.
package scan

// JobRecord is a job definition as returned by the listing endpoint. Only
// the fields the scanner reads are decoded; everything else is ignored.
type JobRecord struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	InputOptionType  string `json:"input_option_type"`
	OutputOptionType string `json:"output_option_type"`
	CreatedBy        any    `json:"created_by,omitempty"`
}

// ConnectorSummary is the reduced detail for one side of a job definition:
// where the data comes from or where it goes.
type ConnectorSummary struct {
	Type    string            `json:"type"`
	Summary string            `json:"summary,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// MatchDetail carries the enrichment for one match. Both sides stay nil when
// the detail fetch failed or the connector type is unknown.
type MatchDetail struct {
	Input  *ConnectorSummary `json:"input,omitempty"`
	Output *ConnectorSummary `json:"output,omitempty"`
}

// Match is the projection of a matching job definition returned to callers.
type Match struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	Description      string       `json:"description,omitempty"`
	InputOptionType  string       `json:"input_option_type,omitempty"`
	OutputOptionType string       `json:"output_option_type,omitempty"`
	CreatedBy        any          `json:"created_by,omitempty"`
	URL              string       `json:"url"`
	Detail           *MatchDetail `json:"detail,omitempty"`
}

// Result is produced once per scan invocation and never mutated afterwards.
type Result struct {
	Strategy        string  `json:"strategy"`
	BatchesSearched int     `json:"batches_searched"`
	TotalScanned    int     `json:"total_scanned"`
	Matches         []Match `json:"matches"`
	Progress        string  `json:"progress"`
}
