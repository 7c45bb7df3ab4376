package scan

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy names accepted by the orchestrator.
const (
	StrategyExhaustiveScan = "exhaustive_scan"
	StrategyKeywordChunks  = "keyword_chunks"
	StrategyAlphabetSweep  = "alphabet_sweep"
	StrategyRecentFirst    = "recent_first"
)

// alphabet is the fixed sweep order for alphabet_sweep.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// batchOutcome is what a completed batch request feeds back into a strategy.
type batchOutcome struct {
	records []JobRecord
	raw     []byte
}

// strategy is the per-scan policy for generating the query sequence. A
// strategy is single-use: it accumulates advancement state across batches.
type strategy interface {
	// nextQuery returns the query for the upcoming batch request.
	nextQuery() map[string]any

	// advance consumes the outcome of a completed batch.
	advance(out batchOutcome)

	// shouldContinue reports whether another batch should be requested.
	shouldContinue() bool

	// fatalOnError reports whether a failed batch request terminates the
	// scan. True for strategies whose batches are sequentially dependent.
	fatalOnError() bool
}

// newStrategy constructs the named strategy for one scan of searchTerm.
func newStrategy(name, searchTerm string) (strategy, error) {
	switch name {
	case StrategyExhaustiveScan:
		return &exhaustiveScan{}, nil
	case StrategyKeywordChunks:
		return &keywordChunks{chunks: keywordChunkSet(searchTerm)}, nil
	case StrategyAlphabetSweep:
		return &alphabetSweep{}, nil
	case StrategyRecentFirst:
		return &recentFirst{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// exhaustiveScan follows the server's next_cursor page by page.
type exhaustiveScan struct {
	cursor string
	done   bool
}

func (s *exhaustiveScan) nextQuery() map[string]any {
	query := map[string]any{"limit": 100}
	if s.cursor != "" {
		query["cursor"] = s.cursor
	}
	return query
}

func (s *exhaustiveScan) advance(out batchOutcome) {
	next := gjson.GetBytes(out.raw, "next_cursor")
	if next.Exists() && next.Type == gjson.String && next.String() != "" {
		s.cursor = next.String()
		return
	}
	s.done = true
}

func (s *exhaustiveScan) shouldContinue() bool { return !s.done }
func (s *exhaustiveScan) fatalOnError() bool   { return true }

// keywordChunks queries name_contains with substrings derived from the
// search term, one batch per chunk.
type keywordChunks struct {
	chunks []string
	idx    int
}

func (s *keywordChunks) nextQuery() map[string]any {
	return map[string]any{"name_contains": s.chunks[s.idx], "limit": 200}
}

func (s *keywordChunks) advance(batchOutcome) { s.idx++ }
func (s *keywordChunks) shouldContinue() bool { return s.idx < len(s.chunks) }
func (s *keywordChunks) fatalOnError() bool   { return false }

// keywordChunkSet derives the deduplicated chunk sequence for a search term:
// every contiguous 3-character window, then the first half and second half
// of the term (midpoint floored). Order of first occurrence is preserved.
// The term is case-folded first; matching is case-insensitive anyway and
// mixed-case name_contains filters would only narrow the server-side sweep.
func keywordChunkSet(term string) []string {
	runes := []rune(strings.ToLower(term))

	var raw []string
	for i := 0; i+3 <= len(runes); i++ {
		raw = append(raw, string(runes[i:i+3]))
	}
	mid := len(runes) / 2
	raw = append(raw, string(runes[:mid]), string(runes[mid:]))

	seen := make(map[string]struct{}, len(raw))
	chunks := make([]string, 0, len(raw))
	for _, chunk := range raw {
		if chunk == "" {
			continue
		}
		if _, ok := seen[chunk]; ok {
			continue
		}
		seen[chunk] = struct{}{}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// alphabetSweep queries name_contains for every lowercase letter and digit.
type alphabetSweep struct {
	idx int
}

func (s *alphabetSweep) nextQuery() map[string]any {
	return map[string]any{"name_contains": string(alphabet[s.idx]), "limit": 200}
}

func (s *alphabetSweep) advance(batchOutcome) { s.idx++ }
func (s *alphabetSweep) shouldContinue() bool { return s.idx < len(alphabet) }
func (s *alphabetSweep) fatalOnError() bool   { return false }

// recentFirst requests fixed batches with no cursor, relying on the API's
// default most-recent-first ordering. That ordering is a documented
// assumption about the upstream API, not a guaranteed contract; no sort
// parameter is sent because adding one would change observed behavior.
type recentFirst struct {
	stopped bool
}

func (s *recentFirst) nextQuery() map[string]any {
	return map[string]any{"limit": 100}
}

func (s *recentFirst) advance(out batchOutcome) {
	if len(out.records) == 0 {
		s.stopped = true
	}
}

func (s *recentFirst) shouldContinue() bool { return !s.stopped }
func (s *recentFirst) fatalOnError() bool   { return true }
