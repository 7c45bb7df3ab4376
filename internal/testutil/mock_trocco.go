// Package testutil provides a configurable mock TROCCO API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// JobDef is a minimal job definition the mock serves on listing and detail
// endpoints. Extra holds arbitrary additional detail fields.
type JobDef struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	InputOptionType  string         `json:"input_option_type,omitempty"`
	OutputOptionType string         `json:"output_option_type,omitempty"`
	CreatedBy        any            `json:"created_by,omitempty"`
	Extra            map[string]any `json:"-"`
}

// Batch is one listing page.
type Batch struct {
	Items      []JobDef
	NextCursor string
}

// MockTrocco is a configurable mock TROCCO API for testing. It serves
// /api/job_definitions with canned batches and /api/job_definitions/{id}
// with detail records, and records every request it sees.
type MockTrocco struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	batches  []Batch
	details  map[string]MockResponse
	requests []CapturedRequest
}

// MockResponse is a canned response for a specific path.
type MockResponse struct {
	StatusCode int
	Body       string
}

// CapturedRequest records one request the mock received.
type CapturedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
}

// NewMockTrocco starts a mock server. Callers must Close it.
func NewMockTrocco() *MockTrocco {
	m := &MockTrocco{
		handlers: make(map[string]http.HandlerFunc),
		details:  make(map[string]MockResponse),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.dispatch))
	return m
}

// URL returns the mock server's base URL.
func (m *MockTrocco) URL() string { return m.server.URL }

// BaseURL returns the mock API base endpoint, mirroring TROCCO's /api prefix.
func (m *MockTrocco) BaseURL() string { return m.server.URL + "/api" }

// Close shuts the server down.
func (m *MockTrocco) Close() { m.server.Close() }

// Requests returns a copy of the captured requests in arrival order.
func (m *MockTrocco) Requests() []CapturedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CapturedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns how many requests matched the given path, or all
// requests when path is empty.
func (m *MockTrocco) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path == "" {
		return len(m.requests)
	}
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// SetHandler installs a custom handler for an exact path.
func (m *MockTrocco) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetBatches configures the cursor-paged listing endpoint. Batch i is served
// for cursor "" (first request) or the previous batch's NextCursor.
func (m *MockTrocco) SetBatches(batches ...Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = batches
}

// SetDetail configures the detail endpoint for one job definition id.
func (m *MockTrocco) SetDetail(id int64, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[fmt.Sprintf("/api/job_definitions/%d", id)] = resp
}

func (m *MockTrocco) dispatch(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, CapturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})
	handler := m.handlers[r.URL.Path]
	detail, hasDetail := m.details[r.URL.Path]
	m.mu.Unlock()

	switch {
	case handler != nil:
		handler(w, r)
	case hasDetail:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(detail.StatusCode)
		fmt.Fprint(w, detail.Body)
	case r.URL.Path == "/api/job_definitions":
		m.serveListing(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"not found"}`)
	}
}

// serveListing resolves the cursor against the configured batches.
func (m *MockTrocco) serveListing(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	batches := m.batches
	m.mu.Unlock()

	cursor := r.URL.Query().Get("cursor")
	idx := 0
	if cursor != "" {
		idx = -1
		for i := 0; i < len(batches)-1; i++ {
			if batches[i].NextCursor == cursor {
				idx = i + 1
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if idx < 0 || idx >= len(batches) {
		fmt.Fprint(w, `{"items":[],"next_cursor":null}`)
		return
	}

	batch := batches[idx]
	items := batch.Items
	if items == nil {
		items = []JobDef{}
	}
	payload := map[string]any{"items": items}
	if batch.NextCursor != "" {
		payload["next_cursor"] = batch.NextCursor
	} else {
		payload["next_cursor"] = nil
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// DetailBody builds a detail JSON body for a job definition with the given
// option objects attached, e.g. DetailBody(def, map[string]any{
// "input_option": map[string]any{"s3_input_option": ...}}).
func DetailBody(def JobDef, options map[string]any) string {
	payload := map[string]any{
		"id":                 def.ID,
		"name":               def.Name,
		"description":        def.Description,
		"input_option_type":  def.InputOptionType,
		"output_option_type": def.OutputOptionType,
	}
	for k, v := range options {
		payload[k] = v
	}
	for k, v := range def.Extra {
		payload[k] = v
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

// MakeJobs generates n job definitions with sequential ids starting at
// startID. Names follow "job-<id>"; matchNames overrides specific offsets.
func MakeJobs(startID int64, n int, matchNames map[int]string) []JobDef {
	jobs := make([]JobDef, n)
	for i := range jobs {
		id := startID + int64(i)
		name := fmt.Sprintf("job-%d", id)
		if override, ok := matchNames[i]; ok {
			name = override
		}
		jobs[i] = JobDef{ID: id, Name: name, Description: fmt.Sprintf("definition %d", id)}
	}
	return jobs
}
