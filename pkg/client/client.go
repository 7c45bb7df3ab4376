// Package client provides the core TROCCO HTTP client: authenticated
// requests with combined timeout/cancellation, response classification,
// and a generic page-follower for cursorless pagination.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RyutoYoda/trocco-batch-search-mcp-server/pkg/cancelctx"
)

// userAgent identifies this client to the TROCCO API.
const userAgent = "trocco-batch-search-mcp-server/1.0"

// Prometheus metrics for TROCCO client operations.
var (
	troccoRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trocco_requests_total",
		Help: "Total TROCCO requests by path and status",
	}, []string{"path", "status"})

	troccoRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trocco_request_duration_seconds",
		Help:    "TROCCO request duration in seconds by path",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"path"})

	troccoErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trocco_errors_total",
		Help: "Total TROCCO request errors by class",
	}, []string{"class"})
)

// Client is the TROCCO API client. It holds no mutable state beyond
// configuration; concurrent use from multiple goroutines is safe.
type Client struct {
	httpClient *http.Client
	base       *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API base endpoint, e.g. "https://trocco.io/api".
	BaseURL string

	// APIKey is the credential sent on every request.
	APIKey string

	// AuthHeader is the header carrying the credential (default "Authorization").
	AuthHeader string

	// AuthScheme is the scheme prefix inside the auth header (default "Token").
	// An empty scheme sends the bare credential.
	AuthScheme string

	// ExtraHeaders are static headers added to every request. Per-call
	// headers override them.
	ExtraHeaders map[string]string

	// Timeout is the default per-request timeout (default 30s).
	Timeout time.Duration

	// HTTPClient overrides the underlying transport (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration with TROCCO's standard auth layout.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		AuthHeader: "Authorization",
		AuthScheme: "Token",
		Timeout:    30 * time.Second,
	}
}

// New creates a TROCCO client. Missing base endpoint or credential is a
// construction error, never a request-time error.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		base:       base,
		config:     cfg,
		logger:     log.With().Str("component", "trocco-client").Logger(),
	}, nil
}

// BaseURL returns the configured base endpoint without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// RequestSpec describes a single API call. A zero Method means GET and a
// zero Timeout falls back to the client default.
type RequestSpec struct {
	Path    string
	Method  string
	Query   map[string]any
	Body    any
	Headers map[string]string

	// ResponseType forces body classification: "json" always parses,
	// "text" never parses, "" sniffs the Content-Type header.
	ResponseType string

	Timeout time.Duration
}

// Response is the envelope returned for every completed HTTP exchange.
// Exactly one of Data/RawText is set when the body is non-empty.
type Response struct {
	OK         bool              `json:"ok"`
	StatusCode int               `json:"status_code"`
	StatusText string            `json:"status_text"`
	FinalURL   string            `json:"final_url"`
	Method     string            `json:"method"`
	DurationMS float64           `json:"duration_ms"`
	Headers    map[string]string `json:"headers"`
	Data       any               `json:"data,omitempty"`
	RawText    string            `json:"raw_text,omitempty"`

	raw []byte
}

// Raw returns the unparsed response body.
func (r *Response) Raw() []byte {
	return r.raw
}

// Request performs one authenticated API call. The call is bound to a
// combined cancellation signal: it self-aborts after the timeout and also
// aborts immediately if ctx is cancelled, whichever fires first. Non-2xx
// responses and transport failures both surface as *APIError.
func (c *Client) Request(ctx context.Context, spec RequestSpec) (*Response, error) {
	if strings.TrimSpace(spec.Path) == "" {
		return nil, ErrMissingPath
	}

	target, err := c.resolveURL(spec.Path)
	if err != nil {
		return nil, err
	}
	target.RawQuery = encodeQuery(spec.Query)

	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	reqCtx := RequestContext{Method: method, URL: target.String(), Path: spec.Path}

	body, err := encodeBody(method, spec.Body)
	if err != nil {
		return nil, &APIError{
			Message: "encode request body",
			Class:   ErrorClassNetwork,
			Request: reqCtx,
			Err:     err,
		}
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	callCtx, release := cancelctx.WithTimeout(timeout, ctx)
	defer release()

	req, err := http.NewRequestWithContext(callCtx, method, target.String(), body)
	if err != nil {
		return nil, &APIError{
			Message: "build request",
			Class:   ErrorClassNetwork,
			Request: reqCtx,
			Err:     err,
		}
	}
	c.setHeaders(req, spec.Headers)

	c.logger.Debug().
		Str("method", method).
		Str("path", spec.Path).
		Msg("Executing TROCCO request")

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	troccoRequestDuration.WithLabelValues(spec.Path).Observe(duration.Seconds())

	if err != nil {
		cause := context.Cause(callCtx)
		msg := "request failed"
		if cause != nil && callCtx.Err() != nil {
			msg = cause.Error()
			err = cause
		}
		troccoErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		troccoRequestsTotal.WithLabelValues(spec.Path, "network_error").Inc()
		c.logger.Error().Err(err).Str("path", spec.Path).Msg("TROCCO request failed")
		return nil, &APIError{
			Message: msg,
			Class:   ErrorClassNetwork,
			Request: reqCtx,
			Err:     err,
		}
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		troccoErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			Message: "read response body",
			Class:   ErrorClassNetwork,
			Request: reqCtx,
			Err:     err,
		}
	}

	resp := buildResponse(httpResp, spec.ResponseType, rawBody, duration)
	troccoRequestsTotal.WithLabelValues(spec.Path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if !resp.OK {
		class := classifyStatus(resp.StatusCode)
		troccoErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("path", spec.Path).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("TROCCO request error")
		return nil, &APIError{
			Message:  resp.StatusText,
			Class:    class,
			Request:  reqCtx,
			Response: resp,
		}
	}

	return resp, nil
}

// resolveURL resolves a request path against the base endpoint. Absolute
// URLs are accepted only when they stay inside the configured base.
func (c *Client) resolveURL(path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		abs, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrCrossOrigin, path)
		}
		prefix := c.base.Scheme + "://" + c.base.Host + c.base.Path
		if abs.Scheme+"://"+abs.Host+abs.Path != prefix &&
			!strings.HasPrefix(abs.Scheme+"://"+abs.Host+abs.Path, prefix+"/") {
			return nil, fmt.Errorf("%w: %q", ErrCrossOrigin, path)
		}
		return abs, nil
	}

	joined := *c.base
	joined.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return &joined, nil
}

// setHeaders applies the layered header set: base headers, then auth, then
// client identity, then configured extras, then per-call headers. Later
// layers win.
func (c *Client) setHeaders(req *http.Request, perCall map[string]string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	authValue := c.config.APIKey
	if c.config.AuthScheme != "" {
		authValue = c.config.AuthScheme + " " + c.config.APIKey
	}
	req.Header.Set(c.config.AuthHeader, authValue)
	req.Header.Set("User-Agent", userAgent)

	for k, v := range c.config.ExtraHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range perCall {
		req.Header.Set(k, v)
	}
}

// encodeQuery renders a query mapping: nil values are dropped, slice values
// expand to repeated parameters in element order, scalars are stringified.
func encodeQuery(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}
	values := url.Values{}
	for key, val := range query {
		if val == nil {
			continue
		}
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				elem := rv.Index(i).Interface()
				if elem == nil {
					continue
				}
				values.Add(key, fmt.Sprintf("%v", elem))
			}
			continue
		}
		values.Add(key, fmt.Sprintf("%v", val))
	}
	return values.Encode()
}

// encodeBody prepares the request body. GET/HEAD never carry one; strings
// and byte slices pass through unchanged, anything else is JSON-encoded.
func encodeBody(method string, body any) (io.Reader, error) {
	if body == nil || method == http.MethodGet || method == http.MethodHead {
		return nil, nil
	}
	switch b := body.(type) {
	case string:
		return strings.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(encoded), nil
	}
}

// buildResponse classifies the body and assembles the response envelope.
// A body that fails to parse as JSON despite a JSON classification degrades
// to RawText instead of raising.
func buildResponse(httpResp *http.Response, responseType string, rawBody []byte, duration time.Duration) *Response {
	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	resp := &Response{
		OK:         httpResp.StatusCode >= 200 && httpResp.StatusCode < 300,
		StatusCode: httpResp.StatusCode,
		StatusText: httpResp.Status,
		FinalURL:   httpResp.Request.URL.String(),
		Method:     httpResp.Request.Method,
		DurationMS: float64(duration.Microseconds()) / 1000.0,
		Headers:    headers,
		raw:        rawBody,
	}

	if len(rawBody) == 0 {
		return resp
	}

	wantJSON := false
	switch responseType {
	case "json":
		wantJSON = true
	case "text":
		wantJSON = false
	default:
		contentType := httpResp.Header.Get("Content-Type")
		wantJSON = strings.Contains(contentType, "json")
	}

	if wantJSON {
		var data any
		if err := json.Unmarshal(rawBody, &data); err == nil {
			resp.Data = data
			return resp
		}
	}
	resp.RawText = string(rawBody)
	return resp
}
