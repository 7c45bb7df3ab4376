package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrMissingBaseURL is returned by New when no base endpoint is configured.
	ErrMissingBaseURL = errors.New("base URL is required")

	// ErrMissingAPIKey is returned by New when no credential is configured.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrMissingPath is returned when a request spec has an empty path.
	ErrMissingPath = errors.New("request path is required")

	// ErrCrossOrigin is returned when an absolute request URL does not match
	// the configured base endpoint. Callers must not be able to redirect
	// authenticated requests to arbitrary hosts.
	ErrCrossOrigin = errors.New("absolute URL does not match configured base endpoint")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// RequestContext is the request-side diagnostic context attached to every
// APIError so a failure can be traced back to the call that produced it.
type RequestContext struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Path   string `json:"path"`
}

// APIError is the single error type raised for non-2xx responses, transport
// failures, and timeouts. Response is nil for transport-level failures;
// callers distinguish the two cases by its presence.
type APIError struct {
	Message  string         `json:"message"`
	Class    ErrorClass     `json:"class"`
	Request  RequestContext `json:"request"`
	Response *Response      `json:"response,omitempty"`
	Err      error          `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Response != nil:
		return fmt.Sprintf("trocco %s error (status %d): %s %s: %s",
			e.Class, e.Response.StatusCode, e.Request.Method, e.Request.Path, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("trocco %s error: %s %s: %s: %v",
			e.Class, e.Request.Method, e.Request.Path, e.Message, e.Err)
	default:
		return fmt.Sprintf("trocco %s error: %s %s: %s",
			e.Class, e.Request.Method, e.Request.Path, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassNetwork
	}
}
