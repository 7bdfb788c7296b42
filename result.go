package reqflow

import (
	"net/http"
	"time"
)

// Response captures the HTTP response of a successfully executed request.
type Response struct {
	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	StatusCode int

	// Header contains the response headers.
	Header http.Header

	// Body contains the response body, capped at 10MB.
	Body []byte
}

// Result is the outcome of executing one request. Exactly one of Response
// and Err is populated: a request that failed at any stage (argument
// resolution, descriptor parsing, or the network call) carries the failure
// in Err and has a nil Response.
//
// Results are immutable once delivered.
type Result struct {
	// Request is the descriptor this result belongs to.
	Request Request

	// Response holds the HTTP response; nil when the request failed.
	Response *Response

	// Err holds the failure; nil when the request succeeded.
	Err error

	// Elapsed is the wall-clock time the request took.
	Elapsed time.Duration

	// FinishedAt is when the request completed.
	FinishedAt time.Time
}

// OK reports whether the request completed without error.
func (r Result) OK() bool {
	return r.Err == nil
}
