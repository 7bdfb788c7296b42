// Package httpexec performs the network calls for request execution units.
package httpexec

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBodySize = 10 << 20 // 10MB

// connection pooling limits to prevent resource exhaustion when a script
// fans out many requests to the same host
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the result of one HTTP call made by [Client].
//
// Errors are captured in the Err field rather than returned separately, so
// an execution unit always has a single value to convert into its result.
type Response struct {
	// StatusCode is the HTTP status code. Zero if the request failed before
	// a response was received.
	StatusCode int

	// Header contains the response headers.
	Header http.Header

	// Body contains the response body, limited to 10MB.
	Body []byte

	// Elapsed is the total wall-clock time for the request.
	Elapsed time.Duration

	// Err contains any error that occurred: request construction, DNS,
	// connection, TLS, timeout, or body read failures.
	Err error
}

// Client is an HTTP client wrapper for executing script requests.
//
// Timeouts are applied per request via context rather than as a global
// client timeout, since each batch can configure its own limit. Response
// bodies are capped at 10MB.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an execution [Client] with pooled connections.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Do performs one HTTP request and returns a structured [Response].
//
// The timeout bounds the whole call, including reading the body. A zero
// timeout means the request is bounded only by ctx.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body string, timeout time.Duration) Response {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{
			Elapsed: time.Since(start),
			Err:     fmt.Errorf("build request: %w", err),
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Elapsed: time.Since(start),
			Err:     fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Elapsed:    time.Since(start),
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Elapsed:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close the client remains usable; new
// connections are established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
