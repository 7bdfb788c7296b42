// Package reqflow turns plain-text HTTP request scripts into batches of
// concurrently executed requests with ordered, incremental result delivery.
//
// A script is parsed into an ordered list of request descriptors, resolved
// against an environment of named variables, and executed by a bounded worker
// pool. Results are delivered to a [Handler] twice: once per request as each
// completes (completion order, non-deterministic), and once per batch after
// every request has finished (source order, deterministic). This makes fast
// networks feel fast while keeping the final, grouped output reproducible.
//
// # Quick Start
//
// Create a runner and execute a script:
//
//	r, _ := reqflow.New(reqflow.WithConcurrency(5))
//
//	results, err := r.Run(context.Background(), `
//	GET https://api.example.com/users
//	Accept: application/json
//
//	POST https://api.example.com/users
//	Content-Type: application/json
//
//	{"name": "ada"}
//	`)
//
// Run blocks until the batch completes. For incremental delivery, register a
// [Handler] and use [Runner.Submit], which returns a [Batch] handle
// immediately:
//
//	r, _ := reqflow.New(
//	    reqflow.WithHandler(reqflow.HandlerFuncs{
//	        OnResult: func(res reqflow.Result) { fmt.Println(res.Request.URL()) },
//	    }),
//	)
//	batch, _ := r.Submit(ctx, script)
//	<-batch.Done()
//
// # Script Format
//
// A request begins with a method line ("GET https://...") followed by
// optional "Name: value" header lines, a blank line, and an optional body.
// Requests are separated by the next method line or a "###" separator line.
// Lines starting with "#" or "//" outside a request are comments.
//
// An environment block is a YAML mapping delimited by a pair of "###env"
// lines:
//
//	###env
//	host: https://api.example.com
//	token: hunter2
//	###env
//
//	GET {{.host}}/users
//	Authorization: Bearer {{.token}}
//
// Placeholders use Go template syntax ({{.name}}) and may appear anywhere in
// a request. A reference to an undefined variable fails only that request;
// sibling requests in the batch still execute.
//
// # Configuration
//
// The runner uses the functional options pattern:
//
//	r, err := reqflow.New(
//	    reqflow.WithConcurrency(5),
//	    reqflow.WithRequestTimeout(10 * time.Second),
//	    reqflow.WithPollInterval(100 * time.Millisecond),
//	    reqflow.WithEnv(env.Vars{"host": "https://api.example.com"}),
//	)
//
// # Cancellation
//
// [Batch.Cancel] stops queued requests from starting and discards results
// that arrive afterwards; the per-batch callback never fires for a cancelled
// batch. Submitting a new batch cancels the previous one, so a consumer that
// has moved on never sees stale deliveries.
//
// # Architecture
//
// The library consists of several packages:
//
//   - env: environment evaluation and variable resolution
//   - history: append-only record of executed requests with pub/sub
//   - internal/parse: request-script parsing
//   - internal/pool: bounded worker pool with polling semantics
//   - internal/httpexec: HTTP execution client
//
// The internal packages are not part of the public API and may change
// without notice.
package reqflow
