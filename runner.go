package reqflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jharte/reqflow/env"
	"github.com/jharte/reqflow/history"
	"github.com/jharte/reqflow/internal/httpexec"
	"github.com/jharte/reqflow/internal/pool"
)

const (
	defaultConcurrency    = 10
	defaultPollInterval   = 200 * time.Millisecond
	defaultRequestTimeout = 30 * time.Second
)

// Runner is the batch coordinator: it owns the full request/response cycle
// for batches of text-derived requests, from parsing through delivery.
//
// A Runner is created with [New] and functional options, then driven with
// [Runner.Run] (blocking) or [Runner.Submit] (returns a [Batch] handle
// immediately). One batch is active at a time; submitting a new batch
// cancels the previous one, so late results from an abandoned batch are
// never delivered to a consumer that has moved on.
//
// All methods are safe for concurrent use.
type Runner struct {
	concurrency    int
	pollInterval   time.Duration
	requestTimeout time.Duration
	handler        Handler
	logger         *slog.Logger
	parser         Parser
	baseVars       env.Vars
	client         *httpexec.Client
	store          history.Store

	mu     sync.Mutex
	active *Batch
}

// New creates a [Runner] with the given options.
//
// Defaults: concurrency 10, poll interval 200ms, request timeout 30s,
// [NopHandler], [slog.Default], the built-in script parser, and an
// in-memory history store.
func New(opts ...Option) (*Runner, error) {
	cfg := &runnerConfig{
		concurrency:    defaultConcurrency,
		pollInterval:   defaultPollInterval,
		requestTimeout: defaultRequestTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.handler == nil {
		cfg.handler = NopHandler{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.parser == nil {
		cfg.parser = defaultParser{}
	}
	if cfg.store == nil {
		cfg.store = history.NewMemoryStore()
	}

	return &Runner{
		concurrency:    cfg.concurrency,
		pollInterval:   cfg.pollInterval,
		requestTimeout: cfg.requestTimeout,
		handler:        cfg.handler,
		logger:         cfg.logger,
		parser:         cfg.parser,
		baseVars:       cfg.baseVars,
		client:         httpexec.NewClient(),
		store:          cfg.store,
	}, nil
}

// Run parses text, executes all its requests, and blocks until the batch
// completes, returning results sorted by source order.
//
// Handler callbacks still fire during Run, so incremental and final
// delivery can be observed while a caller waits on the return value.
// Returns a [*ParseError] or [*EnvError] without executing anything if the
// script or its environment is malformed, and [ErrCancelled] if the batch
// is cancelled or superseded before completion. Per-request failures do not
// make Run fail; they are carried in the individual results.
func (r *Runner) Run(ctx context.Context, text string) ([]Result, error) {
	batch, err := r.Submit(ctx, text)
	if err != nil {
		return nil, err
	}
	return batch.Wait(ctx)
}

// Submit parses text, evaluates its environment, schedules all requests on
// the worker pool, and returns a [Batch] handle without waiting.
//
// The previous active batch, if still running, is cancelled: its queued
// requests stop, and its remaining deliveries are suppressed. Returns a
// [*ParseError] or [*EnvError] if the script or environment is malformed;
// in that case nothing is submitted.
func (r *Runner) Submit(ctx context.Context, text string) (*Batch, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	script, err := r.parser.Parse(text)
	if err != nil {
		return nil, err
	}

	blockVars, err := env.Parse(script.EnvBlock)
	if err != nil {
		return nil, &EnvError{Err: err}
	}
	// external base vars (e.g. an env file) override the inline block
	vars := env.Merge(blockVars, r.baseVars)

	tasks := make([]pool.Task, len(script.Descriptors))
	for i, desc := range script.Descriptors {
		tasks[i] = pool.Task{Index: i, Raw: desc}
	}

	exec := &unitExecutor{
		client:  r.client,
		timeout: r.requestTimeout,
		vars:    vars,
	}

	batch := &Batch{
		id:       uuid.New(),
		size:     len(tasks),
		pool:     pool.New(exec, r.logger),
		cancelCh: make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	r.mu.Lock()
	if prev := r.active; prev != nil {
		prev.Cancel()
	}
	r.active = batch
	r.mu.Unlock()

	r.logger.Info("batch submitted",
		"batch_id", batch.ID(),
		"requests", batch.Size(),
		"concurrency", r.concurrency,
	)

	batch.pool.Submit(ctx, tasks, r.concurrency)
	go r.pollLoop(ctx, batch)

	return batch, nil
}

// History returns the store of executed requests. Use it to read recent
// records or subscribe for live updates.
func (r *Runner) History() history.Store {
	return r.store
}

// Close releases the runner's network resources. The runner remains usable;
// new connections are established as needed.
func (r *Runner) Close() {
	r.client.Close()
}

// pollLoop drives one batch to completion: on each tick it harvests
// completed results, delivers them incrementally, reports progress, and on
// drain delivers the batch sorted by source order.
func (r *Runner) pollLoop(ctx context.Context, b *Batch) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	collected := make([]Result, 0, b.size)

	for {
		select {
		case <-ctx.Done():
			b.Cancel()
			b.finish(nil, ctx.Err())
			return

		case <-b.cancelCh:
			r.logger.Info("batch cancelled", "batch_id", b.ID(), "delivered", len(collected), "requests", b.size)
			b.finish(nil, ErrCancelled)
			return

		case <-ticker.C:
			if b.isCancelled() {
				b.finish(nil, ErrCancelled)
				return
			}

			outcomes := b.pool.Poll()
			idle := b.pool.Idle()

			for _, o := range outcomes {
				res := outcomeToResult(o)
				collected = append(collected, res)
				if r.isActive(b) {
					r.invokeSafe(b, "HandleResult", func() { r.handler.HandleResult(res) })
				}
				if res.Err != nil {
					r.logger.Warn("request failed",
						"batch_id", b.ID(),
						"index", res.Request.Index(),
						"url", res.Request.URL(),
						"error", res.Err.Error(),
					)
				} else {
					r.logger.Debug("request completed",
						"batch_id", b.ID(),
						"index", res.Request.Index(),
						"status", res.Response.StatusCode,
						"elapsed_ms", res.Elapsed.Milliseconds(),
					)
				}
			}

			if !idle {
				if r.isActive(b) {
					pending := b.pool.Pending()
					r.invokeSafe(b, "Progress", func() { r.handler.Progress(pending, b.size) })
				}
				continue
			}

			// final delivery is sorted by source order regardless of the
			// order requests actually completed in
			sort.SliceStable(collected, func(i, j int) bool {
				return collected[i].Request.Index() < collected[j].Request.Index()
			})
			if r.isActive(b) {
				r.invokeSafe(b, "HandleBatch", func() { r.handler.HandleBatch(collected) })
			}
			r.record(b, collected)
			b.finish(collected, nil)
			r.logger.Info("batch completed", "batch_id", b.ID(), "requests", b.size)
			return
		}
	}
}

// isActive reports whether b is still the batch whose deliveries the
// consumer expects: the most recently submitted one, not cancelled.
func (r *Runner) isActive(b *Batch) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active == b && !b.isCancelled()
}

// invokeSafe calls a handler callback with panic recovery. Panics are
// logged with a correlation ID and do not abort the batch.
func (r *Runner) invokeSafe(b *Batch, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			correlationID := uuid.NewString()
			r.logger.Error("handler panicked",
				"callback", name,
				"batch_id", b.ID(),
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", rec),
			)
		}
	}()
	fn()
}

// record appends one history record per result after a batch completes.
func (r *Runner) record(b *Batch, results []Result) {
	for _, res := range results {
		rec := history.Record{
			BatchID:    b.ID(),
			Index:      res.Request.Index(),
			Method:     res.Request.Method(),
			URL:        res.Request.URL(),
			ElapsedMs:  res.Elapsed.Milliseconds(),
			ExecutedAt: res.FinishedAt,
		}
		if res.Err != nil {
			msg := res.Err.Error()
			rec.Error = &msg
		} else {
			rec.StatusCode = res.Response.StatusCode
		}
		r.store.Append(rec)
	}
}

// outcomeToResult converts a pool outcome into the public result type.
func outcomeToResult(o pool.Outcome) Result {
	res := Result{
		Request: Request{
			source:  o.Task.Raw,
			method:  o.Method,
			url:     o.URL,
			headers: o.RequestHeaders,
			body:    o.RequestBody,
			index:   o.Task.Index,
		},
		Err:        o.Err,
		Elapsed:    o.Elapsed,
		FinishedAt: o.FinishedAt,
	}
	if o.Err == nil {
		res.Response = &Response{
			StatusCode: o.StatusCode,
			Header:     http.Header(o.ResponseHeader),
			Body:       o.ResponseBody,
		}
	}
	return res
}

// unitExecutor is the execution unit: it resolves one descriptor against
// the batch's environment snapshot, parses it, and performs the network
// call. Every failure is converted into the outcome's Err field.
type unitExecutor struct {
	client  *httpexec.Client
	timeout time.Duration
	vars    env.Vars
}

func (e *unitExecutor) Execute(ctx context.Context, t pool.Task) pool.Outcome {
	started := time.Now()

	fail := func(err error) pool.Outcome {
		return pool.Outcome{
			Task:       t,
			Err:        err,
			Elapsed:    time.Since(started),
			FinishedAt: time.Now(),
		}
	}

	req, err := ValidateDescriptor(t.Raw, e.vars)
	if err != nil {
		return fail(err)
	}

	resp := e.client.Do(ctx, req.method, req.url, req.headers, req.body, e.timeout)

	out := pool.Outcome{
		Task:           t,
		Method:         req.method,
		URL:            req.url,
		RequestHeaders: req.headers,
		RequestBody:    req.body,
		Elapsed:        resp.Elapsed,
		FinishedAt:     time.Now(),
	}
	if resp.Err != nil {
		out.Err = resp.Err
		return out
	}
	out.StatusCode = resp.StatusCode
	out.ResponseHeader = resp.Header
	out.ResponseBody = resp.Body
	return out
}
