// Package pool implements a bounded worker pool with polling semantics.
//
// A pool runs one batch of tasks at a time, keeping at most the configured
// limit in flight. Completion is observed by polling rather than blocking:
// [Pool.Poll] drains whatever finished since the last call and never waits
// for network I/O, so the caller can drive it from a cheap periodic tick.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is one unit of work: a raw request descriptor plus its position among
// the requests parsed from the same text.
type Task struct {
	// Index is the task's source order within its batch.
	Index int

	// Raw is the descriptor string, with placeholders still unresolved.
	// The executor resolves and parses it before performing the call.
	Raw string
}

// Outcome is the result of executing one task. Exactly one of the response
// fields or Err is meaningful.
type Outcome struct {
	// Task is the task this outcome belongs to.
	Task Task

	// Method, URL, RequestHeaders and RequestBody describe the resolved
	// request, when resolution succeeded.
	Method         string
	URL            string
	RequestHeaders map[string]string
	RequestBody    string

	// StatusCode, ResponseHeader and ResponseBody capture the HTTP response
	// on success.
	StatusCode     int
	ResponseHeader map[string][]string
	ResponseBody   []byte

	// Err is non-nil when the task failed at any stage: argument resolution,
	// descriptor parsing, or the network call itself.
	Err error

	// Elapsed is the wall-clock time the task took.
	Elapsed time.Duration

	// FinishedAt is when the task completed.
	FinishedAt time.Time
}

// Executor performs one task. Implementations must return failures in the
// outcome's Err field rather than panicking; the pool additionally recovers
// panics as a safety net.
type Executor interface {
	Execute(ctx context.Context, t Task) Outcome
}

// Pool runs one batch of tasks with bounded concurrency.
//
// The zero value is not usable; create pools with [New]. A pool holds one
// session at a time: Submit installs a batch, Poll harvests completed
// outcomes, Idle reports whether the session has fully drained, and Cancel
// abandons it. Submitting again starts a fresh session.
//
// All methods are safe for concurrent use.
type Pool struct {
	exec   Executor
	logger *slog.Logger

	mu        sync.Mutex
	session   int
	queue     []Task
	running   int
	completed []Outcome
	cancelled bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a [Pool] that executes tasks with exec.
//
// The logger is used for panic recovery reporting; pass a logger built on
// io.Discard to silence it.
func New(exec Executor, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{exec: exec, logger: logger}
}

// Submit schedules all tasks for execution and returns immediately.
//
// At most limit tasks run concurrently; as each in-flight task completes,
// the next queued task starts, keeping min(limit, remaining) in flight.
// Limits below 1 are treated as 1. The provided context bounds the whole
// session: cancelling it stops queued tasks from starting and aborts
// in-flight network calls.
//
// Submit replaces any previous session; outcomes from a replaced session are
// discarded.
func (p *Pool) Submit(ctx context.Context, tasks []Task, limit int) {
	if limit < 1 {
		limit = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	sctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.session++
	session := p.session
	p.queue = append([]Task(nil), tasks...)
	p.completed = nil
	p.cancelled = false

	workers := limit
	if len(tasks) < workers {
		workers = len(tasks)
	}
	p.wg.Add(workers)
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		go p.worker(sctx, session)
	}
}

// worker pulls tasks off the queue until it is empty, the session is
// cancelled, or a newer session has replaced it.
func (p *Pool) worker(ctx context.Context, session int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		if p.session != session || p.cancelled || len(p.queue) == 0 || ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.running++
		p.mu.Unlock()

		outcome := p.executeSafe(ctx, task)

		p.mu.Lock()
		p.running--
		// stale sessions must not leak outcomes into their successor
		if p.session == session && !p.cancelled {
			p.completed = append(p.completed, outcome)
		}
		p.mu.Unlock()
	}
}

// executeSafe runs one task with panic recovery. A panicking executor yields
// an error outcome with a correlation ID; the stack is logged server-side.
func (p *Pool) executeSafe(ctx context.Context, t Task) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			p.logger.Error("task executor panic",
				"correlation_id", correlationID,
				"task_index", t.Index,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			out = Outcome{
				Task:       t,
				Err:        fmt.Errorf("executor panic (correlation_id: %s)", correlationID),
				Elapsed:    time.Since(start),
				FinishedAt: time.Now(),
			}
		}
	}()
	return p.exec.Execute(ctx, t)
}

// Poll returns all outcomes completed since the last call, removing them
// from the pool. It never blocks; an empty slice means nothing finished yet.
func (p *Pool) Poll() []Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.completed
	p.completed = nil
	return out
}

// Idle reports whether the current session has fully drained: no queued
// tasks, nothing in flight, and no unharvested outcomes.
func (p *Pool) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running == 0 && len(p.queue) == 0 && len(p.completed) == 0
}

// Pending returns the number of tasks not yet completed: queued plus in
// flight.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) + p.running
}

// Cancel abandons the current session: queued tasks are dropped, in-flight
// network calls are aborted via context cancellation, and outcomes that
// arrive after cancellation are discarded. Safe to call multiple times.
func (p *Pool) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.queue = nil
	p.completed = nil
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
}

// Wait blocks until all workers of the current session have exited. It is
// intended for tests and shutdown paths, not for the polling loop.
func (p *Pool) Wait() {
	p.wg.Wait()
}
