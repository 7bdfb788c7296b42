package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExecutor simulates task execution with per-index delays and failures,
// and records the maximum number of tasks observed in flight at once.
type fakeExecutor struct {
	delays map[int]time.Duration
	fail   map[int]error

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeExecutor) Execute(ctx context.Context, t Task) Outcome {
	cur := f.inflight.Add(1)
	for {
		max := f.maxInflight.Load()
		if cur <= max || f.maxInflight.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.inflight.Add(-1)

	delay := f.delays[t.Index]
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Outcome{Task: t, Err: ctx.Err(), FinishedAt: time.Now()}
		}
	}

	if err := f.fail[t.Index]; err != nil {
		return Outcome{Task: t, Err: err, FinishedAt: time.Now()}
	}
	return Outcome{Task: t, StatusCode: 200, FinishedAt: time.Now()}
}

// makeTasks builds n tasks with sequential indices.
func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Index: i, Raw: fmt.Sprintf("GET https://example.com/%d", i)}
	}
	return tasks
}

// harvest polls until count outcomes have been collected or the deadline
// passes.
func harvest(t *testing.T, p *Pool, count int, deadline time.Duration) []Outcome {
	t.Helper()
	var collected []Outcome
	timeout := time.After(deadline)
	for len(collected) < count {
		select {
		case <-timeout:
			t.Fatalf("harvested %d of %d outcomes before deadline", len(collected), count)
		case <-time.After(5 * time.Millisecond):
			collected = append(collected, p.Poll()...)
		}
	}
	return collected
}

func TestPool_AllTasksComplete(t *testing.T) {
	exec := &fakeExecutor{}
	p := New(exec, testLogger())

	p.Submit(context.Background(), makeTasks(10), 3)

	outcomes := harvest(t, p, 10, 2*time.Second)
	if len(outcomes) != 10 {
		t.Fatalf("got %d outcomes, want 10", len(outcomes))
	}

	// every task yields exactly one outcome
	seen := make(map[int]bool)
	for _, o := range outcomes {
		if seen[o.Task.Index] {
			t.Errorf("duplicate outcome for task %d", o.Task.Index)
		}
		seen[o.Task.Index] = true
	}

	if !p.Idle() {
		t.Error("pool should be idle after full harvest")
	}
}

func TestPool_ConcurrencyLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			exec := &fakeExecutor{delays: map[int]time.Duration{}}
			tasks := makeTasks(12)
			for i := range tasks {
				exec.delays[i] = 20 * time.Millisecond
			}

			p := New(exec, testLogger())
			p.Submit(context.Background(), tasks, limit)
			harvest(t, p, len(tasks), 5*time.Second)

			if max := int(exec.maxInflight.Load()); max > limit {
				t.Errorf("max in-flight = %d, exceeds limit %d", max, limit)
			}
		})
	}
}

func TestPool_PollNeverBlocks(t *testing.T) {
	exec := &fakeExecutor{delays: map[int]time.Duration{0: 200 * time.Millisecond}}
	p := New(exec, testLogger())
	p.Submit(context.Background(), makeTasks(1), 1)

	done := make(chan []Outcome, 1)
	go func() { done <- p.Poll() }()

	select {
	case out := <-done:
		if len(out) != 0 {
			t.Errorf("expected no outcomes yet, got %d", len(out))
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("Poll() blocked")
	}

	p.Cancel()
	p.Wait()
}

func TestPool_ErrorDoesNotAbortSiblings(t *testing.T) {
	boom := errors.New("connection refused")
	exec := &fakeExecutor{fail: map[int]error{1: boom}}
	p := New(exec, testLogger())

	p.Submit(context.Background(), makeTasks(3), 2)
	outcomes := harvest(t, p, 3, 2*time.Second)

	var failed, succeeded int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			if o.Task.Index != 1 {
				t.Errorf("unexpected failure for task %d: %v", o.Task.Index, o.Err)
			}
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 2 {
		t.Errorf("failed=%d succeeded=%d, want 1 and 2", failed, succeeded)
	}
}

func TestPool_Cancel(t *testing.T) {
	exec := &fakeExecutor{delays: map[int]time.Duration{}}
	tasks := makeTasks(20)
	for i := range tasks {
		exec.delays[i] = 100 * time.Millisecond
	}

	p := New(exec, testLogger())
	p.Submit(context.Background(), tasks, 2)

	// let a couple of tasks get in flight, then cancel
	time.Sleep(20 * time.Millisecond)
	p.Cancel()
	p.Wait()

	if out := p.Poll(); len(out) != 0 {
		t.Errorf("Poll() after Cancel() returned %d outcomes, want 0", len(out))
	}
	if !p.Idle() {
		t.Error("pool should be idle after cancellation drains")
	}
}

func TestPool_CancelIdempotent(t *testing.T) {
	p := New(&fakeExecutor{}, testLogger())
	p.Submit(context.Background(), makeTasks(2), 1)

	// both calls must complete without panic or deadlock
	p.Cancel()
	p.Cancel()
	p.Wait()
}

func TestPool_CancelBeforeSubmit(t *testing.T) {
	p := New(&fakeExecutor{}, testLogger())

	// this must not panic
	p.Cancel()
}

func TestPool_EmptySubmit(t *testing.T) {
	p := New(&fakeExecutor{}, testLogger())
	p.Submit(context.Background(), nil, 5)

	if !p.Idle() {
		t.Error("pool with no tasks should be idle immediately")
	}
	if out := p.Poll(); len(out) != 0 {
		t.Errorf("Poll() = %d outcomes, want 0", len(out))
	}
}

func TestPool_ResubmitDiscardsStaleSession(t *testing.T) {
	exec := &fakeExecutor{delays: map[int]time.Duration{}}
	slow := makeTasks(4)
	for i := range slow {
		exec.delays[i] = 150 * time.Millisecond
	}

	p := New(exec, testLogger())
	p.Submit(context.Background(), slow, 2)
	time.Sleep(20 * time.Millisecond)

	// replace the session while the first batch is still in flight
	fast := []Task{{Index: 0, Raw: "GET https://example.com/fresh"}}
	p.Submit(context.Background(), fast, 1)

	outcomes := harvest(t, p, 1, 2*time.Second)
	if outcomes[0].Task.Raw != "GET https://example.com/fresh" {
		t.Errorf("harvested stale outcome %q", outcomes[0].Task.Raw)
	}

	// late outcomes from the replaced session must never surface
	p.Wait()
	if out := p.Poll(); len(out) != 0 {
		t.Errorf("stale session leaked %d outcomes", len(out))
	}
}

func TestPool_PanickingExecutor(t *testing.T) {
	exec := &panicExecutor{}
	p := New(exec, testLogger())

	p.Submit(context.Background(), makeTasks(2), 2)
	outcomes := harvest(t, p, 2, 2*time.Second)

	for _, o := range outcomes {
		if o.Err == nil {
			t.Errorf("task %d: expected panic converted to error", o.Task.Index)
		}
	}
}

type panicExecutor struct{}

func (panicExecutor) Execute(ctx context.Context, t Task) Outcome {
	panic("executor exploded")
}

func TestPool_ConcurrentPollAndCancel(t *testing.T) {
	// run multiple iterations to increase chance of catching races
	for i := 0; i < 50; i++ {
		exec := &fakeExecutor{delays: map[int]time.Duration{0: time.Millisecond}}
		p := New(exec, testLogger())
		p.Submit(context.Background(), makeTasks(5), 2)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				p.Poll()
			}
		}()
		go func() {
			defer wg.Done()
			p.Cancel()
		}()
		wg.Wait()
		p.Wait()
	}
}
