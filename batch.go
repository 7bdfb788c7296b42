package reqflow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jharte/reqflow/internal/pool"
)

// Batch is the handle for one submitted script: a generation of requests
// executed and delivered together.
//
// A batch moves through submission, polling, and completion (or
// cancellation). [Batch.Done] closes when the batch finishes either way;
// [Batch.Results] and [Batch.Err] are valid afterwards.
type Batch struct {
	id   uuid.UUID
	size int
	pool *pool.Pool

	cancelOnce sync.Once
	cancelCh   chan struct{}

	finishOnce sync.Once
	doneCh     chan struct{}

	mu      sync.Mutex
	results []Result
	err     error
}

// ID returns the batch's generation identifier.
func (b *Batch) ID() string {
	return b.id.String()
}

// Size returns the number of requests parsed into this batch.
func (b *Batch) Size() int {
	return b.size
}

// Done returns a channel that closes when the batch has completed or been
// cancelled.
func (b *Batch) Done() <-chan struct{} {
	return b.doneCh
}

// Results returns the batch's results sorted by source order. The returned
// slice is a copy; it is empty until [Batch.Done] closes, and stays empty
// for a cancelled batch.
func (b *Batch) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]Result, len(b.results))
	copy(cp, b.results)
	return cp
}

// Err reports how the batch ended: nil on normal completion, [ErrCancelled]
// if it was cancelled or superseded, or the context error if the submission
// context expired. Err is meaningful once [Batch.Done] has closed.
func (b *Batch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Cancel stops the batch: queued requests never start, in-flight calls are
// aborted, and no further handler deliveries happen for this batch. Results
// that were already delivered remain valid. Safe to call multiple times.
func (b *Batch) Cancel() {
	b.cancelOnce.Do(func() {
		b.pool.Cancel()
		close(b.cancelCh)
	})
}

// Wait blocks until the batch completes, returning its results in source
// order. Returns [ErrCancelled] if the batch was cancelled, or ctx's error
// if ctx expires first.
func (b *Batch) Wait(ctx context.Context) ([]Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.doneCh:
		return b.Results(), b.Err()
	}
}

// isCancelled reports whether Cancel has been called.
func (b *Batch) isCancelled() bool {
	select {
	case <-b.cancelCh:
		return true
	default:
		return false
	}
}

// finish records the batch's terminal state exactly once.
func (b *Batch) finish(results []Result, err error) {
	b.finishOnce.Do(func() {
		b.mu.Lock()
		b.results = results
		b.err = err
		b.mu.Unlock()
		close(b.doneCh)
	})
}
