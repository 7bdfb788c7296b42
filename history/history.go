// Package history records executed requests.
//
// The runner appends one [Record] per execution result after a batch
// completes, keyed by batch ID and source index. Consumers can read recent
// records or subscribe for live updates; subscriptions use non-blocking
// buffered channels, so slow consumers miss records rather than stall the
// runner.
package history

import (
	"sync"
	"time"
)

// Record is one executed request, as persisted after its batch completed.
type Record struct {
	// BatchID identifies the batch this request belonged to.
	BatchID string `json:"batch_id"`

	// Index is the request's source order within its batch.
	Index int `json:"index"`

	// Method and URL describe the request. Empty when the request never
	// resolved to a valid descriptor.
	Method string `json:"method"`
	URL    string `json:"url"`

	// StatusCode is the HTTP status code, zero if the request failed.
	StatusCode int `json:"status_code"`

	// ElapsedMs is the request latency in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`

	// ExecutedAt is when the request finished.
	ExecutedAt time.Time `json:"executed_at"`

	// Error contains the failure message if the request failed.
	Error *string `json:"error"`
}

// Store is an append-only log of executed requests with pub/sub.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds a record and notifies all subscribers.
	Append(rec Record)

	// Recent returns up to n records, newest first. n <= 0 returns all.
	Recent(n int) []Record

	// Subscribe returns a channel that receives appended records.
	// The channel is buffered; slow consumers may miss records.
	// Callers must Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Record

	// Unsubscribe removes a subscription and closes its channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Record)
}

// default retention and fan-out sizing for the in-memory store
const (
	defaultMaxRecords = 1000
	subscriberBuffer  = 100
)

// MemoryStore is an in-memory implementation of [Store].
//
// It retains the most recent 1000 records, dropping the oldest once the cap
// is reached. Subscribers receive appends via buffered channels with
// non-blocking sends.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record

	subMu       sync.RWMutex
	subscribers map[chan Record]struct{}
}

// NewMemoryStore creates an empty in-memory [Store].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Record]struct{}),
	}
}

// Append adds a [Record], evicting the oldest record when the retention cap
// is exceeded, and notifies all subscribers.
func (m *MemoryStore) Append(rec Record) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	if len(m.records) > defaultMaxRecords {
		m.records = m.records[len(m.records)-defaultMaxRecords:]
	}
	m.mu.Unlock()

	m.notifySubscribers(rec)
}

// Recent returns up to n records, newest first. n <= 0 returns all retained
// records. The returned slice is a copy.
func (m *MemoryStore) Recent(n int) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.records)
	if n <= 0 || n > total {
		n = total
	}

	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = m.records[total-1-i]
	}
	return out
}

// Subscribe creates a new subscription and returns its channel.
//
// The channel has a buffer of 100 records. If the buffer fills, new records
// are dropped for this subscriber.
func (m *MemoryStore) Subscribe() <-chan Record {
	ch := make(chan Record, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Record) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the record to all active subscribers without
// blocking the append path.
func (m *MemoryStore) notifySubscribers(rec Record) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- rec:
		default:
			// subscriber is slow, drop the record
		}
	}
}
