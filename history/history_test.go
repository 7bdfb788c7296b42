package history

import (
	"fmt"
	"testing"
	"time"
)

func record(batch string, index int) Record {
	return Record{
		BatchID:    batch,
		Index:      index,
		Method:     "GET",
		URL:        fmt.Sprintf("https://example.com/%d", index),
		StatusCode: 200,
		ExecutedAt: time.Now(),
	}
}

func TestMemoryStore_RecentNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < 5; i++ {
		store.Append(record("b1", i))
	}

	got := store.Recent(3)
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d records", len(got))
	}
	for i, want := range []int{4, 3, 2} {
		if got[i].Index != want {
			t.Errorf("Recent(3)[%d].Index = %d, want %d", i, got[i].Index, want)
		}
	}
}

func TestMemoryStore_RecentAll(t *testing.T) {
	store := NewMemoryStore()
	store.Append(record("b1", 0))
	store.Append(record("b1", 1))

	if got := store.Recent(0); len(got) != 2 {
		t.Errorf("Recent(0) returned %d records, want all 2", len(got))
	}
	if got := store.Recent(10); len(got) != 2 {
		t.Errorf("Recent(10) returned %d records, want 2", len(got))
	}
}

func TestMemoryStore_RetentionCap(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < defaultMaxRecords+50; i++ {
		store.Append(record("b1", i))
	}

	got := store.Recent(0)
	if len(got) != defaultMaxRecords {
		t.Fatalf("retained %d records, want %d", len(got), defaultMaxRecords)
	}
	if got[0].Index != defaultMaxRecords+49 {
		t.Errorf("newest record index = %d, want %d", got[0].Index, defaultMaxRecords+49)
	}
	// oldest 50 must have been evicted
	if got[len(got)-1].Index != 50 {
		t.Errorf("oldest retained index = %d, want 50", got[len(got)-1].Index)
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()
	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	store.Append(record("b1", 7))

	select {
	case rec := <-ch:
		if rec.Index != 7 {
			t.Errorf("received record index %d, want 7", rec.Index)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for subscription delivery")
	}
}

func TestMemoryStore_UnsubscribeClosesChannel(t *testing.T) {
	store := NewMemoryStore()
	ch := store.Subscribe()
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Unsubscribe")
	}

	// double unsubscribe must be a safe no-op
	store.Unsubscribe(ch)

	// appends after unsubscribe must not panic
	store.Append(record("b1", 0))
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()
	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	// never read from ch; appends beyond the buffer must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			store.Append(record("b1", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on a slow subscriber")
	}
}
