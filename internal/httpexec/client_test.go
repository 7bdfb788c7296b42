package httpexec

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Probe", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	client := NewClient()
	defer client.Close()

	resp := client.Do(context.Background(), http.MethodGet, server.URL, nil, "", time.Second)

	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != `{"status": "ok"}` {
		t.Errorf("body = %q", resp.Body)
	}
	if resp.Header.Get("X-Probe") != "yes" {
		t.Errorf("missing response header, got %v", resp.Header)
	}
	if resp.Elapsed <= 0 {
		t.Error("elapsed time not recorded")
	}
}

func TestDo_SendsMethodHeadersAndBody(t *testing.T) {
	var (
		gotMethod string
		gotHeader string
		gotBody   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient()
	defer client.Close()

	headers := map[string]string{"Authorization": "Bearer hunter2"}
	resp := client.Do(context.Background(), http.MethodPost, server.URL, headers, `{"name":"ada"}`, time.Second)

	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("server saw method %q, want POST", gotMethod)
	}
	if gotHeader != "Bearer hunter2" {
		t.Errorf("server saw Authorization %q", gotHeader)
	}
	if string(gotBody) != `{"name":"ada"}` {
		t.Errorf("server saw body %q", gotBody)
	}
}

func TestDo_ConnectionError(t *testing.T) {
	// a server that is immediately closed gives a connection-refused target
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient()
	defer client.Close()

	resp := client.Do(context.Background(), http.MethodGet, url, nil, "", time.Second)

	if resp.Err == nil {
		t.Fatal("expected connection error")
	}
	if resp.StatusCode != 0 {
		t.Errorf("status = %d, want 0 for failed request", resp.StatusCode)
	}
}

func TestDo_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewClient()
	defer client.Close()

	start := time.Now()
	resp := client.Do(context.Background(), http.MethodGet, server.URL, nil, "", 50*time.Millisecond)

	if resp.Err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v, should be close to 50ms", elapsed)
	}
}

func TestDo_InvalidURL(t *testing.T) {
	client := NewClient()
	defer client.Close()

	resp := client.Do(context.Background(), http.MethodGet, "http://\x7f", nil, "", time.Second)
	if resp.Err == nil {
		t.Fatal("expected error for malformed URL")
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewClient()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	resp := client.Do(ctx, http.MethodGet, server.URL, nil, "", 0)
	if resp.Err == nil {
		t.Fatal("expected error after context cancellation")
	}
}
