// Command example demonstrates reqflow SDK usage against a local mock API.
//
// Run with:
//
//	go run ./example
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/jharte/reqflow"
)

const script = `
###env
base: http://localhost:9990
###env

# three endpoints with different response times
GET {{.base}}/users
Accept: application/json

GET {{.base}}/orders

POST {{.base}}/events
Content-Type: application/json

{"type": "demo"}
`

func main() {
	go startMockAPI(":9990")
	time.Sleep(100 * time.Millisecond)

	runner, err := reqflow.New(
		reqflow.WithConcurrency(3),
		reqflow.WithPollInterval(50*time.Millisecond),
		reqflow.WithHandler(reqflow.HandlerFuncs{
			OnResult: func(res reqflow.Result) {
				if res.Err != nil {
					fmt.Printf("  ✗ [%d] %s  %v\n", res.Request.Index(), res.Request.URL(), res.Err)
					return
				}
				fmt.Printf("  ✓ [%d] %s  %d in %dms\n",
					res.Request.Index(), res.Request.URL(),
					res.Response.StatusCode, res.Elapsed.Milliseconds())
			},
			OnProgress: func(pending, total int) {
				fmt.Printf("  … %d of %d pending\n", pending, total)
			},
		}),
	)
	if err != nil {
		slog.Error("failed to create runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	fmt.Println("Executing batch (completion order):")
	results, err := runner.Run(context.Background(), script)
	if err != nil {
		slog.Error("batch failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("\nFinal delivery (source order):")
	for _, res := range results {
		status := "error"
		if res.Err == nil {
			status = fmt.Sprintf("%d", res.Response.StatusCode)
		}
		fmt.Printf("  [%d] %s %s  %s\n", res.Request.Index(), res.Request.Method(), res.Request.URL(), status)
	}

	fmt.Println("\nHistory (newest first):")
	for _, rec := range runner.History().Recent(0) {
		fmt.Printf("  %s %s  status=%d  %dms\n", rec.Method, rec.URL, rec.StatusCode, rec.ElapsedMs)
	}
}

// startMockAPI serves a few endpoints with randomised latency.
func startMockAPI(addr string) {
	mux := http.NewServeMux()
	handler := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(time.Duration(50+rand.Intn(250)) * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/users", handler(`{"users": ["ada", "grace"]}`))
	mux.HandleFunc("/orders", handler(`{"orders": []}`))
	mux.HandleFunc("/events", handler(`{"accepted": true}`))

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock API failed", "error", err)
	}
}
