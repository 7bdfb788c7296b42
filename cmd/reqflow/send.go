package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jharte/reqflow"
	"github.com/jharte/reqflow/env"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// sendCmd executes a request script.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Execute a request script",
	Long: `Execute all requests in a script concurrently.

Results are streamed to stdout as each request completes, followed by a
summary in source order once the whole batch has finished. The exit code
is non-zero if any request failed.

Example:
  reqflow send -f requests.http
  reqflow send -f requests.http -e staging.yaml -n 5 -t 10s
  reqflow send -f requests.http --json`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("file", "f", "", "path to request script (required)")
	sendCmd.Flags().StringP("env-file", "e", "", "path to YAML environment file")
	sendCmd.Flags().IntP("concurrency", "n", 10, "maximum concurrent requests")
	sendCmd.Flags().DurationP("timeout", "t", 30*time.Second, "per-request timeout")
	sendCmd.Flags().Bool("json", false, "print results as JSON instead of text")
	sendCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")
	_ = sendCmd.MarkFlagRequired("file")
}

func runSend(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	file, _ := cmd.Flags().GetString("file")
	envFile, _ := cmd.Flags().GetString("env-file")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	asJSON, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	script, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	opts := []reqflow.Option{
		reqflow.WithConcurrency(concurrency),
		reqflow.WithRequestTimeout(timeout),
		reqflow.WithLogger(newLogger(verbose)),
	}

	if envFile != "" {
		vars, err := env.LoadFile(envFile)
		if err != nil {
			return err
		}
		opts = append(opts, reqflow.WithEnv(vars))
	}

	if !asJSON {
		// stream results to the terminal as they complete
		opts = append(opts, reqflow.WithHandler(reqflow.HandlerFuncs{
			OnResult: func(res reqflow.Result) {
				fmt.Println(formatResult(res))
			},
		}))
	}

	runner, err := reqflow.New(opts...)
	if err != nil {
		return err
	}
	defer runner.Close()

	// cancel the batch on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := runner.Run(ctx, string(script))
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(results)
	}
	return printSummary(results)
}

// formatResult renders one result as a single line.
func formatResult(res reqflow.Result) string {
	if res.Err != nil {
		return fmt.Sprintf("[%d] %s %s  ERROR: %v",
			res.Request.Index(), res.Request.Method(), res.Request.URL(), res.Err)
	}
	return fmt.Sprintf("[%d] %s %s  %d  %dms  %dB",
		res.Request.Index(), res.Request.Method(), res.Request.URL(),
		res.Response.StatusCode, res.Elapsed.Milliseconds(), len(res.Response.Body))
}

// printSummary prints the source-ordered summary and returns an error if
// any request failed.
func printSummary(results []reqflow.Result) error {
	failed := 0
	fmt.Println()
	fmt.Printf("Batch complete: %d request(s)\n", len(results))
	for _, res := range results {
		fmt.Println("  " + formatResult(res))
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(results))
	}
	return nil
}

// jsonResult is the JSON output shape for one result.
type jsonResult struct {
	Index     int               `json:"index"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Status    int               `json:"status,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	Error     string            `json:"error,omitempty"`
	ElapsedMs int64             `json:"elapsed_ms"`
}

func printJSON(results []reqflow.Result) error {
	out := make([]jsonResult, 0, len(results))
	failed := 0
	for _, res := range results {
		jr := jsonResult{
			Index:     res.Request.Index(),
			Method:    res.Request.Method(),
			URL:       res.Request.URL(),
			ElapsedMs: res.Elapsed.Milliseconds(),
		}
		if res.Err != nil {
			jr.Error = res.Err.Error()
			failed++
		} else {
			jr.Status = res.Response.StatusCode
			jr.Body = string(res.Response.Body)
			jr.Headers = make(map[string]string, len(res.Response.Header))
			for name := range res.Response.Header {
				jr.Headers[name] = res.Response.Header.Get(name)
			}
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(results))
	}
	return nil
}
