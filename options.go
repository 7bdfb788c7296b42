package reqflow

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jharte/reqflow/env"
	"github.com/jharte/reqflow/history"
)

// runnerConfig holds mutable state during Runner construction.
type runnerConfig struct {
	concurrency    int
	pollInterval   time.Duration
	requestTimeout time.Duration
	handler        Handler
	logger         *slog.Logger
	parser         Parser
	baseVars       env.Vars
	store          history.Store
}

// Option is a function that configures a [Runner] during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails.
type Option func(*runnerConfig) error

// WithConcurrency sets the maximum number of requests executed
// simultaneously within one batch. Defaults to 10.
//
// Returns an error if the value is zero or negative.
func WithConcurrency(n int) Option {
	return func(cfg *runnerConfig) error {
		if n <= 0 {
			return errors.New("concurrency must be positive")
		}
		cfg.concurrency = n
		return nil
	}
}

// WithPollInterval sets the tick at which the runner harvests completed
// requests and reports progress. Defaults to 200ms.
//
// Each tick is a cheap, non-blocking check; shorter intervals deliver
// results sooner at the cost of more wakeups.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *runnerConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout. Defaults to 30 seconds.
// A timed-out request becomes an error result; siblings are unaffected.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *runnerConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithHandler sets the [Handler] that receives result deliveries. Defaults
// to [NopHandler], which makes [Runner.Run]'s return value the only output.
//
// Returns an error if the handler is nil.
func WithHandler(h Handler) Option {
	return func(cfg *runnerConfig) error {
		if h == nil {
			return errors.New("handler cannot be nil")
		}
		cfg.handler = h
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *runnerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithParser replaces the default script parser.
//
// Returns an error if the parser is nil.
func WithParser(p Parser) Option {
	return func(cfg *runnerConfig) error {
		if p == nil {
			return errors.New("parser cannot be nil")
		}
		cfg.parser = p
		return nil
	}
}

// WithEnv supplies base environment variables, typically loaded from an
// environment file with [env.LoadFile]. Base variables take precedence over
// variables defined in a script's "###env" block, mirroring the convention
// that an external environment file overrides inline definitions.
//
// Can be called multiple times; later calls override earlier values on
// conflict.
func WithEnv(vars env.Vars) Option {
	return func(cfg *runnerConfig) error {
		cfg.baseVars = env.Merge(cfg.baseVars, vars)
		return nil
	}
}

// WithHistory sets the store that records executed requests. Defaults to an
// in-memory store retaining the most recent 1000 records.
//
// Returns an error if the store is nil.
func WithHistory(store history.Store) Option {
	return func(cfg *runnerConfig) error {
		if store == nil {
			return errors.New("history store cannot be nil")
		}
		cfg.store = store
		return nil
	}
}
