package reqflow

import (
	"errors"
	"fmt"
)

// ErrCancelled is reported by a [Batch] that was cancelled, either directly
// via [Batch.Cancel] or because a newer batch superseded it.
var ErrCancelled = errors.New("batch cancelled")

// ParseError reports malformed request script structure. The batch is never
// submitted; no requests execute.
type ParseError struct {
	// Line is the 1-based line number the problem was detected at, or 0
	// when the error is not tied to a specific line.
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse script: line %d: %s", e.Line, e.Msg)
	}
	return "parse script: " + e.Msg
}

// EnvError reports that the script's environment failed to evaluate. The
// batch is never submitted; no requests execute.
type EnvError struct {
	Err error
}

func (e *EnvError) Error() string {
	return "evaluate environment: " + e.Err.Error()
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

// ResolveError reports that one descriptor's placeholders failed to resolve
// against the environment. It is scoped to that request: it appears in the
// request's [Result] while sibling requests in the batch proceed normally.
type ResolveError struct {
	Err error
}

func (e *ResolveError) Error() string {
	return e.Err.Error()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
