package reqflow

import (
	"errors"
	"fmt"

	"github.com/jharte/reqflow/env"
	"github.com/jharte/reqflow/internal/parse"
)

// Script is the output of a [Parser]: the raw environment block and the
// request descriptor strings in source order.
type Script struct {
	// EnvBlock is the script's environment definition, still unevaluated.
	EnvBlock string

	// Descriptors are the request descriptor strings, with placeholders
	// unresolved, ordered as they appear in the text.
	Descriptors []string
}

// Parser splits request text into a [Script].
//
// Implementations must be pure: no side effects, deterministic for
// identical input. The default parser understands the format described in
// the package documentation; provide a custom Parser via [WithParser] to
// support a different grammar.
type Parser interface {
	Parse(text string) (Script, error)
}

// defaultParser wraps the internal script parser.
type defaultParser struct{}

func (defaultParser) Parse(text string) (Script, error) {
	script, err := parse.Split(text)
	if err != nil {
		var perr *parse.Error
		if errors.As(err, &perr) {
			return Script{}, &ParseError{Line: perr.Line, Msg: perr.Msg}
		}
		return Script{}, &ParseError{Msg: err.Error()}
	}
	return Script{
		EnvBlock:    script.EnvBlock,
		Descriptors: script.Descriptors,
	}, nil
}

// ParseScript splits request text using the default parser. It is exposed
// for tooling that needs to inspect a script without executing it, such as
// the CLI's check command.
func ParseScript(text string) (Script, error) {
	return defaultParser{}.Parse(text)
}

// ValidateDescriptor resolves one descriptor string against vars and parses
// it into a [Request] without executing it.
//
// This is exactly the preparation an execution unit performs before its
// network call, so a descriptor that validates here will not fail at
// resolution time during a batch. Returns a [*ResolveError] for an
// undefined placeholder reference.
func ValidateDescriptor(desc string, vars env.Vars) (Request, error) {
	resolved, err := env.Resolve(desc, vars)
	if err != nil {
		return Request{}, &ResolveError{Err: err}
	}

	req, err := parse.Descriptor(resolved)
	if err != nil {
		return Request{}, fmt.Errorf("malformed request descriptor: %w", err)
	}

	return Request{
		source:  desc,
		method:  req.Method,
		url:     req.URL,
		headers: req.Headers,
		body:    req.Body,
	}, nil
}
