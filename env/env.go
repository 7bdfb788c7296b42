// Package env evaluates environment definitions for request scripts.
//
// An environment is a flat mapping from variable names to string values,
// built from a YAML mapping embedded in a script (a "###env" block) and/or
// a YAML file on disk. Scripts reference variables with Go template syntax
// ({{.name}}), resolved via [Resolve].
//
// Example environment:
//
//	host: https://api.example.com
//	token: hunter2
//	page_size: 50
//	verbose: true
//
// Scalar values (strings, numbers, booleans) are converted to strings;
// nested mappings and sequences are rejected, since only scalars can be
// substituted into request text.
package env

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Vars is an immutable-by-convention mapping of environment variable names
// to string values. Callers should treat a Vars as read-only once built;
// the runner snapshots it at batch submission time.
type Vars map[string]string

// Parse evaluates a YAML mapping into a [Vars].
//
// An empty or whitespace-only block yields an empty Vars. Scalar values are
// stringified: booleans become "true"/"false", numbers keep their literal
// representation. Returns an error if the block is not valid YAML, is not a
// mapping, or contains a non-scalar value.
func Parse(block string) (Vars, error) {
	if strings.TrimSpace(block) == "" {
		return Vars{}, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("invalid environment YAML: %w", err)
	}

	vars := make(Vars, len(raw))
	for key, value := range raw {
		s, err := stringify(value)
		if err != nil {
			return nil, fmt.Errorf("environment variable %q: %w", key, err)
		}
		vars[key] = s
	}
	return vars, nil
}

// LoadFile reads and evaluates a YAML environment file.
//
// The file has the same format as a "###env" block. Returns an error if the
// file cannot be read or evaluated.
func LoadFile(path string) (Vars, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read environment file: %w", err)
	}

	vars, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("environment file %s: %w", path, err)
	}
	return vars, nil
}

// Merge combines two environments, with values in override taking precedence
// over values in base. Neither input is modified.
func Merge(base, override Vars) Vars {
	merged := make(Vars, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Names returns the variable names in sorted order.
func (v Vars) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve substitutes {{.name}} placeholders in s with values from vars.
//
// Substitution uses text/template with missingkey=error, so a reference to
// an undefined variable returns an error rather than an empty expansion.
// Text without placeholders is returned unchanged without template parsing.
func Resolve(s string, vars Vars) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	// use missingkey=error to fail fast on undefined references
	tmpl, err := template.New("request").Option("missingkey=error").Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid placeholder syntax: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string(vars)); err != nil {
		return "", fmt.Errorf("resolve against environment: %w", err)
	}
	return buf.String(), nil
}

// stringify converts a scalar YAML value to its string form.
func stringify(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("value must be a scalar, got %T", value)
	}
}
