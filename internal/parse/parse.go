// Package parse implements the default request-script parser.
//
// A script is plain text containing zero or more request descriptors and an
// optional environment block. Parsing happens in two stages: [Split] cuts the
// text into an environment block and an ordered list of descriptor strings,
// and [Descriptor] turns one (already variable-resolved) descriptor string
// into a structured request.
//
// The two stages are separate because variable resolution happens between
// them: descriptor strings still contain {{.name}} placeholders, which are
// resolved per request at execution time so that one bad reference cannot
// abort its siblings.
package parse

import (
	"fmt"
	"net/url"
	"strings"
)

// EnvDelimiter marks the start and end of an environment block.
const EnvDelimiter = "###env"

// Error describes a problem with the structure of a script. Line is the
// 1-based line number the problem was detected at, or 0 when the error is
// not tied to a specific line.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Script is the result of splitting request text: the raw contents of any
// environment blocks, and descriptor strings in source order.
type Script struct {
	EnvBlock    string
	Descriptors []string
}

// Request is the structured form of a single descriptor string.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// methods lists the tokens that begin a request descriptor.
var methods = map[string]bool{
	"GET":     true,
	"HEAD":    true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"OPTIONS": true,
	"TRACE":   true,
}

// Split cuts script text into an environment block and ordered descriptor
// strings.
//
// A descriptor starts at a method line ("GET https://...") and extends to
// the next method line, a "###" separator, an environment delimiter, or the
// end of the text, with trailing blank lines trimmed. Environment blocks are
// delimited by a pair of [EnvDelimiter] lines; multiple blocks are
// concatenated. Text outside requests and environment blocks (comments,
// prose) is ignored.
//
// Returns an error if an environment block is left unclosed.
func Split(text string) (Script, error) {
	var (
		envLines []string
		envStart int
		inEnv    bool
		blocks   []string
		current  []string
	)

	flush := func() {
		if current == nil {
			return
		}
		blocks = append(blocks, strings.Join(trimTrailingBlank(current), "\n"))
		current = nil
	}

	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)

		if trimmed == EnvDelimiter {
			if inEnv {
				inEnv = false
			} else {
				flush()
				inEnv = true
				envStart = i + 1
			}
			continue
		}

		if inEnv {
			envLines = append(envLines, raw)
			continue
		}

		if isRequestLine(trimmed) {
			flush()
			current = []string{trimmed}
			continue
		}

		if current != nil {
			if strings.HasPrefix(trimmed, "###") {
				flush()
				continue
			}
			current = append(current, raw)
		}
		// anything outside a request or environment block is ignored
	}

	if inEnv {
		return Script{}, &Error{Line: envStart, Msg: "unclosed environment block"}
	}
	flush()

	return Script{
		EnvBlock:    strings.Join(envLines, "\n"),
		Descriptors: blocks,
	}, nil
}

// Descriptor parses one descriptor string into a [Request].
//
// The first line must be "METHOD URL" with an absolute http or https URL.
// Subsequent "Name: value" lines up to the first blank line are headers;
// everything after the blank line is the body.
func Descriptor(s string) (Request, error) {
	lines := strings.Split(s, "\n")

	fields := strings.Fields(strings.TrimSpace(lines[0]))
	if len(fields) != 2 {
		return Request{}, &Error{Msg: fmt.Sprintf("request line must be \"METHOD URL\", got %q", strings.TrimSpace(lines[0]))}
	}

	method := strings.ToUpper(fields[0])
	if !methods[method] {
		return Request{}, &Error{Msg: fmt.Sprintf("unknown HTTP method %q", fields[0])}
	}

	rawURL := fields[1]
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Request{}, &Error{Msg: fmt.Sprintf("invalid URL %q: %v", rawURL, err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Request{}, &Error{Msg: fmt.Sprintf("URL %q must use http or https", rawURL)}
	}

	headers := make(map[string]string)
	i := 1
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			break
		}
		name, value, ok := strings.Cut(lines[i], ":")
		if !ok {
			return Request{}, &Error{Msg: fmt.Sprintf("malformed header line %q", lines[i])}
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	body := ""
	if i < len(lines) {
		body = strings.TrimRight(strings.Join(lines[i:], "\n"), " \t\n")
	}

	return Request{
		Method:  method,
		URL:     rawURL,
		Headers: headers,
		Body:    body,
	}, nil
}

// isRequestLine reports whether a trimmed line begins a request descriptor.
func isRequestLine(line string) bool {
	fields := strings.Fields(line)
	return len(fields) >= 2 && methods[fields[0]]
}

// trimTrailingBlank removes trailing blank lines from a block.
func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}
