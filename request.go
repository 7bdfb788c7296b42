package reqflow

// Request is the structured, resolved form of one request descriptor.
//
// Request is immutable after creation. It is built by the runner when a
// descriptor string has been resolved against the environment and parsed;
// when resolution or parsing failed, only Source and Index are populated.
type Request struct {
	source  string
	method  string
	url     string
	headers map[string]string
	body    string
	index   int
}

// Source returns the original descriptor text, with placeholders unresolved.
func (r Request) Source() string {
	return r.source
}

// Method returns the HTTP method. Empty if the descriptor never resolved.
func (r Request) Method() string {
	return r.method
}

// URL returns the resolved target URL. Empty if the descriptor never
// resolved.
func (r Request) URL() string {
	return r.url
}

// Headers returns a copy of the request headers.
func (r Request) Headers() map[string]string {
	return copyMap(r.headers)
}

// Body returns the request body text.
func (r Request) Body() string {
	return r.body
}

// Index returns the request's source order: its position among the requests
// parsed from the same script. Final batch delivery is sorted by this value.
func (r Request) Index() int {
	return r.index
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
