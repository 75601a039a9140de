package http

import (
	"net/textproto"
	"strings"
)

// Common header names, in canonical form.
const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderContentLength   = "Content-Length"
	HeaderContentType     = "Content-Type"
	HeaderUserAgent       = "User-Agent"
)

// listValued holds the headers whose value is a comma separated list.
// Their tokens are split, trimmed and appended across repeated lines.
var listValued = map[string]bool{
	HeaderAcceptEncoding: true,
}

// Header maps canonical header names to their ordered values.
//
// Single-valued headers always hold a list of length one; a repeated line
// replaces the previous value. List-valued headers accumulate tokens.
type Header map[string][]string

// Get returns the last value stored for key.
func (h Header) Get(key string) (string, bool) {
	values := h[textproto.CanonicalMIMEHeaderKey(key)]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// Values returns every value stored for key.
func (h Header) Values(key string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

// Set replaces the values stored for key with a single value.
func (h Header) Set(key, value string) {
	h[textproto.CanonicalMIMEHeaderKey(key)] = []string{value}
}

// add stores a raw header line value according to the header's kind.
func (h Header) add(key, value string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	if !listValued[key] {
		h[key] = []string{value}
		return
	}

	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		h[key] = append(h[key], token)
	}
}

// parseHeaderLine splits "Name: value" on the first colon.
//
// Both sides are trimmed. A line without a colon, or with an empty name,
// is a client error.
func parseHeaderLine(line string) (string, string, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", NewStatusError(StatusBadRequest, "malformed header line %q", line)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", NewStatusError(StatusBadRequest, "empty header name in %q", line)
	}

	return name, strings.TrimSpace(value), nil
}
