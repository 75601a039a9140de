package http

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Encoding is the content-coding applied to a response body.
type Encoding int

const (
	EncodingIdentity Encoding = iota
	EncodingGzip
)

// Token returns the Content-Encoding token for e.
func (e Encoding) Token() string {
	if e == EncodingGzip {
		return "gzip"
	}
	return "identity"
}

// Negotiate picks the response encoding from the request's Accept-Encoding
// tokens. The token compare is case-insensitive. gzip with q=0 is refused
// by the client; other q-values are accepted. Anything else falls back to
// identity.
func Negotiate(h Header) Encoding {
	for _, token := range h.Values(HeaderAcceptEncoding) {
		name, params, _ := strings.Cut(token, ";")
		if strings.EqualFold(strings.TrimSpace(name), "gzip") && acceptable(params) {
			return EncodingGzip
		}
	}
	return EncodingIdentity
}

// acceptable reports whether the ';' separated parameters of a coding
// allow it. Only q matters: a missing or malformed q counts as 1, and any
// value that parses to zero ("0", "0.0", "0.000") forbids the coding.
func acceptable(params string) bool {
	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(param, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return true
		}
		return q > 0
	}
	return true
}

// compress gzips data at the default level.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
