package http

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func decodeString(t *testing.T, raw string) (*Request, error) {
	t.Helper()
	return Decode(bufio.NewReader(strings.NewReader(raw)), 0)
}

func requireStatus(t *testing.T, err error, want Status) {
	t.Helper()
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se), "expected *StatusError, got %T: %v", err, err)
	assert.Equal(t, want, se.Status)
}

// ============================================================================
// Start Line Tests
// ============================================================================

func TestDecodeStartLine(t *testing.T) {
	t.Run("ParsesEchoRequest", func(t *testing.T) {
		req, err := decodeString(t, "GET /echo/abc HTTP/1.1\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, MethodGet, req.Method)
		assert.Equal(t, RouteEcho, req.Route)
		assert.Equal(t, "/echo/abc", req.Path)
		assert.Equal(t, "HTTP/1.1", req.Version)
		assert.Equal(t, []string{"echo", "abc"}, req.Segments)
		assert.Equal(t, []byte("abc"), req.Body)
	})

	t.Run("AcceptsBareLF", func(t *testing.T) {
		req, err := decodeString(t, "GET / HTTP/1.1\nHost: x\n\n")
		require.NoError(t, err)
		assert.Equal(t, RouteRoot, req.Route)
		host, ok := req.Header.Get("host")
		assert.True(t, ok)
		assert.Equal(t, "x", host)
	})

	t.Run("DropsEmptySegments", func(t *testing.T) {
		req, err := decodeString(t, "GET //files//a.txt/ HTTP/1.1\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"files", "a.txt"}, req.Segments)
		assert.Equal(t, RouteFiles, req.Route)
	})

	t.Run("RouteMatchIsCaseSensitive", func(t *testing.T) {
		req, err := decodeString(t, "GET /Echo/abc HTTP/1.1\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, RouteUnknown, req.Route)
	})

	t.Run("EmptyStartLineIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("MissingPathIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "GET\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("UnknownMethodIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "FETCH / HTTP/1.1\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("LowercaseMethodIsUnknown", func(t *testing.T) {
		_, err := decodeString(t, "get / HTTP/1.1\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("UnsupportedMethodsAreNotImplemented", func(t *testing.T) {
		for _, m := range []string{"PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "CONNECT", "TRACE"} {
			_, err := decodeString(t, m+" / HTTP/1.1\r\n\r\n")
			requireStatus(t, err, StatusNotImplemented)
		}
	})

	t.Run("MethodClassifiedBeforePath", func(t *testing.T) {
		_, err := decodeString(t, "DELETE\r\n\r\n")
		requireStatus(t, err, StatusNotImplemented)
	})

	t.Run("EOFBeforeAnyLineIsIOError", func(t *testing.T) {
		_, err := decodeString(t, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, io.EOF))
		assert.Equal(t, StatusInternalServerError, StatusOf(err))
	})

	t.Run("OverlongLineIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "GET /"+strings.Repeat("a", maxLineLength)+" HTTP/1.1\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})
}

// ============================================================================
// Header Tests
// ============================================================================

func TestDecodeHeaders(t *testing.T) {
	t.Run("TrimsNameAndValue", func(t *testing.T) {
		req, err := decodeString(t, "GET /user-agent HTTP/1.1\r\n  User-Agent :   curl/8.0  \r\n\r\n")
		require.NoError(t, err)
		ua, ok := req.Header.Get(HeaderUserAgent)
		require.True(t, ok)
		assert.Equal(t, "curl/8.0", ua)
	})

	t.Run("SplitsOnFirstColonOnly", func(t *testing.T) {
		req, err := decodeString(t, "GET / HTTP/1.1\r\nHost: localhost:4221\r\n\r\n")
		require.NoError(t, err)
		host, _ := req.Header.Get("Host")
		assert.Equal(t, "localhost:4221", host)
	})

	t.Run("LookupIsCaseInsensitive", func(t *testing.T) {
		req, err := decodeString(t, "GET / HTTP/1.1\r\nuser-agent: foo\r\n\r\n")
		require.NoError(t, err)
		ua, ok := req.Header.Get("USER-AGENT")
		require.True(t, ok)
		assert.Equal(t, "foo", ua)
	})

	t.Run("SingleValuedLastOneWins", func(t *testing.T) {
		req, err := decodeString(t, "GET / HTTP/1.1\r\nUser-Agent: a\r\nUser-Agent: b\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, req.Header.Values(HeaderUserAgent))
	})

	t.Run("AcceptEncodingIsListValued", func(t *testing.T) {
		req, err := decodeString(t,
			"GET / HTTP/1.1\r\nAccept-Encoding: br, gzip;q=0.8\r\nAccept-Encoding: deflate\r\n\r\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"br", "gzip;q=0.8", "deflate"}, req.Header.Values(HeaderAcceptEncoding))
	})

	t.Run("LineWithoutColonIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "GET / HTTP/1.1\r\nNoColonHere\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("EmptyNameIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "GET / HTTP/1.1\r\n: value\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("EOFBeforeBlankLineIsIOError", func(t *testing.T) {
		_, err := decodeString(t, "GET / HTTP/1.1\r\nHost: x\r\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
		assert.Equal(t, StatusInternalServerError, StatusOf(err))
	})
}

// ============================================================================
// Body Tests
// ============================================================================

func TestDecodeBody(t *testing.T) {
	t.Run("ReadsExactlyContentLength", func(t *testing.T) {
		req, err := decodeString(t, "POST /files/a HTTP/1.1\r\nContent-Length: 5\r\n\r\nhelloEXTRA")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), req.Body)
		assert.Len(t, req.Body, 5)
	})

	t.Run("AbsentContentLengthIsEmptyBody", func(t *testing.T) {
		req, err := decodeString(t, "POST /files/a HTTP/1.1\r\n\r\nignored")
		require.NoError(t, err)
		assert.Empty(t, req.Body)
	})

	t.Run("EchoIgnoresContentLength", func(t *testing.T) {
		req, err := decodeString(t, "GET /echo/xyz HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc")
		require.NoError(t, err)
		assert.Equal(t, []byte("xyz"), req.Body)
	})

	t.Run("NonNumericContentLengthIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "POST /files/a HTTP/1.1\r\nContent-Length: ten\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("NegativeContentLengthIsBadRequest", func(t *testing.T) {
		_, err := decodeString(t, "POST /files/a HTTP/1.1\r\nContent-Length: -1\r\n\r\n")
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("SignedContentLengthIsBadRequest", func(t *testing.T) {
		for _, value := range []string{"+3", "-0", "0x3", "3.0"} {
			_, err := decodeString(t, "POST /files/a HTTP/1.1\r\nContent-Length: "+value+"\r\n\r\nabc")
			requireStatus(t, err, StatusBadRequest)
		}
	})

	t.Run("ContentLengthAboveLimitIsBadRequest", func(t *testing.T) {
		r := bufio.NewReader(strings.NewReader("POST /files/a HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello world"))
		_, err := Decode(r, 10)
		requireStatus(t, err, StatusBadRequest)
	})

	t.Run("ShortBodyIsIOError", func(t *testing.T) {
		_, err := decodeString(t, "POST /files/a HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc")
		require.Error(t, err)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
		assert.Equal(t, StatusInternalServerError, StatusOf(err))
	})
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		segments []string
		want     Route
	}{
		{nil, RouteRoot},
		{[]string{"echo"}, RouteEcho},
		{[]string{"user-agent"}, RouteUserAgent},
		{[]string{"files", "x"}, RouteFiles},
		{[]string{"nope"}, RouteUnknown},
		{[]string{"FILES"}, RouteUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRoute(tt.segments), "segments=%v", tt.segments)
	}
}

func TestRequestSegment(t *testing.T) {
	req := &Request{Segments: []string{"files", "a.txt"}}
	assert.Equal(t, "files", req.Segment(0))
	assert.Equal(t, "a.txt", req.Segment(1))
	assert.Equal(t, "", req.Segment(2))
	assert.Equal(t, "", req.Segment(-1))
}
