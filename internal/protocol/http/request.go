package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxBodyBytes is the request body ceiling used when Decode is given
// a non-positive limit.
const DefaultMaxBodyBytes int64 = 10 << 20

// maxLineLength bounds a single start or header line.
const maxLineLength = 64 << 10

// ============================================================================
// Method
// ============================================================================

// Method classifies the request method.
type Method int

const (
	// MethodUnknown is anything that is not an HTTP method we recognise,
	// including an absent method. Rejected with 400.
	MethodUnknown Method = iota

	// MethodGet is GET.
	MethodGet

	// MethodPost is POST.
	MethodPost

	// MethodUnsupported is a real HTTP method this server does not
	// implement. Rejected with 501.
	MethodUnsupported
)

// ParseMethod classifies a method token. The comparison is case-sensitive.
func ParseMethod(token string) Method {
	switch token {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "CONNECT", "TRACE":
		return MethodUnsupported
	default:
		return MethodUnknown
	}
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// ============================================================================
// Route
// ============================================================================

// Route is the resource family named by the first path segment.
type Route int

const (
	RouteUnknown Route = iota
	RouteRoot
	RouteEcho
	RouteUserAgent
	RouteFiles
)

// ParseRoute derives the route from the path segments.
// No segments is the root; otherwise segment 0 must match exactly.
func ParseRoute(segments []string) Route {
	if len(segments) == 0 {
		return RouteRoot
	}

	switch segments[0] {
	case "echo":
		return RouteEcho
	case "user-agent":
		return RouteUserAgent
	case "files":
		return RouteFiles
	default:
		return RouteUnknown
	}
}

func (r Route) String() string {
	switch r {
	case RouteRoot:
		return "root"
	case RouteEcho:
		return "echo"
	case RouteUserAgent:
		return "user-agent"
	case RouteFiles:
		return "files"
	default:
		return "unknown"
	}
}

// splitPath splits a request path on "/" dropping empty segments.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// ============================================================================
// Request
// ============================================================================

// Request is a decoded HTTP request.
type Request struct {
	// Method is the classified request method.
	Method Method

	// Route is derived from Segments[0].
	Route Route

	// Path is the raw request target from the start line.
	Path string

	// Segments are the non-empty "/" separated parts of Path.
	Segments []string

	// Version is the protocol token from the start line. May be empty.
	Version string

	// Header holds the request headers keyed by canonical name.
	Header Header

	// Body is the request payload.
	//   - /echo/<text>: the <text> segment
	//   - otherwise: exactly Content-Length bytes, or empty when absent
	Body []byte
}

// Segment returns the i-th path segment, or "" when it does not exist.
func (r *Request) Segment(i int) string {
	if i < 0 || i >= len(r.Segments) {
		return ""
	}
	return r.Segments[i]
}

// Decode reads one request from r.
//
// Decoding stops at the first failure:
//   - Empty start line, missing path, unknown method: *StatusError 400
//   - Unsupported method: *StatusError 501 (classified before the path)
//   - Header line without ':' or with an empty name: *StatusError 400
//   - Content-Length not all digits (signs included) or above maxBody: *StatusError 400
//   - EOF before the blank line, short body: plain I/O error
//
// maxBody <= 0 selects DefaultMaxBodyBytes.
func Decode(r *bufio.Reader, maxBody int64) (*Request, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	startLine, err := readLine(r)
	if err != nil {
		return nil, fmt.Errorf("read start line: %w", err)
	}

	req, err := parseStartLine(startLine)
	if err != nil {
		return nil, err
	}

	if err := readHeaders(r, req.Header); err != nil {
		return nil, err
	}

	if err := readBody(r, req, maxBody); err != nil {
		return nil, err
	}

	return req, nil
}

func parseStartLine(line string) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, NewStatusError(StatusBadRequest, "empty start line")
	}

	method := ParseMethod(fields[0])
	switch method {
	case MethodUnsupported:
		return nil, NewStatusError(StatusNotImplemented, "method %s not implemented", fields[0])
	case MethodUnknown:
		return nil, NewStatusError(StatusBadRequest, "unknown method %q", fields[0])
	}

	if len(fields) < 2 {
		return nil, NewStatusError(StatusBadRequest, "missing request path")
	}

	req := &Request{
		Method: method,
		Path:   fields[1],
		Header: make(Header),
	}
	if len(fields) > 2 {
		req.Version = fields[2]
	}
	req.Segments = splitPath(req.Path)
	req.Route = ParseRoute(req.Segments)

	return req, nil
}

func readHeaders(r *bufio.Reader, h Header) error {
	for {
		line, err := readLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("read headers: %w", err)
		}
		if line == "" {
			return nil
		}

		name, value, err := parseHeaderLine(line)
		if err != nil {
			return err
		}
		h.add(name, value)
	}
}

func readBody(r *bufio.Reader, req *Request, maxBody int64) error {
	if req.Route == RouteEcho && len(req.Segments) >= 2 {
		req.Body = []byte(req.Segments[1])
		return nil
	}

	raw, ok := req.Header.Get(HeaderContentLength)
	if !ok {
		req.Body = []byte{}
		return nil
	}

	// 1*DIGIT only: ParseInt would also take a sign.
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return NewStatusError(StatusBadRequest, "invalid Content-Length %q", raw)
	}
	length, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return NewStatusError(StatusBadRequest, "invalid Content-Length %q", raw)
	}
	if length > maxBody {
		return NewStatusError(StatusBadRequest, "Content-Length %d exceeds limit %d", length, maxBody)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read body (%d bytes): %w", length, err)
	}
	req.Body = body
	return nil
}

// readLine reads one LF terminated line and strips the line ending.
// A final line without terminator is returned as is; io.EOF is only
// returned when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > maxLineLength {
			return "", NewStatusError(StatusBadRequest, "line exceeds %d bytes", maxLineLength)
		}

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			break
		}
		return "", err
	}

	line := strings.TrimSuffix(string(buf), "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
