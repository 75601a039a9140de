package http

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Status is a response status code.
type Status int

const (
	StatusOK                  Status = 200
	StatusCreated             Status = 201
	StatusBadRequest          Status = 400
	StatusNotFound            Status = 404
	StatusInternalServerError Status = 500
	StatusNotImplemented      Status = 501
)

// Reason returns the reason phrase written on the status line.
func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCreated:
		return "Created"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusNotImplemented:
		return "Not Implemented"
	default:
		return "Internal Server Error"
	}
}

// Code returns the numeric status code.
func (s Status) Code() int {
	return int(s)
}

// MIME types produced by the handlers.
const (
	MimeTextPlain   = "text/plain"
	MimeOctetStream = "application/octet-stream"
)

// Response is a response ready to be encoded.
type Response struct {
	Status   Status
	MimeType string
	Body     []byte
	Encoding Encoding
}

// NewResponse returns a body-less response with the given status.
func NewResponse(status Status) *Response {
	return &Response{Status: status, Encoding: EncodingIdentity}
}

// ErrorResponse returns the body-less response sent for err.
func ErrorResponse(err error) *Response {
	return NewResponse(StatusOf(err))
}

// Encode writes the response to w in a single Write.
//
// Wire layout:
//
//	HTTP/1.1 <code> <reason>\r\n
//	Content-Type: <mime>\r\n          (non-empty body only)
//	Content-Length: <n>\r\n           (non-empty body only)
//	Content-Encoding: gzip\r\n        (non-empty gzip body only)
//	\r\n
//	<body>
//
// Content-Length is the length of the bytes actually written, i.e. the
// compressed length when gzip applies. The body is compressed before
// anything is written so a compression failure leaves w untouched.
func (r *Response) Encode(w io.Writer) error {
	body := r.Body
	gzipped := false
	if len(body) > 0 && r.Encoding == EncodingGzip {
		compressed, err := compress(body)
		if err != nil {
			return fmt.Errorf("gzip response body: %w", err)
		}
		body = compressed
		gzipped = true
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(body))

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.Status.Code()))
	buf.WriteByte(' ')
	buf.WriteString(r.Status.Reason())
	buf.WriteString("\r\n")

	if len(body) > 0 {
		writeHeader(&buf, HeaderContentType, r.MimeType)
		writeHeader(&buf, HeaderContentLength, strconv.Itoa(len(body)))
		if gzipped {
			writeHeader(&buf, HeaderContentEncoding, EncodingGzip.Token())
		}
	}

	buf.WriteString("\r\n")
	buf.Write(body)

	_, err := w.Write(buf.Bytes())
	return err
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}
