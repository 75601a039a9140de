// Package http implements the constrained HTTP/1.1 wire codec served by
// DittoHTTP.
//
// # Scope
//
// The codec understands exactly one request per connection:
//
//   - A start line "<METHOD> <PATH> <VERSION>" terminated by CRLF (or LF)
//   - Zero or more "Name: value" header lines, ended by a blank line
//   - An optional body whose length is given by Content-Length
//
// Chunked transfer-encoding, keep-alive, pipelining and compressed request
// bodies are not supported.
//
// # Layers
//
//   - Decode (request.go): start line, path segmentation, headers, body
//   - Dispatch (dispatch.go): total mapping of (Method, Route) to an Operation
//   - Negotiation (encoding.go): Accept-Encoding to response Encoding
//   - Encode (response.go): status line, entity headers, optional gzip body
//
// Errors that should reach the client carry their status in a *StatusError
// (errors.go). Anything else is reported as 500 Internal Server Error.
package http
