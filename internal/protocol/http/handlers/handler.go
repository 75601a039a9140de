// Package handlers implements the DittoHTTP route handlers.
//
// Each handler is a pure function of the decoded request and the handler
// context: it returns a *http.Response on success, or an error whose
// *http.StatusError (if any) selects the failure status. Errors without a
// status are answered with 500.
package handlers

import (
	"fmt"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http"
)

// HTTPHandler defines one method per routed operation.
//
// DefaultHTTPHandler is the production implementation. Tests may substitute
// their own to exercise the connection driver.
type HTTPHandler interface {
	// Root answers GET /: 200 with no body.
	Root(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error)

	// Echo answers GET /echo/<text>: 200 text/plain with <text> as body.
	Echo(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error)

	// UserAgent answers GET /user-agent with the User-Agent header value.
	// A missing header is a 400.
	UserAgent(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error)

	// GetFile answers GET /files/<name> with the stored file.
	// Missing file: 404. Missing or invalid name: 400.
	GetFile(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error)

	// PostFile answers POST /files/<name> by storing the request body.
	// Success: 201. Missing or invalid name: 400. Store failure: 500.
	PostFile(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error)
}

// DefaultHTTPHandler implements HTTPHandler on top of content.FileStore.
type DefaultHTTPHandler struct{}

var _ HTTPHandler = (*DefaultHTTPHandler)(nil)

// Handle runs the handler selected by op.
//
// The switch is exhaustive over http.Operation: OpUnknown is answered with
// 404 and OpUnsupported with 501 without calling any handler.
func Handle(h HTTPHandler, ctx *HTTPHandlerContext, op http.Operation, req *http.Request) (*http.Response, error) {
	logger.Debug("[%s] %s %s from %s", ctx.RequestID, op, req.Path, ctx.ClientAddr)

	switch op {
	case http.OpGetRoot:
		return h.Root(ctx, req)
	case http.OpGetEcho:
		return h.Echo(ctx, req)
	case http.OpGetUserAgent:
		return h.UserAgent(ctx, req)
	case http.OpGetFiles:
		return h.GetFile(ctx, req)
	case http.OpPostFiles:
		return h.PostFile(ctx, req)
	case http.OpUnsupported:
		return nil, http.NewStatusError(http.StatusNotImplemented, "method not implemented")
	case http.OpUnknown:
		return nil, http.NewStatusError(http.StatusNotFound, "no route for %s %s", req.Method, req.Path)
	default:
		return nil, fmt.Errorf("unhandled operation %d", int(op))
	}
}

// textResponse builds a 200 text/plain response with negotiated encoding.
func textResponse(req *http.Request, body []byte) *http.Response {
	return &http.Response{
		Status:   http.StatusOK,
		MimeType: http.MimeTextPlain,
		Body:     body,
		Encoding: http.Negotiate(req.Header),
	}
}
