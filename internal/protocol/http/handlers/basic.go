package handlers

import (
	"github.com/marmos91/dittohttp/internal/protocol/http"
)

// Root answers GET / with 200 and no body.
func (h *DefaultHTTPHandler) Root(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error) {
	return http.NewResponse(http.StatusOK), nil
}

// Echo answers GET /echo/<text> with <text> as text/plain.
func (h *DefaultHTTPHandler) Echo(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error) {
	return textResponse(req, req.Body), nil
}

// UserAgent answers GET /user-agent with the client's User-Agent value.
func (h *DefaultHTTPHandler) UserAgent(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error) {
	ua, ok := req.Header.Get(http.HeaderUserAgent)
	if !ok {
		return nil, http.NewStatusError(http.StatusBadRequest, "missing %s header", http.HeaderUserAgent)
	}
	return textResponse(req, []byte(ua)), nil
}
