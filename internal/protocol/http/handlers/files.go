package handlers

import (
	"errors"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/http"
	"github.com/marmos91/dittohttp/pkg/content"
)

// GetFile answers GET /files/<name>.
//
// Status mapping:
//   - 200 application/octet-stream: file found (encoding negotiated)
//   - 400: no name segment, or a name the store rejects
//   - 404: file does not exist
//   - 500: any other store failure
func (h *DefaultHTTPHandler) GetFile(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error) {
	name, err := fileName(req)
	if err != nil {
		return nil, err
	}

	data, err := ctx.Store.ReadFile(ctx.Context, name)
	if err != nil {
		logger.Debug("[%s] GET_FILES %q: %v", ctx.RequestID, name, err)
		return nil, storeError(err)
	}

	logger.Debug("[%s] GET_FILES %q: %d bytes", ctx.RequestID, name, len(data))
	return &http.Response{
		Status:   http.StatusOK,
		MimeType: http.MimeOctetStream,
		Body:     data,
		Encoding: http.Negotiate(req.Header),
	}, nil
}

// PostFile answers POST /files/<name> by storing the request body.
//
// Status mapping:
//   - 201: stored (no body)
//   - 400: no name segment, or a name the store rejects
//   - 500: any other store failure
func (h *DefaultHTTPHandler) PostFile(ctx *HTTPHandlerContext, req *http.Request) (*http.Response, error) {
	name, err := fileName(req)
	if err != nil {
		return nil, err
	}

	if err := ctx.Store.WriteFile(ctx.Context, name, req.Body); err != nil {
		logger.Warn("[%s] POST_FILES %q: %v", ctx.RequestID, name, err)
		return nil, storeError(err)
	}

	logger.Debug("[%s] POST_FILES %q: stored %d bytes", ctx.RequestID, name, len(req.Body))
	return http.NewResponse(http.StatusCreated), nil
}

// fileName returns the <name> segment of /files/<name>.
func fileName(req *http.Request) (string, error) {
	name := req.Segment(1)
	if name == "" {
		return "", http.NewStatusError(http.StatusBadRequest, "missing file name in %s", req.Path)
	}
	return name, nil
}

// storeError classifies a FileStore error.
func storeError(err error) error {
	switch {
	case errors.Is(err, content.ErrFileNotFound):
		return http.WrapStatus(http.StatusNotFound, err)
	case errors.Is(err, content.ErrInvalidName):
		return http.WrapStatus(http.StatusBadRequest, err)
	default:
		return http.WrapStatus(http.StatusInternalServerError, err)
	}
}
