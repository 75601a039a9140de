package http

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittohttp/internal/bufpool"
	"github.com/marmos91/dittohttp/internal/logger"
	http "github.com/marmos91/dittohttp/internal/protocol/http"
	"github.com/marmos91/dittohttp/internal/protocol/http/handlers"
)

// HTTPConnection is the worker-pool job serving one accepted socket: one
// request in, one response out, then close.
type HTTPConnection struct {
	server *HTTPAdapter
	conn   net.Conn
	id     string
}

func NewHTTPConnection(server *HTTPAdapter, conn net.Conn) *HTTPConnection {
	return &HTTPConnection{
		server: server,
		conn:   conn,
		id:     uuid.NewString(),
	}
}

// Run implements workerpool.Job.
func (c *HTTPConnection) Run() {
	defer c.server.connectionDone(c)
	c.Serve(c.server.requestCtx)
}

// Serve drives the connection through parse, route, handle and respond.
// Any failure before the response is written becomes an error response;
// a failed write drops the connection. It implements panic recovery so a
// misbehaving request never takes a worker down.
func (c *HTTPConnection) Serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[%s] Panic in connection handler from %s: %v",
				c.id, c.conn.RemoteAddr().String(), r)
		}
		_ = c.conn.Close()
	}()

	clientAddr := c.conn.RemoteAddr().String()
	start := time.Now()

	if c.server.config.Timeouts.Read > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.Timeouts.Read)); err != nil {
			logger.Warn("[%s] Failed to set read deadline for %s: %v", c.id, clientAddr, err)
		}
	}

	reader := &countingReader{r: c.conn}
	op, resp := c.handleRequest(ctx, bufio.NewReader(reader), clientAddr)
	c.server.metrics.RecordBytesTransferred("in", reader.n)

	wire, err := encode(resp)
	if err != nil {
		logger.Warn("[%s] Encoding %s response failed: %v", c.id, op, err)
		resp = http.ErrorResponse(err)
		wire, _ = encode(resp)
	}
	defer bufpool.Put(wire)

	if c.server.config.Timeouts.Write > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.Timeouts.Write)); err != nil {
			logger.Warn("[%s] Failed to set write deadline for %s: %v", c.id, clientAddr, err)
		}
	}

	n, err := c.conn.Write(wire)
	c.server.metrics.RecordBytesTransferred("out", int64(n))
	duration := time.Since(start)
	c.server.metrics.RecordRequest(op.String(), resp.Status.Code(), duration)

	if err != nil {
		logger.Debug("[%s] Dropping connection from %s: write failed: %v", c.id, clientAddr, err)
		return
	}

	logger.Debug("[%s] %s %s -> %d (%v)", c.id, clientAddr, op, resp.Status.Code(), duration)
}

// handleRequest decodes, routes and handles one request. It always returns
// a response: errors are converted with http.ErrorResponse.
func (c *HTTPConnection) handleRequest(ctx context.Context, r *bufio.Reader, clientAddr string) (op http.Operation, resp *http.Response) {
	op = http.OpUnknown

	defer func() {
		if p := recover(); p != nil {
			logger.Error("[%s] Panic handling %s from %s: %v", c.id, op, clientAddr, p)
			resp = http.ErrorResponse(fmt.Errorf("panic: %v", p))
		}
	}()

	req, err := http.Decode(r, c.server.config.MaxBodyBytes)
	if err != nil {
		logDecodeError(c.id, clientAddr, err)
		return op, http.ErrorResponse(err)
	}

	op = http.Dispatch(req.Method, req.Route)
	logger.Debug("[%s] %s %s %s from %s", c.id, req.Method, req.Path, op, clientAddr)

	hctx := &handlers.HTTPHandlerContext{
		Context:    ctx,
		ClientAddr: clientAddr,
		RequestID:  c.id,
		Store:      c.server.store,
	}

	resp, err = handlers.Handle(c.server.handler, hctx, op, req)
	if err != nil {
		logger.Debug("[%s] %s failed: %v", c.id, op, err)
		return op, http.ErrorResponse(err)
	}
	return op, resp
}

// logDecodeError logs at a level matching how unusual the failure is.
func logDecodeError(id, clientAddr string, err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		logger.Debug("[%s] Connection from %s closed before a full request: %v", id, clientAddr, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.Debug("[%s] Connection from %s timed out: %v", id, clientAddr, err)
	default:
		logger.Debug("[%s] Malformed request from %s: %v", id, clientAddr, err)
	}
}

// encode serialises resp into a pooled buffer so a compression failure can
// still be answered with a 500 before anything reaches the socket. The
// caller returns the slice with bufpool.Put.
func encode(resp *http.Response) ([]byte, error) {
	buf := bytes.NewBuffer(bufpool.Get(len(resp.Body) + 256)[:0])
	if err := resp.Encode(buf); err != nil {
		bufpool.Put(buf.Bytes())
		return nil, err
	}
	return buf.Bytes(), nil
}

// countingReader counts bytes read from the socket.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
