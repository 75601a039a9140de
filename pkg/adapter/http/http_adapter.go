package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	http "github.com/marmos91/dittohttp/internal/protocol/http"
	"github.com/marmos91/dittohttp/internal/protocol/http/handlers"
	"github.com/marmos91/dittohttp/internal/ratelimiter"
	"github.com/marmos91/dittohttp/internal/workerpool"
	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/marmos91/dittohttp/pkg/metrics"
)

// HTTPAdapter implements the adapter.Adapter interface for the HTTP/1.1
// subset served by dittohttp.
//
// Architecture:
// One goroutine runs the accept loop. Every accepted socket becomes a job
// (HTTPConnection) submitted to a fixed worker pool; whichever worker is
// idle first serves it. A connection carries exactly one request and one
// response, then it is closed.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Running flag cleared, listener closed (no new connections)
//  3. Worker pool stopped: one terminate sentinel per worker behind every
//     queued connection, so every accepted connection is still answered
//  4. If ShutdownTimeout expires first, the sockets still in flight are
//     force-closed and their request context is cancelled
//
// Thread safety:
// All methods are safe for concurrent use. The shutdown mechanism uses sync.Once
// to ensure idempotent behavior even if Stop() is called multiple times.
type HTTPAdapter struct {
	// config holds the server configuration (address, pool, timeouts, limits)
	config HTTPConfig

	// listener is bound by Listen (or lazily by Serve) and closed on shutdown
	listener   net.Listener
	listenerMu sync.Mutex

	// handler processes the routed operations
	handler handlers.HTTPHandler

	// store is shared by every connection; injected once via SetStore
	store content.FileStore

	// metrics is never nil (no-op when metrics are disabled)
	metrics metrics.HTTPMetrics

	// pool runs connection jobs
	pool *workerpool.Pool

	// limiter throttles accepted connections; unlimited by default
	limiter *ratelimiter.RateLimiter

	// running is cleared once shutdown starts
	running atomic.Bool

	// shutdownOnce ensures shutdown is only initiated once
	shutdownOnce sync.Once

	// shutdown is closed by initiateShutdown and monitored by the accept loop
	shutdown chan struct{}

	// requestCtx is handed to every handler. It is cancelled only when
	// in-flight connections are force-closed.
	requestCtx     context.Context
	cancelRequests context.CancelFunc

	// connCount tracks connections accepted but not yet closed (queued or in a worker)
	connCount atomic.Int32

	// activeConnections maps job id to net.Conn for forced closure
	activeConnections sync.Map
}

// HTTPConfig holds configuration parameters for the HTTP server.
//
// Default values (applied by New if zero):
//   - Address: 127.0.0.1:4221
//   - Workers: 8
//   - QueueSize: 64
//   - MaxBodyBytes: 10 MiB
//   - Timeouts.Read: 30s
//   - Timeouts.Write: 30s
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m (negative disables)
//   - RateLimit.RequestsPerSecond: 0 (unlimited)
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// Address is the host:port to bind. Port 0 picks a free port.
	Address string `mapstructure:"address"`

	// Workers is the number of connections served concurrently.
	Workers int `mapstructure:"workers" validate:"min=0,max=4096"`

	// QueueSize bounds accepted connections waiting for a worker.
	// When the queue is full the accept loop blocks.
	QueueSize int `mapstructure:"queue_size" validate:"min=0"`

	// MaxBodyBytes is the largest accepted request body. Larger
	// Content-Length values are answered with 400.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=0"`

	// Timeouts bound socket reads and writes of one connection.
	Timeouts HTTPTimeoutsConfig `mapstructure:"timeouts"`

	// ShutdownTimeout is the maximum duration to wait for accepted
	// connections to be answered during graceful shutdown. After this
	// timeout, remaining connections are forcibly closed.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MetricsLogInterval is the interval at which to log server metrics.
	// Negative disables periodic metrics logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval"`

	// RateLimit throttles the accept loop.
	RateLimit HTTPRateLimitConfig `mapstructure:"rate_limit"`
}

// HTTPTimeoutsConfig groups per-connection socket timeouts.
type HTTPTimeoutsConfig struct {
	// Read bounds reading the whole request (start line, headers, body).
	Read time.Duration `mapstructure:"read" validate:"min=0"`

	// Write bounds writing the response.
	Write time.Duration `mapstructure:"write" validate:"min=0"`
}

// HTTPRateLimitConfig configures accept throttling.
type HTTPRateLimitConfig struct {
	// RequestsPerSecond is the sustained accept rate. 0 disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`

	// Burst is the number of connections accepted at once above the rate.
	Burst int `mapstructure:"burst" validate:"min=0"`
}

// DefaultAddress is the address bound when none is configured.
const DefaultAddress = "127.0.0.1:4221"

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Note: Enabled field defaults are handled in pkg/config/defaults.go
	// to allow explicit false values from configuration files.

	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if c.Timeouts.Read == 0 {
		c.Timeouts.Read = 30 * time.Second
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
}

// validate checks that the configuration is usable.
func (c *HTTPConfig) validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Address, err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid Workers %d: must be >= 1", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("invalid QueueSize %d: must be >= 0", c.QueueSize)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid MaxBodyBytes %d: must be >= 0", c.MaxBodyBytes)
	}
	if c.Timeouts.Read < 0 {
		return fmt.Errorf("invalid read timeout %v: must be >= 0", c.Timeouts.Read)
	}
	if c.Timeouts.Write < 0 {
		return fmt.Errorf("invalid write timeout %v: must be >= 0", c.Timeouts.Write)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid rate limit %v/%d: must be >= 0",
			c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	}
	return nil
}

// New creates a new HTTPAdapter with the specified configuration.
//
// The adapter is created in a stopped state with its worker pool already
// running. Call SetStore() to inject the FileStore, then call Serve() to
// start accepting connections.
//
// Parameters:
//   - config: Server configuration (zero values replaced by defaults)
//   - httpMetrics: Optional metrics collector (nil for no metrics)
//
// Panics if config validation fails.
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	requestCtx, cancelRequests := context.WithCancel(context.Background())

	s := &HTTPAdapter{
		config:         config,
		handler:        &handlers.DefaultHTTPHandler{},
		metrics:        httpMetrics,
		pool:           workerpool.New(config.Workers, config.QueueSize),
		limiter:        ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
		shutdown:       make(chan struct{}),
		requestCtx:     requestCtx,
		cancelRequests: cancelRequests,
	}
	s.running.Store(true)

	logger.Debug("HTTP worker pool: workers=%d queue_size=%d", config.Workers, config.QueueSize)
	if s.limiter.Enabled() {
		logger.Debug("HTTP accept rate limit: %.0f/s burst %d",
			config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}

	return s
}

// SetStore injects the shared FileStore.
//
// Thread safety:
// Called exactly once before Serve(), no synchronization needed.
func (s *HTTPAdapter) SetStore(store content.FileStore) {
	s.store = store
	logger.Debug("HTTP file store configured")
}

// SetRateLimit changes accept throttling at runtime. A rate of 0 disables it.
func (s *HTTPAdapter) SetRateLimit(requestsPerSecond float64, burst int) {
	s.limiter.SetLimit(requestsPerSecond, burst)
	logger.Info("HTTP accept rate limit set to %.0f/s burst %d", requestsPerSecond, burst)
}

// Listen binds the configured address. Calling it before Serve lets the
// caller learn the bound address (Addr) when the configured port is 0.
// Calling it more than once is a no-op.
func (s *HTTPAdapter) Listen() error {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if s.listener != nil {
		return nil
	}
	if !s.running.Load() {
		return errors.New("HTTP adapter is shut down")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on %s: %w", s.config.Address, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *HTTPAdapter) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve starts the HTTP server and blocks until the context is cancelled
// or an unrecoverable error occurs.
//
// Each accepted connection is submitted to the worker pool. Submission
// blocks while the pool's queue is full, which in turn stops accepting.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails to start or shutdown is not graceful
//
// Thread safety:
// Serve() should only be called once per HTTPAdapter instance.
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	if s.store == nil {
		return errors.New("HTTP adapter has no file store: call SetStore before Serve")
	}
	if err := s.Listen(); err != nil {
		return err
	}

	listener := s.listener
	logger.Info("HTTP server listening on %s", listener.Addr())
	logger.Debug("HTTP config: workers=%d queue_size=%d max_body_bytes=%d read_timeout=%v write_timeout=%v",
		s.config.Workers, s.config.QueueSize, s.config.MaxBodyBytes,
		s.config.Timeouts.Read, s.config.Timeouts.Write)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	for {
		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				// Common causes: resource exhaustion (EMFILE), transient network errors
				logger.Debug("Error accepting HTTP connection: %v", err)
				continue
			}
		}

		if !s.throttle(tcpConn) {
			continue
		}

		s.dispatch(tcpConn)
	}
}

// throttle applies the accept rate limit. It returns false when the
// connection was answered with a 500 and closed because shutdown started
// while waiting.
func (s *HTTPAdapter) throttle(tcpConn net.Conn) bool {
	if s.limiter.Allow() {
		return true
	}

	s.metrics.RecordRateLimited()
	logger.Debug("HTTP accept rate limited: delaying %s", tcpConn.RemoteAddr())

	waitCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.shutdown:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := s.limiter.Wait(waitCtx); err != nil {
		s.reject(tcpConn, fmt.Errorf("shutdown while rate limited: %w", err))
		return false
	}
	return true
}

// reject answers a connection that will never reach a worker with a
// body-less 500, then closes it.
func (s *HTTPAdapter) reject(tcpConn net.Conn, cause error) {
	defer func() { _ = tcpConn.Close() }()

	logger.Debug("HTTP connection from %s rejected: %v", tcpConn.RemoteAddr(), cause)

	timeout := s.config.Timeouts.Write
	if timeout <= 0 || timeout > time.Second {
		timeout = time.Second
	}
	if err := tcpConn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		logger.Debug("Failed to set write deadline for %s: %v", tcpConn.RemoteAddr(), err)
	}

	resp := http.ErrorResponse(cause)
	if err := resp.Encode(tcpConn); err != nil {
		logger.Debug("Failed to answer rejected connection %s: %v", tcpConn.RemoteAddr(), err)
		return
	}
	s.metrics.RecordRequest(http.OpUnknown.String(), resp.Status.Code(), 0)
}

// dispatch tracks tcpConn and hands it to the worker pool.
func (s *HTTPAdapter) dispatch(tcpConn net.Conn) {
	conn := NewHTTPConnection(s, tcpConn)

	s.connCount.Add(1)
	s.activeConnections.Store(conn.id, tcpConn)

	s.metrics.RecordConnectionAccepted()
	currentConns := s.connCount.Load()
	s.metrics.SetActiveConnections(currentConns)

	logger.Debug("[%s] HTTP connection accepted from %s (active: %d)",
		conn.id, tcpConn.RemoteAddr(), currentConns)

	if err := s.pool.Submit(conn); err != nil {
		// Pool stopped between Accept and Submit: no worker will answer.
		s.reject(tcpConn, err)
		s.connectionDone(conn)
		return
	}
	s.metrics.SetQueueDepth(s.pool.QueueDepth())
}

// connectionDone releases the bookkeeping taken by dispatch.
func (s *HTTPAdapter) connectionDone(conn *HTTPConnection) {
	s.activeConnections.Delete(conn.id)
	s.connCount.Add(-1)

	s.metrics.RecordConnectionClosed()
	currentConns := s.connCount.Load()
	s.metrics.SetActiveConnections(currentConns)
	s.metrics.SetQueueDepth(s.pool.QueueDepth())

	logger.Debug("[%s] HTTP connection closed (active: %d)", conn.id, currentConns)
}

// initiateShutdown clears the running flag, signals the accept loop and
// closes the listener. Safe to call multiple times.
func (s *HTTPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")

		s.running.Store(false)
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing HTTP listener: %v", err)
			}
		}
		s.listenerMu.Unlock()
	})
}

// gracefulShutdown stops the worker pool, waiting up to ShutdownTimeout for
// every accepted connection to be answered.
//
// Returns:
//   - nil if all connections completed gracefully
//   - error if shutdown timeout exceeded (connections were force-closed)
func (s *HTTPAdapter) gracefulShutdown() error {
	activeCount := s.connCount.Load()
	logger.Info("HTTP graceful shutdown: waiting for %d connection(s) (timeout: %v)",
		activeCount, s.config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.pool.Stop(ctx); err == nil {
		logger.Info("HTTP graceful shutdown complete: all connections answered")
		return nil
	}

	remaining := s.connCount.Load()
	logger.Warn("HTTP shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
		remaining, s.config.ShutdownTimeout)

	s.forceCloseConnections()

	// Jobs on closed sockets fail fast; give them one more period to exit.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer drainCancel()
	if err := s.pool.Stop(drainCtx); err != nil {
		logger.Error("HTTP workers did not exit after force-close: %v", err)
	}

	return fmt.Errorf("HTTP shutdown timeout: %d connections force-closed", remaining)
}

// forceCloseConnections closes every tracked socket and cancels the request
// context so handlers blocked in the store abort too.
//
// Thread safety:
// Safe to call during shutdown. Uses sync.Map for lock-free iteration.
func (s *HTTPAdapter) forceCloseConnections() {
	logger.Info("Force-closing active HTTP connections")

	s.cancelRequests()

	closedCount := 0
	s.activeConnections.Range(func(key, value any) bool {
		id := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("[%s] Error force-closing connection: %v", id, err)
		} else {
			closedCount++
			s.metrics.RecordConnectionForceClosed()
			logger.Debug("[%s] Force-closed connection", id)
		}
		return true
	})

	if closedCount == 0 {
		logger.Debug("No connections to force-close")
	} else {
		logger.Info("Force-closed %d connection(s)", closedCount)
	}
}

// Stop initiates graceful shutdown of the HTTP server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Serve(). It waits for the worker pool to drain until ctx ends.
//
// Returns:
//   - nil on successful graceful shutdown
//   - ctx.Err() if ctx ended before every connection was answered
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		ctx = context.Background()
	}

	activeCount := s.connCount.Load()
	logger.Info("HTTP graceful shutdown: waiting for %d connection(s) (context timeout)", activeCount)

	if err := s.pool.Stop(ctx); err != nil {
		remaining := s.connCount.Load()
		logger.Warn("HTTP shutdown context cancelled: %d connection(s) still active: %v",
			remaining, err)
		return err
	}

	logger.Info("HTTP graceful shutdown complete: all connections answered")
	return nil
}

// logMetrics periodically logs connection and pool load.
//
// The goroutine exits when the context is cancelled.
func (s *HTTPAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			depth := s.pool.QueueDepth()
			s.metrics.SetQueueDepth(depth)
			logger.Info("HTTP metrics: active_connections=%d queue_depth=%d busy_workers=%d/%d",
				s.connCount.Load(), depth, s.pool.Busy(), s.pool.Size())
		}
	}
}

// GetActiveConnections returns the number of accepted connections not yet
// closed, whether queued or being served.
//
// Thread safety:
// Safe to call concurrently. Uses atomic operations.
func (s *HTTPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Port returns the bound TCP port once listening, otherwise the configured one.
func (s *HTTPAdapter) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	_, port, err := net.SplitHostPort(s.config.Address)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

// Protocol returns "HTTP" as the protocol identifier.
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}
