package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/adapter"
	"github.com/marmos91/dittohttp/pkg/content"
)

// DefaultStopTimeout bounds adapter shutdown when no timeout is configured.
const DefaultStopTimeout = 30 * time.Second

// ErrAlreadyServed is returned by Serve on every call after the first.
var ErrAlreadyServed = errors.New("server: Serve already called")

// DittoServer manages the lifecycle of protocol adapters that share one
// FileStore.
//
// Lifecycle:
//  1. Creation: New() with the shared store
//  2. Registration: AddAdapter() for each listener
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or the first adapter failure stops
//     every adapter, then the store is closed
//
// Example usage:
//
//	srv := server.New(store, 30*time.Second)
//	if err := srv.AddAdapter(http.New(httpConfig, httpMetrics)); err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type DittoServer struct {
	store       content.FileStore
	stopTimeout time.Duration

	// mu protects adapters and served
	mu       sync.Mutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a DittoServer around store. A non-positive stopTimeout
// falls back to DefaultStopTimeout.
//
// Panics if store is nil (programmer error).
func New(store content.FileStore, stopTimeout time.Duration) *DittoServer {
	if store == nil {
		panic("file store cannot be nil")
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	return &DittoServer{
		store:       store,
		stopTimeout: stopTimeout,
		adapters:    make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter injects the shared store into a and registers it.
//
// Two adapters may not speak the same protocol, and may not share a port
// unless that port is 0 (ephemeral).
//
// Panics if a is nil or Serve() has already been called.
func (s *DittoServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetStore(s.store)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all registered adapters and blocks until ctx is cancelled or
// an adapter fails. Every adapter is stopped and the store is closed before
// Serve returns.
//
// Returns:
//   - ctx.Err() when shutdown was triggered by the context
//   - the failing adapter's error, wrapped with its protocol name
//   - ErrAlreadyServed on a second call
func (s *DittoServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting DittoServer with %d adapter(s)", len(adapters))

	// Buffered so a failing adapter never blocks after Serve stopped listening.
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				logger.Debug("%s adapter stopped gracefully", protocol)
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
				errChan <- adapterError{protocol: protocol}
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		if adapterErr.err != nil {
			logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
				adapterErr.protocol, adapterErr.err)
			shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
		} else {
			logger.Info("Adapter %s exited - initiating shutdown of all adapters", adapterErr.protocol)
		}
	}

	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	if err := s.store.Close(); err != nil {
		logger.Error("Error closing file store: %v", err)
		if shutdownErr == nil {
			shutdownErr = fmt.Errorf("close file store: %w", err)
		}
	}

	logger.Info("DittoServer stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with the error its Serve
// returned. err is nil when the adapter exited cleanly on its own.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters signals every adapter in reverse registration order.
// All Stop calls share one stopTimeout budget; errors are logged and the
// remaining adapters are still stopped.
func (s *DittoServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())

		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stop signal sent", protocol)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *DittoServer) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Store returns the FileStore shared by all adapters.
func (s *DittoServer) Store() content.FileStore {
	return s.store
}
