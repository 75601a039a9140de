package metrics

import "time"

// HTTPMetrics provides observability for the HTTP adapter.
//
// Implementations collect metrics about requests, connection lifecycle,
// the worker pool queue and throughput. This interface is optional - if not
// provided to the HTTP adapter, a no-op implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewHTTPMetrics()
//	adapter := http.New(config, m)
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type HTTPMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - operation: Dispatched operation (e.g., "GET_ECHO", "POST_FILES")
	//   - status: Response status code actually sent
	//   - duration: Time from first byte read to response written
	RecordRequest(operation string, status int, duration time.Duration)

	// RecordBytesTransferred records request or response bytes.
	//
	// Parameters:
	//   - direction: "in" (request body) or "out" (encoded response)
	//   - bytes: Number of bytes
	RecordBytesTransferred(direction string, bytes int64)

	// SetActiveConnections updates the number of connections being served.
	SetActiveConnections(count int32)

	// SetQueueDepth updates the number of connections waiting for a worker.
	SetQueueDepth(depth int)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed increments the counter of connections
	// closed by the adapter after the shutdown timeout.
	RecordConnectionForceClosed()

	// RecordRateLimited increments the counter of accepts delayed by the
	// rate limiter.
	RecordRateLimited()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

// noopHTTPMetrics is a no-op implementation of HTTPMetrics with zero overhead.
type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(string, int, time.Duration) {}
func (noopHTTPMetrics) RecordBytesTransferred(string, int64)     {}
func (noopHTTPMetrics) SetActiveConnections(int32)               {}
func (noopHTTPMetrics) SetQueueDepth(int)                        {}
func (noopHTTPMetrics) RecordConnectionAccepted()                {}
func (noopHTTPMetrics) RecordConnectionClosed()                  {}
func (noopHTTPMetrics) RecordConnectionForceClosed()             {}
func (noopHTTPMetrics) RecordRateLimited()                       {}
