package metrics

import "time"

// StoreMetrics provides observability for FileStore backends.
type StoreMetrics interface {
	// ObserveOperation records one store call.
	//
	// Parameters:
	//   - backend: Store type ("filesystem", "memory", "badger", "s3")
	//   - operation: "read" or "write"
	//   - duration: Time spent in the store
	//   - err: Error returned by the store, nil on success
	ObserveOperation(backend, operation string, duration time.Duration, err error)

	// RecordBytes records the payload size of a successful call.
	RecordBytes(backend, operation string, bytes int64)
}

// NewNoopStoreMetrics returns a StoreMetrics that discards everything.
func NewNoopStoreMetrics() StoreMetrics {
	return noopStoreMetrics{}
}

type noopStoreMetrics struct{}

func (noopStoreMetrics) ObserveOperation(string, string, time.Duration, error) {}
func (noopStoreMetrics) RecordBytes(string, string, int64)                     {}
