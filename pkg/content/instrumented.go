package content

import (
	"context"
	"time"

	"github.com/marmos91/dittohttp/pkg/metrics"
)

// instrumentedStore decorates a FileStore with operation metrics.
type instrumentedStore struct {
	FileStore
	backend string
	metrics metrics.StoreMetrics
}

// Instrument wraps store so every ReadFile/WriteFile is reported to m
// under the given backend label. A nil m returns store unchanged.
func Instrument(store FileStore, backend string, m metrics.StoreMetrics) FileStore {
	if m == nil {
		return store
	}
	return &instrumentedStore{FileStore: store, backend: backend, metrics: m}
}

func (s *instrumentedStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	data, err := s.FileStore.ReadFile(ctx, name)
	s.metrics.ObserveOperation(s.backend, "read", time.Since(start), err)
	if err == nil {
		s.metrics.RecordBytes(s.backend, "read", int64(len(data)))
	}
	return data, err
}

func (s *instrumentedStore) WriteFile(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	err := s.FileStore.WriteFile(ctx, name, data)
	s.metrics.ObserveOperation(s.backend, "write", time.Since(start), err)
	if err == nil {
		s.metrics.RecordBytes(s.backend, "write", int64(len(data)))
	}
	return err
}
