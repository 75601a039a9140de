package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/dittohttp/pkg/content"
)

// MemoryFileStore implements content.FileStore using in-memory storage.
//
// It is designed for:
//   - Testing and development
//   - Ephemeral servers where files need not survive a restart
//
// Characteristics:
//   - Fast: All operations are memory-speed
//   - Volatile: Data lost on restart
//   - Memory-bound: Limited by available RAM
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Data is copied on read
// and write so callers never share buffers with the store.
type MemoryFileStore struct {
	// files holds file contents keyed by name
	files map[string][]byte

	// closed is set by Close; later calls fail with ErrStoreClosed
	closed bool

	mu sync.RWMutex
}

// NewMemoryFileStore creates an empty in-memory store.
//
// Returns an error only if ctx is already cancelled.
func NewMemoryFileStore(ctx context.Context) (*MemoryFileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryFileStore{
		files: make(map[string][]byte),
	}, nil
}

// ReadFile returns a copy of the named file's contents.
func (s *MemoryFileStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := content.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, content.ErrStoreClosed
	}

	data, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", name, content.ErrFileNotFound)
	}

	return bytes.Clone(data), nil
}

// WriteFile stores a copy of data under name, replacing any previous value.
func (s *MemoryFileStore) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateName(name); err != nil {
		return err
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return content.ErrStoreClosed
	}

	s.files[name] = stored
	return nil
}

// Len returns the number of stored files.
func (s *MemoryFileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Close drops all stored files.
func (s *MemoryFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.files = nil
	return nil
}
