// Package fs implements a filesystem-backed FileStore for DittoHTTP.
//
// Files are stored directly under a root directory using the request name
// as the file name, so the directory can be inspected and pre-populated with
// ordinary tools. This is the store behind the "--directory" flag.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/marmos91/dittohttp/pkg/content"
)

// FSFileStore implements content.FileStore on the local filesystem.
//
// Thread Safety:
// Reads go straight to the OS. Writes go to a temporary file in the same
// directory that is then renamed over the target, so a concurrent reader
// sees either the old or the new contents, never a partial file. Concurrent
// writers to the same name race on the rename: last writer wins.
type FSFileStore struct {
	basePath string
	closed   atomic.Bool
}

// NewFSFileStore creates a filesystem store rooted at basePath.
//
// The directory is created with permissions 0755 if it does not exist.
//
// Parameters:
//   - ctx: Context for cancellation
//   - basePath: Root directory holding the files
//
// Returns:
//   - *FSFileStore: Ready to use store
//   - error: If the directory cannot be created or ctx is cancelled
func NewFSFileStore(ctx context.Context, basePath string) (*FSFileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	return &FSFileStore{basePath: abs}, nil
}

// BasePath returns the absolute root directory of the store.
func (s *FSFileStore) BasePath() string {
	return s.basePath
}

// getFilePath validates name and returns its full path.
func (s *FSFileStore) getFilePath(name string) (string, error) {
	if err := content.ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, name), nil
}

// ReadFile returns the contents of basePath/name.
//
// A missing file, or a name that resolves to a directory, is reported as
// content.ErrFileNotFound.
func (s *FSFileStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if s.closed.Load() {
		return nil, content.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.getFilePath(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file %s: %w", name, content.ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("file %s is a directory: %w", name, content.ErrFileNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file %s: %w", name, content.ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// WriteFile atomically creates or replaces basePath/name with data.
func (s *FSFileStore) WriteFile(ctx context.Context, name string, data []byte) error {
	if s.closed.Load() {
		return content.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.getFilePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, ".dittohttp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Close marks the store closed. Files on disk are left untouched.
func (s *FSFileStore) Close() error {
	s.closed.Store(true)
	return nil
}
