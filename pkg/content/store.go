// Package content defines the FileStore abstraction used by the /files
// route, together with the sentinel errors every implementation returns.
//
// Implementations live in sub-packages:
//   - fs:     files under a root directory (the default, "--directory")
//   - memory: an in-process map, for tests and ephemeral servers
//   - badger: a BadgerDB key-value store
//   - s3:     an S3 or S3-compatible bucket
//
// The HTTP layer only ever sees the FileStore interface. Stores are created
// once at startup and shared by every worker, so implementations must be
// safe for concurrent use. Concurrent writes to the same name are not
// serialised: the last writer wins.
package content

import (
	"context"
	"fmt"
	"strings"
)

// FileStore persists whole files addressed by a flat name.
//
// Names are the second path segment of /files/<name>. Implementations must
// reject names that could escape their namespace (see ValidateName) with
// ErrInvalidName.
type FileStore interface {
	// ReadFile returns the full contents of the named file.
	//
	// Returns:
	//   - ErrFileNotFound (wrapped) if the file does not exist
	//   - ErrInvalidName (wrapped) if the name is rejected
	//   - any other error for storage failures
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// WriteFile creates or replaces the named file with data.
	//
	// Returns:
	//   - ErrInvalidName (wrapped) if the name is rejected
	//   - any other error for storage failures
	WriteFile(ctx context.Context, name string, data []byte) error

	// Close releases resources held by the store.
	Close() error
}

// ValidateName checks that name is a single, safe path component.
//
// Rejected: "", ".", "..", and any name containing '/', '\' or NUL.
func ValidateName(name string) error {
	switch name {
	case "", ".", "..":
		return fmt.Errorf("file name %q: %w", name, ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("file name %q: %w", name, ErrInvalidName)
	}
	return nil
}
