package content

import "errors"

// ============================================================================
// Standard File Store Errors
// ============================================================================

// These errors give every FileStore implementation a common vocabulary for
// failure conditions. Handlers check for them with errors.Is and map them to
// response statuses.
//
// Usage Pattern:
//
//	data, err := store.ReadFile(ctx, name)
//	if err != nil {
//	    if errors.Is(err, content.ErrFileNotFound) {
//	        return 404
//	    }
//	    return 500
//	}
//
// Error Wrapping:
// Implementations wrap these errors with the offending name:
//
//	return nil, fmt.Errorf("file %s: %w", name, content.ErrFileNotFound)

var (
	// ErrFileNotFound indicates the requested file does not exist.
	//
	// Returned by ReadFile only. WriteFile always creates missing files.
	//
	// Protocol Mapping:
	//   - HTTP: 404 Not Found
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidName indicates the file name is not a single safe path
	// component (empty, ".", "..", or containing a separator).
	//
	// Protocol Mapping:
	//   - HTTP: 400 Bad Request
	ErrInvalidName = errors.New("invalid file name")

	// ErrStoreClosed indicates the store was used after Close.
	//
	// Protocol Mapping:
	//   - HTTP: 500 Internal Server Error
	ErrStoreClosed = errors.New("file store closed")
)
