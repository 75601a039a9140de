// Package badger implements a BadgerDB-backed FileStore.
//
// Each file is a single key/value pair:
//
//	key:   "file:" + name
//	value: file contents
//
// BadgerDB gives crash-safe, transactional writes without any directory
// layout on disk, which makes this store a good fit for many small files.
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittohttp/pkg/content"
)

// keyPrefix namespaces file entries inside the database.
const keyPrefix = "file:"

// BadgerFileStore implements content.FileStore on BadgerDB.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use. Concurrent writes to
// the same key are serialised by BadgerDB: last commit wins.
type BadgerFileStore struct {
	db *badgerdb.DB
}

// BadgerFileStoreConfig contains configuration for the BadgerDB file store.
type BadgerFileStoreConfig struct {
	// DBPath is the directory holding the database files.
	// Required unless InMemory is set.
	DBPath string

	// InMemory keeps the whole database in memory (nothing on disk).
	InMemory bool
}

// NewBadgerFileStore opens (or creates) the database described by config.
//
// Parameters:
//   - ctx: Context for cancellation (checked before opening)
//   - config: Database location
//
// Returns:
//   - *BadgerFileStore: Ready to use store
//   - error: If the database cannot be opened or ctx is cancelled
func NewBadgerFileStore(ctx context.Context, config BadgerFileStoreConfig) (*BadgerFileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badgerdb.Options
	if config.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger db_path is required")
		}
		opts = badgerdb.DefaultOptions(config.DBPath)
	}
	opts = opts.WithLoggingLevel(badgerdb.WARNING)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerFileStore{db: db}, nil
}

func fileKey(name string) []byte {
	return []byte(keyPrefix + name)
}

// ReadFile returns the value stored under the file's key.
func (s *BadgerFileStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := content.ValidateName(name); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(fileKey(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, fmt.Errorf("file %s: %w", name, content.ErrFileNotFound)
		}
		if errors.Is(err, badgerdb.ErrDBClosed) {
			return nil, content.ErrStoreClosed
		}
		return nil, fmt.Errorf("failed to read file from BadgerDB: %w", err)
	}

	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// WriteFile stores data under the file's key in a single transaction.
func (s *BadgerFileStore) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateName(name); err != nil {
		return err
	}

	value := make([]byte, len(data))
	copy(value, data)

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(fileKey(name), value)
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrDBClosed) {
			return content.ErrStoreClosed
		}
		return fmt.Errorf("failed to write file to BadgerDB: %w", err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerFileStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}
