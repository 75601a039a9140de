package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	contenttesting "github.com/marmos91/dittohttp/pkg/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFSFileStore runs the complete FileStore test suite
// against the FSFileStore implementation.
func TestFSFileStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.FileStore {
			store, err := NewFSFileStore(context.Background(), t.TempDir())
			require.NoError(t, err)
			return store
		},
	}

	suite.Run(t)
}

func TestFSFileStoreLayout(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesMissingBaseDirectory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "files")
		store, err := NewFSFileStore(ctx, base)
		require.NoError(t, err)
		defer store.Close()

		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("WritesPlainFilesUnderBase", func(t *testing.T) {
		base := t.TempDir()
		store, err := NewFSFileStore(ctx, base)
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.WriteFile(ctx, "hello.txt", []byte("hi")))

		data, err := os.ReadFile(filepath.Join(base, "hello.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hi", string(data))

		entries, err := os.ReadDir(base)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files must not be left behind")
	})

	t.Run("ReadsPrePopulatedFiles", func(t *testing.T) {
		base := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(base, "seed"), []byte("seeded"), 0644))

		store, err := NewFSFileStore(ctx, base)
		require.NoError(t, err)
		defer store.Close()

		data, err := store.ReadFile(ctx, "seed")
		require.NoError(t, err)
		assert.Equal(t, "seeded", string(data))
	})

	t.Run("DirectoryIsNotFound", func(t *testing.T) {
		base := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(base, "sub"), 0755))

		store, err := NewFSFileStore(ctx, base)
		require.NoError(t, err)
		defer store.Close()

		_, err = store.ReadFile(ctx, "sub")
		assert.ErrorIs(t, err, content.ErrFileNotFound)
	})

	t.Run("EmptyBasePathRejected", func(t *testing.T) {
		_, err := NewFSFileStore(ctx, "")
		assert.Error(t, err)
	})

	t.Run("ClosedStoreRejectsCalls", func(t *testing.T) {
		store, err := NewFSFileStore(ctx, t.TempDir())
		require.NoError(t, err)
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.WriteFile(ctx, "x", nil), content.ErrStoreClosed)
		_, err = store.ReadFile(ctx, "x")
		assert.ErrorIs(t, err, content.ErrStoreClosed)
	})
}
