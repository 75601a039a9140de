package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests runs read/write round-trip tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("WriteThenRead", suite.testWriteThenRead)
	t.Run("ReadNotFound", suite.testReadNotFound)
	t.Run("Overwrite", suite.testOverwrite)
	t.Run("EmptyFile", suite.testEmptyFile)
	t.Run("LargeFile", suite.testLargeFile)
	t.Run("BinaryData", suite.testBinaryData)
	t.Run("CallerBufferNotRetained", suite.testCallerBufferNotRetained)
	t.Run("CancelledContext", suite.testCancelledContext)
}

// RunNameTests checks that unsafe names are rejected.
func (suite *StoreTestSuite) RunNameTests(t *testing.T) {
	t.Run("RejectsUnsafeNames", suite.testRejectsUnsafeNames)
	t.Run("AcceptsDottedNames", suite.testAcceptsDottedNames)
}

// RunConcurrencyTests exercises concurrent readers and writers.
func (suite *StoreTestSuite) RunConcurrencyTests(t *testing.T) {
	t.Run("ParallelWritesDistinctNames", suite.testParallelWritesDistinctNames)
	t.Run("ParallelWritesSameName", suite.testParallelWritesSameName)
}

func (suite *StoreTestSuite) testWriteThenRead(t *testing.T) {
	store := suite.newStore(t)
	name := generateTestName("roundtrip")

	mustWriteFile(t, store, name, []byte("hello"))
	assertFileEquals(t, store, name, []byte("hello"))
}

func (suite *StoreTestSuite) testReadNotFound(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.ReadFile(testContext(), generateTestName("missing"))
	require.Error(t, err)
	AssertErrorIs(t, content.ErrFileNotFound, err)
}

func (suite *StoreTestSuite) testOverwrite(t *testing.T) {
	store := suite.newStore(t)
	name := generateTestName("overwrite")

	mustWriteFile(t, store, name, []byte("first version, longer"))
	mustWriteFile(t, store, name, []byte("second"))
	assertFileEquals(t, store, name, []byte("second"))
}

func (suite *StoreTestSuite) testEmptyFile(t *testing.T) {
	store := suite.newStore(t)
	name := generateTestName("empty")

	mustWriteFile(t, store, name, []byte{})
	data := mustReadFile(t, store, name)
	assert.Empty(t, data)
}

func (suite *StoreTestSuite) testLargeFile(t *testing.T) {
	store := suite.newStore(t)
	name := generateTestName("large")
	data := generateTestData(2 * 1024 * 1024)

	mustWriteFile(t, store, name, data)
	assertFileEquals(t, store, name, data)
}

func (suite *StoreTestSuite) testBinaryData(t *testing.T) {
	store := suite.newStore(t)
	name := generateTestName("binary")
	data := []byte{0x00, 0xff, 0x0d, 0x0a, 0x1f, 0x8b}

	mustWriteFile(t, store, name, data)
	assertFileEquals(t, store, name, data)
}

func (suite *StoreTestSuite) testCallerBufferNotRetained(t *testing.T) {
	store := suite.newStore(t)
	name := generateTestName("aliasing")
	data := []byte("original")

	mustWriteFile(t, store, name, data)
	copy(data, "XXXXXXXX")
	assertFileEquals(t, store, name, []byte("original"))
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WriteFile(ctx, generateTestName("cancelled"), []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.ReadFile(ctx, generateTestName("cancelled"))
	assert.ErrorIs(t, err, context.Canceled)
}

func (suite *StoreTestSuite) testRejectsUnsafeNames(t *testing.T) {
	store := suite.newStore(t)

	for _, name := range []string{"", ".", "..", "a/b", "../escape", `a\b`, "nul\x00byte"} {
		err := store.WriteFile(testContext(), name, []byte("x"))
		AssertErrorIs(t, content.ErrInvalidName, err)

		_, err = store.ReadFile(testContext(), name)
		AssertErrorIs(t, content.ErrInvalidName, err)
	}
}

func (suite *StoreTestSuite) testAcceptsDottedNames(t *testing.T) {
	store := suite.newStore(t)

	for _, name := range []string{"a.txt", ".hidden", "..double", "file.tar.gz"} {
		mustWriteFile(t, store, name, []byte(name))
		assertFileEquals(t, store, name, []byte(name))
	}
}

func (suite *StoreTestSuite) testParallelWritesDistinctNames(t *testing.T) {
	store := suite.newStore(t)
	const n = 16

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := generateTestName(fmt.Sprintf("parallel-%d", i))
			errs <- store.WriteFile(testContext(), name, []byte(name))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for i := 0; i < n; i++ {
		name := generateTestName(fmt.Sprintf("parallel-%d", i))
		assertFileEquals(t, store, name, []byte(name))
	}
}

func (suite *StoreTestSuite) testParallelWritesSameName(t *testing.T) {
	store := suite.newStore(t)
	name := generateTestName("contended")
	const n = 8

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.WriteFile(testContext(), name, []byte(fmt.Sprintf("writer-%d", i)))
		}(i)
	}
	wg.Wait()

	// Last writer wins: the result is one complete value, never a mix.
	data := mustReadFile(t, store, name)
	assert.Regexp(t, `^writer-[0-7]$`, string(data))
}
