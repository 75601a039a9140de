package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
)

// StoreTestSuite is a conformance test suite for FileStore implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, filesystem, BadgerDB, S3).
//
// Usage:
//
//	func TestMyFileStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.FileStore {
//	            return mystore.New(t.TempDir())
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh FileStore for each test. The suite closes
	// the store when the test finishes.
	NewStore func(t *testing.T) content.FileStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("NameValidation", suite.RunNameTests)
	t.Run("Concurrency", suite.RunConcurrencyTests)
}

// newStore creates a store and registers its Close with t.Cleanup.
func (suite *StoreTestSuite) newStore(t *testing.T) content.FileStore {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
