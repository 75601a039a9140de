package testing

import (
	"errors"
	"testing"

	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// mustWriteFile writes a file and fails the test if it errors.
func mustWriteFile(t *testing.T, store content.FileStore, name string, data []byte) {
	t.Helper()
	err := store.WriteFile(testContext(), name, data)
	require.NoError(t, err, "WriteFile should succeed")
}

// mustReadFile reads a file and fails the test if it errors.
func mustReadFile(t *testing.T, store content.FileStore, name string) []byte {
	t.Helper()
	data, err := store.ReadFile(testContext(), name)
	require.NoError(t, err, "ReadFile should succeed")
	return data
}

// assertFileEquals checks if the stored file matches expected data.
func assertFileEquals(t *testing.T, store content.FileStore, name string, expected []byte) {
	t.Helper()
	actual := mustReadFile(t, store, name)
	assert.Equal(t, expected, actual, "File data mismatch")
}

// generateTestData creates test data of specified size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = byte(i % 256)
	}
	return data
}

// generateTestName generates a test file name.
func generateTestName(name string) string {
	return "test-" + name
}
