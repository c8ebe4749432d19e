package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Ning0612/Filestate/internal/domain"
)

// TempDir creates a temporary directory for testing
// It returns the directory path and a cleanup function
func TempDir(t *testing.T) (string, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "filestate-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

// CreateTestFile creates a test file with the given content
func CreateTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return path
}

// CreateTestDir creates a subdirectory under dir
func CreateTestDir(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatalf("failed to create test dir: %v", err)
	}

	return path
}

// MemStore is an in-memory checksum store for tests
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (m *MemStore) key(path string, ctype domain.CheckType) string {
	return path + "\x00" + string(ctype)
}

// Get returns the stored value for (path, checktype)
func (m *MemStore) Get(path string, ctype domain.CheckType) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[m.key(path, ctype)]
	return v, ok, nil
}

// Set records the value for (path, checktype)
func (m *MemStore) Set(path string, ctype domain.CheckType, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[m.key(path, ctype)] = value
	return nil
}

// Seed pre-loads a value, as if recorded by an earlier run
func (m *MemStore) Seed(path string, ctype domain.CheckType, value string) {
	m.Set(path, ctype, value)
}
