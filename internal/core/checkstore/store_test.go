package checkstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Filestate/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundtrip(t *testing.T) {
	store := openStore(t)

	if err := store.Set("/etc/motd", domain.ChecksumMD5, "abc123"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, found, err := store.Get("/etc/motd", domain.ChecksumMD5)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if value != "abc123" {
		t.Errorf("Get() = %q, want %q", value, "abc123")
	}
}

func TestStoreMissing(t *testing.T) {
	store := openStore(t)

	_, found, err := store.Get("/never/recorded", domain.ChecksumMD5)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if found {
		t.Error("Get() found = true for unrecorded path")
	}
}

func TestStoreKeyedByChecktype(t *testing.T) {
	store := openStore(t)

	if err := store.Set("/etc/motd", domain.ChecksumMD5, "full"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set("/etc/motd", domain.ChecksumMD5Lite, "lite"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, found, err := store.Get("/etc/motd", domain.ChecksumMD5Lite)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v", found, err)
	}
	if value != "lite" {
		t.Errorf("Get(md5lite) = %q, want %q", value, "lite")
	}
}

func TestStoreOverwrite(t *testing.T) {
	store := openStore(t)

	if err := store.Set("/etc/motd", domain.ChecksumMD5, "first"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Set("/etc/motd", domain.ChecksumMD5, "second"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, _, err := store.Get("/etc/motd", domain.ChecksumMD5)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if value != "second" {
		t.Errorf("Get() = %q, want %q", value, "second")
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := store.Set("/etc/motd", domain.ChecksumMD5, "abc"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	store.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("re-Open() error: %v", err)
	}
	defer reopened.Close()

	value, found, err := reopened.Get("/etc/motd", domain.ChecksumMD5)
	if err != nil || !found {
		t.Fatalf("Get() after reopen = %v, %v", found, err)
	}
	if value != "abc" {
		t.Errorf("Get() after reopen = %q, want %q", value, "abc")
	}
}

func TestOpenCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(dir, "filestate.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
