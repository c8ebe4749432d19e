package bucket

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Filestate/internal/core/checksum"
)

func TestLocalBackup(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(filepath.Join(dir, "bucket"))
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}

	content := []byte("precious bytes")
	digest, err := b.Backup("/etc/motd", content)
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if digest != checksum.Bytes(content) {
		t.Errorf("digest = %q, want %q", digest, checksum.Bytes(content))
	}

	stored, err := os.ReadFile(filepath.Join(dir, "bucket", digest[:2], digest))
	if err != nil {
		t.Fatalf("stored entry unreadable: %v", err)
	}
	if string(stored) != string(content) {
		t.Errorf("stored content = %q, want %q", stored, content)
	}
}

func TestLocalBackupDedupes(t *testing.T) {
	b, err := NewLocal(filepath.Join(t.TempDir(), "bucket"))
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}

	content := []byte("same content")
	first, err := b.Backup("/a", content)
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	second, err := b.Backup("/b", content)
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if first != second {
		t.Errorf("digests differ for identical content: %s vs %s", first, second)
	}
}

func TestNewLocalEmptyDir(t *testing.T) {
	if _, err := NewLocal(""); err == nil {
		t.Error("expected error for empty bucket directory")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Lookup("main"); ok {
		t.Error("Lookup on empty registry should miss")
	}

	b, err := NewLocal(filepath.Join(t.TempDir(), "bucket"))
	if err != nil {
		t.Fatalf("NewLocal() error: %v", err)
	}
	reg.Register("main", b)

	if _, ok := reg.Lookup("main"); !ok {
		t.Error("Lookup should find registered bucket")
	}
}
