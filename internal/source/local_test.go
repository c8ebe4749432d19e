package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Ning0612/Filestate/internal/core/checksum"
	"github.com/Ning0612/Filestate/internal/domain"
)

func TestLocalDescribeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	content := []byte("hello")
	if err := os.WriteFile(path, content, 0640); err != nil {
		t.Fatalf("write: %v", err)
	}

	attrs, err := NewLocal().Describe(context.Background(), path)
	if err != nil {
		t.Fatalf("Describe() error: %v", err)
	}

	if attrs.Kind != domain.EntryFile {
		t.Errorf("Kind = %q, want file", attrs.Kind)
	}
	if attrs.Mode != "640" {
		t.Errorf("Mode = %q, want 640", attrs.Mode)
	}
	if attrs.Checksum != checksum.Bytes(content) {
		t.Errorf("Checksum = %q, want %q", attrs.Checksum, checksum.Bytes(content))
	}
	if attrs.CheckType != domain.ChecksumMD5 {
		t.Errorf("CheckType = %q, want md5", attrs.CheckType)
	}
	if attrs.Owner == "" || attrs.Group == "" {
		t.Errorf("ownership not reported: owner=%q group=%q", attrs.Owner, attrs.Group)
	}
}

func TestLocalDescribeDirectory(t *testing.T) {
	dir := t.TempDir()

	attrs, err := NewLocal().Describe(context.Background(), dir)
	if err != nil {
		t.Fatalf("Describe() error: %v", err)
	}
	if attrs.Kind != domain.EntryDirectory {
		t.Errorf("Kind = %q, want directory", attrs.Kind)
	}
	if attrs.Checksum != "" {
		t.Errorf("Checksum = %q, want empty for directory", attrs.Checksum)
	}
}

func TestLocalDescribeMissing(t *testing.T) {
	_, err := NewLocal().Describe(context.Background(), "/no/such/path")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLocalList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "c.txt"), []byte("c"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	listing, err := NewLocal().List(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := "/\tdirectory\n/b.txt\tfile\n/sub\tdirectory\n"
	if listing != want {
		t.Errorf("List(non-recursive) = %q, want %q", listing, want)
	}

	recursive, err := NewLocal().List(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("List(recursive) error: %v", err)
	}
	if !strings.Contains(recursive, "/sub/c.txt\tfile\n") {
		t.Errorf("recursive listing missing descendant: %q", recursive)
	}
}

func TestLocalListFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	listing, err := NewLocal().List(context.Background(), path, true)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if listing != "/\tfile\n" {
		t.Errorf("List(file) = %q, want only the root record", listing)
	}
}

func TestLocalRetrieve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	content := []byte("raw content, 100% undecoded")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := NewLocal().Retrieve(context.Background(), path)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	// local content is verbatim, the percent sign is not decoded
	if string(got) != string(content) {
		t.Errorf("Retrieve() = %q, want %q", got, content)
	}
}

func TestLocalRetrieveDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewLocal().Retrieve(context.Background(), dir); !errors.Is(err, domain.ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
}
