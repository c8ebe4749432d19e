package resource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Filestate/internal/domain"
	"github.com/Ning0612/Filestate/internal/testutil"
)

func TestDefineValidation(t *testing.T) {
	rc := testContext()
	catalog := NewCatalog()

	if _, err := catalog.Define(rc, "", Options{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty path error = %v, want ErrValidation", err)
	}
	if _, err := catalog.Define(rc, "relative/path", Options{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("relative path error = %v, want ErrValidation", err)
	}
}

func TestDefineUpsert(t *testing.T) {
	rc := testContext()
	catalog := NewCatalog()
	path := filepath.Join(t.TempDir(), "f")

	first, err := catalog.Define(rc, path, Options{Ensure: "file"})
	if err != nil {
		t.Fatalf("Define() error: %v", err)
	}
	second, err := catalog.Define(rc, path, Options{Mode: "644"})
	if err != nil {
		t.Fatalf("Define() error: %v", err)
	}

	if first != second {
		t.Error("re-defining a path must reconfigure the same resource")
	}
	if catalog.Len() != 1 {
		t.Errorf("catalog.Len() = %d, want 1", catalog.Len())
	}
	// both declarations took effect
	if !first.HasState(domain.KindExistence) || !first.HasState(domain.KindMode) {
		t.Error("states from both declarations should be attached")
	}
}

func TestNewChildDerivesPathAndSource(t *testing.T) {
	rc := testContext()
	catalog := NewCatalog()
	srcDir := t.TempDir()
	parentPath := filepath.Join(t.TempDir(), "managed")

	parent, err := catalog.Define(rc, parentPath, Options{Source: srcDir, Recurse: 2})
	if err != nil {
		t.Fatalf("Define() error: %v", err)
	}

	child, err := parent.NewChild(rc, "etc", nil)
	if err != nil {
		t.Fatalf("NewChild() error: %v", err)
	}

	if child.Path() != filepath.Join(parentPath, "etc") {
		t.Errorf("child path = %q", child.Path())
	}
	if child.Params().Source != srcDir+"/etc" {
		t.Errorf("child source = %q, want %s/etc", child.Params().Source, srcDir)
	}
	if got := child.Params().Recurse; got.Mode != RecurseDepth || got.Depth != 1 {
		t.Errorf("child recurse = %+v, want depth 1", got)
	}
	if !child.HasState(domain.KindSource) {
		t.Error("child should carry a source state")
	}
	if child.Parent() != parentPath {
		t.Errorf("child parent = %q, want %q", child.Parent(), parentPath)
	}
	if catalog.Get(child.Path()) != child {
		t.Error("child should live in the catalog arena")
	}
}

func TestNewChildIdempotent(t *testing.T) {
	rc := testContext()
	catalog := NewCatalog()
	parentPath := filepath.Join(t.TempDir(), "managed")

	parent, err := catalog.Define(rc, parentPath, Options{Recurse: true})
	if err != nil {
		t.Fatalf("Define() error: %v", err)
	}

	first, err := parent.NewChild(rc, "a", nil)
	if err != nil {
		t.Fatalf("NewChild() error: %v", err)
	}
	second, err := parent.NewChild(rc, "a", nil)
	if err != nil {
		t.Fatalf("NewChild() error: %v", err)
	}

	if first != second {
		t.Error("rediscovering a child must return the existing resource")
	}
	if len(parent.Children()) != 1 {
		t.Errorf("children = %v, want a single entry", parent.Children())
	}
	if catalog.Len() != 2 {
		t.Errorf("catalog.Len() = %d, want 2", catalog.Len())
	}
}

func TestNewChildRejectsBadNames(t *testing.T) {
	rc := testContext()
	catalog := NewCatalog()
	parent, err := catalog.Define(rc, filepath.Join(t.TempDir(), "managed"), Options{})
	if err != nil {
		t.Fatalf("Define() error: %v", err)
	}

	for _, name := range []string{"", ".", "..", "a/b"} {
		if _, err := parent.NewChild(rc, name, nil); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("NewChild(%q) error = %v, want ErrValidation", name, err)
		}
	}
}

func TestRecurseEnumeratesLocalChildren(t *testing.T) {
	rc := testContext()
	dir := t.TempDir()
	testutil.CreateTestFile(t, dir, "one.txt", []byte("1"))
	testutil.CreateTestFile(t, dir, "two.txt", []byte("2"))
	testutil.CreateTestDir(t, dir, "sub")

	res := defineOne(t, rc, dir, Options{Recurse: 1})
	if err := res.Retrieve(rc); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}

	if len(res.Children()) != 3 {
		t.Errorf("children = %v, want 3 entries", res.Children())
	}
	for _, child := range res.Children() {
		got := res.catalog.Get(child)
		if got == nil {
			t.Errorf("child %s not in catalog", child)
			continue
		}
		if got.Params().Recurse.Active() {
			t.Errorf("child %s should have exhausted the recurse depth", child)
		}
	}
}

func TestRecurseOffDiscoversNothing(t *testing.T) {
	rc := testContext()
	dir := t.TempDir()
	testutil.CreateTestFile(t, dir, "one.txt", []byte("1"))

	res := defineOne(t, rc, dir, Options{})
	if err := res.Retrieve(rc); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(res.Children()) != 0 {
		t.Errorf("children = %v, want none without recurse", res.Children())
	}
}

func TestRetrieveAbsentForcesUnknown(t *testing.T) {
	rc := testContext()
	path := filepath.Join(t.TempDir(), "ghost")

	res := defineOne(t, rc, path, Options{Ensure: "file", Mode: "644"})
	if err := res.Retrieve(rc); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}

	for _, kind := range []domain.StateKind{domain.KindExistence, domain.KindMode, domain.KindChecksum} {
		st := res.State(kind)
		if st == nil {
			t.Fatalf("state %s missing", kind)
		}
		if !st.Is().IsUnknown() {
			t.Errorf("state %s is = %v, want unknown for absent path", kind, st.Is())
		}
	}
}

func TestStatInfoCaching(t *testing.T) {
	rc := testContext()
	dir := t.TempDir()
	path := testutil.CreateTestFile(t, dir, "f.txt", []byte("x"))
	res := defineOne(t, rc, path, Options{})

	if _, ok := res.StatInfo(); !ok {
		t.Fatal("StatInfo() should find the file")
	}

	// the cache hides a removal until invalidated
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := res.StatInfo(); !ok {
		t.Error("cached stat should still report the file")
	}

	res.InvalidateStat()
	if _, ok := res.StatInfo(); ok {
		t.Error("after invalidation the removal should be visible")
	}
}
