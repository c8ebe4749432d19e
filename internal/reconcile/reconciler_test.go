package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ning0612/Filestate/internal/config"
	"github.com/Ning0612/Filestate/internal/core/checksum"
	"github.com/Ning0612/Filestate/internal/domain"
	"github.com/Ning0612/Filestate/internal/resource"
	"github.com/Ning0612/Filestate/internal/testutil"
)

func runOnce(t *testing.T, cfg *config.Config, store resource.ChecksumStore) *Summary {
	t.Helper()

	rc := resource.NewContext(context.Background(), store, nil)
	catalog, err := BuildCatalog(rc, cfg)
	if err != nil {
		t.Fatalf("BuildCatalog() error: %v", err)
	}

	summary, err := New(rc, catalog).Run()
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return summary
}

func eventsOf(s *Summary) []domain.Event {
	var events []domain.Event
	for _, occ := range s.Events {
		events = append(events, occ.Event)
	}
	return events
}

func TestRunCreatesFileWithMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motd")
	cfg := &config.Config{Resources: []config.Resource{
		{Path: path, Ensure: "file", Mode: "600"},
	}}
	store := testutil.NewMemStore()

	summary := runOnce(t, cfg, store)

	if got := eventsOf(summary); len(got) != 1 || got[0] != domain.EventFileCreated {
		t.Errorf("events = %v, want [file_created]", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("managed file missing: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	// the empty file's checksum is recorded for the next run
	if value, found, _ := store.Get(path, domain.ChecksumMD5); !found || value != "0" {
		t.Errorf("store = %q (%v), want \"0\" for empty content", value, found)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motd")
	cfg := &config.Config{Resources: []config.Resource{
		{Path: path, Ensure: "file", Mode: "600"},
	}}
	store := testutil.NewMemStore()

	runOnce(t, cfg, store)
	second := runOnce(t, cfg, store)

	if len(second.Events) != 0 {
		t.Errorf("second run events = %v, want none", second.Events)
	}
}

func TestRunCopiesSource(t *testing.T) {
	srcDir := t.TempDir()
	src := testutil.CreateTestFile(t, srcDir, "origin.txt", []byte("hi"))
	dst := filepath.Join(t.TempDir(), "copy.txt")

	cfg := &config.Config{Resources: []config.Resource{
		{Path: dst, Source: src},
	}}
	store := testutil.NewMemStore()

	summary := runOnce(t, cfg, store)

	content, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if string(content) != "hi" {
		t.Errorf("content = %q, want %q", content, "hi")
	}

	want := checksum.Bytes([]byte("hi"))
	if value, found, _ := store.Get(dst, domain.ChecksumMD5); !found || value != want {
		t.Errorf("store = %q (%v), want %q", value, found, want)
	}

	// the copy creates the file itself, no separate create happens
	if got := eventsOf(summary); len(got) != 1 || got[0] != domain.EventFileChanged {
		t.Errorf("events = %v, want exactly [file_changed]", got)
	}

	// converged: a second run does nothing
	second := runOnce(t, cfg, store)
	if len(second.Events) != 0 {
		t.Errorf("second run events = %v, want none", second.Events)
	}
}

func TestRunRecordsFirstSightingAndDrift(t *testing.T) {
	dir := t.TempDir()
	path := testutil.CreateTestFile(t, dir, "motd", []byte("v1"))
	cfg := &config.Config{Resources: []config.Resource{
		{Path: path, Ensure: "file"},
	}}
	store := testutil.NewMemStore()

	first := runOnce(t, cfg, store)
	if got := eventsOf(first); len(got) != 0 {
		t.Errorf("first run events = %v, want none on first sighting", got)
	}
	want := checksum.Bytes([]byte("v1"))
	if value, found, _ := store.Get(path, domain.ChecksumMD5); !found || value != want {
		t.Fatalf("store = %q (%v), want the first sighting recorded", value, found)
	}

	// content edited between runs
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("edit: %v", err)
	}
	second := runOnce(t, cfg, store)
	if got := eventsOf(second); len(got) != 1 || got[0] != domain.EventFileModified {
		t.Errorf("second run events = %v, want [file_modified]", got)
	}
	if value, _, _ := store.Get(path, domain.ChecksumMD5); value != checksum.Bytes([]byte("v2")) {
		t.Errorf("store = %q, want the fresh observation", value)
	}
}

func TestRunBacksUpWithSuffix(t *testing.T) {
	srcDir := t.TempDir()
	src := testutil.CreateTestFile(t, srcDir, "origin.txt", []byte("new content"))
	dstDir := t.TempDir()
	dst := testutil.CreateTestFile(t, dstDir, "target.txt", []byte("old content"))

	cfg := &config.Config{Resources: []config.Resource{
		{Path: dst, Source: src, Backup: ".bak"},
	}}

	runOnce(t, cfg, testutil.NewMemStore())

	content, err := os.ReadFile(dst)
	if err != nil || string(content) != "new content" {
		t.Fatalf("target = %q (%v), want new content", content, err)
	}

	backup, err := os.ReadFile(dst + ".bak")
	if err != nil {
		t.Fatalf("backup copy missing: %v", err)
	}
	if string(backup) != "old content" {
		t.Errorf("backup = %q, want the replaced content", backup)
	}
}

func TestRunBacksUpToFilebucket(t *testing.T) {
	srcDir := t.TempDir()
	src := testutil.CreateTestFile(t, srcDir, "origin.txt", []byte("new content"))
	dstDir := t.TempDir()
	dst := testutil.CreateTestFile(t, dstDir, "target.txt", []byte("old content"))
	bucketDir := filepath.Join(t.TempDir(), "bucket")

	cfg := &config.Config{
		Filebuckets: []config.Filebucket{{Name: "main", Path: bucketDir}},
		Resources: []config.Resource{
			{Path: dst, Source: src, Backup: "main"},
		},
	}

	runOnce(t, cfg, testutil.NewMemStore())

	digest := checksum.Bytes([]byte("old content"))
	stored, err := os.ReadFile(filepath.Join(bucketDir, digest[:2], digest))
	if err != nil {
		t.Fatalf("bucket entry missing: %v", err)
	}
	if string(stored) != "old content" {
		t.Errorf("bucket entry = %q, want the replaced content", stored)
	}
}

func TestRunRecursesIntoSourceTree(t *testing.T) {
	srcDir := t.TempDir()
	testutil.CreateTestFile(t, srcDir, "top.txt", []byte("top"))
	sub := testutil.CreateTestDir(t, srcDir, "sub")
	testutil.CreateTestFile(t, sub, "deep.txt", []byte("deep"))

	dst := filepath.Join(t.TempDir(), "mirror")
	cfg := &config.Config{Resources: []config.Resource{
		{Path: dst, Source: srcDir, Recurse: true},
	}}

	summary := runOnce(t, cfg, testutil.NewMemStore())

	if summary.Resources != 4 {
		t.Errorf("resources visited = %d, want 4 (root, top.txt, sub, deep.txt)", summary.Resources)
	}

	for path, want := range map[string]string{
		filepath.Join(dst, "top.txt"):         "top",
		filepath.Join(dst, "sub", "deep.txt"): "deep",
	} {
		content, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("mirrored file %s missing: %v", path, err)
			continue
		}
		if string(content) != want {
			t.Errorf("%s = %q, want %q", path, content, want)
		}
	}
}

func TestRunRecursesBoundedDepth(t *testing.T) {
	srcDir := t.TempDir()
	testutil.CreateTestFile(t, srcDir, "top.txt", []byte("top"))
	sub := testutil.CreateTestDir(t, srcDir, "sub")
	testutil.CreateTestFile(t, sub, "deep.txt", []byte("deep"))

	dst := filepath.Join(t.TempDir(), "mirror")
	cfg := &config.Config{Resources: []config.Resource{
		{Path: dst, Source: srcDir, Recurse: 1},
	}}

	runOnce(t, cfg, testutil.NewMemStore())

	if _, err := os.Stat(filepath.Join(dst, "top.txt")); err != nil {
		t.Errorf("first level entry missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "sub")); err != nil {
		t.Errorf("first level directory missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "sub", "deep.txt")); !os.IsNotExist(err) {
		t.Error("depth 1 must not descend into the second level")
	}
}

func TestPlanReportsWithoutTouching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motd")
	cfg := &config.Config{Resources: []config.Resource{
		{Path: path, Ensure: "file"},
	}}

	rc := resource.NewContext(context.Background(), testutil.NewMemStore(), nil)
	catalog, err := BuildCatalog(rc, cfg)
	if err != nil {
		t.Fatalf("BuildCatalog() error: %v", err)
	}

	pending, err := New(rc, catalog).Plan()
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	found := false
	for _, p := range pending {
		if p.Path == path && p.Attribute == "ensure" && p.Should == "file" {
			found = true
		}
	}
	if !found {
		t.Errorf("pending = %+v, want an ensure entry for %s", pending, path)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("plan must not create anything")
	}
}

func TestRecorderSkipsEmptyEvents(t *testing.T) {
	rec := NewRecorder()
	rec.Record("/a", domain.EventNone)
	rec.Record("/b", domain.EventFileCreated)

	occ := rec.Occurrences()
	if len(occ) != 1 || occ[0].Path != "/b" {
		t.Errorf("occurrences = %+v, want only the real event", occ)
	}
}
