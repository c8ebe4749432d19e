package source

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/Ning0612/Filestate/internal/core/checksum"
	"github.com/Ning0612/Filestate/internal/domain"
)

// Local serves a source tree from the local filesystem. It is rooted at
// "/"; descriptor paths are absolute filesystem paths. Content is
// returned verbatim, never percent-decoded.
type Local struct{}

// NewLocal creates a local transport
func NewLocal() *Local {
	return &Local{}
}

// Describe returns the metadata tuple for one path
func (l *Local) Describe(ctx context.Context, path string) (Attrs, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Attrs{}, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return Attrs{}, fmt.Errorf("%w: describe %s: %v", domain.ErrTransport, path, err)
	}

	attrs := Attrs{
		Mode: strconv.FormatUint(uint64(info.Mode().Perm()), 8),
		Kind: entryKind(info),
	}

	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		attrs.Owner = lookupUser(st.Uid)
		attrs.Group = lookupGroup(st.Gid)
	}

	if attrs.Kind == domain.EntryFile {
		sum, err := checksum.File(path, domain.ChecksumMD5)
		if err != nil {
			return Attrs{}, fmt.Errorf("%w: checksum %s: %v", domain.ErrTransport, path, err)
		}
		attrs.Checksum = sum
		attrs.CheckType = domain.ChecksumMD5
	}

	return attrs, nil
}

// List returns the wire-format listing for the entry at path
func (l *Local) List(ctx context.Context, path string, recursive bool) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: list %s: %v", domain.ErrTransport, path, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/\t%s\n", entryKind(info))

	if info.IsDir() {
		if err := l.listChildren(&b, path, "", recursive); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}

// listChildren appends one record per directory entry, descending when
// recursive. Entries that disappear mid-walk are skipped.
func (l *Local) listChildren(b *strings.Builder, dir, prefix string, recursive bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: list %s: %v", domain.ErrTransport, dir, err)
	}

	// Deterministic listing order regardless of filesystem
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		rel := prefix + "/" + entry.Name()
		fmt.Fprintf(b, "%s\t%s\n", rel, entryKind(info))

		if recursive && info.IsDir() {
			if err := l.listChildren(b, filepath.Join(dir, entry.Name()), rel, true); err != nil {
				return err
			}
		}
	}

	return nil
}

// Retrieve returns the raw content of a file
func (l *Local) Retrieve(ctx context.Context, path string) ([]byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: retrieve %s: %v", domain.ErrTransport, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: retrieve %s: not a file", domain.ErrTransport, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve %s: %v", domain.ErrTransport, path, err)
	}

	return content, nil
}

// entryKind maps a stat result onto the wire vocabulary
func entryKind(info os.FileInfo) domain.EntryKind {
	switch {
	case info.IsDir():
		return domain.EntryDirectory
	case info.Mode()&os.ModeSymlink != 0:
		return domain.EntryLink
	default:
		return domain.EntryFile
	}
}

// lookupUser resolves a uid to a name, falling back to the numeric form
func lookupUser(uid uint32) string {
	id := strconv.FormatUint(uint64(uid), 10)
	if u, err := user.LookupId(id); err == nil {
		return u.Username
	}
	return id
}

// lookupGroup resolves a gid to a name, falling back to the numeric form
func lookupGroup(gid uint32) string {
	id := strconv.FormatUint(uint64(gid), 10)
	if g, err := user.LookupGroupId(id); err == nil {
		return g.Name
	}
	return id
}
