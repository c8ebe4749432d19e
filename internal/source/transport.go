package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Attrs is the metadata tuple a transport reports for one entry
type Attrs struct {
	// Mode is the octal permission string, e.g. "644"
	Mode string

	// Kind is the entry kind (file, directory, link)
	Kind domain.EntryKind

	// Owner and Group are symbolic names when resolvable, numeric ids
	// otherwise
	Owner string
	Group string

	// Checksum is the content fingerprint, empty for directories
	Checksum string

	// CheckType is the strategy Checksum was computed with
	CheckType domain.CheckType
}

// Entry is one record of a transport listing
type Entry struct {
	// Path is relative to the listed root; "/" is the root itself
	Path string

	// Kind is the entry kind
	Kind domain.EntryKind
}

// Transport is the three-operation contract a source tree is served
// through. Local sources and remote file servers both implement it; the
// engine consumes the contract only and never implements transport I/O
// of its own.
type Transport interface {
	// Describe returns the metadata tuple for one path
	Describe(ctx context.Context, path string) (Attrs, error)

	// List returns newline-delimited tab-separated records of
	// (relativePath, kind) for the entry and, when recursive, its
	// whole subtree; otherwise only its immediate children
	List(ctx context.Context, path string, recursive bool) (string, error)

	// Retrieve returns the raw content of a file
	Retrieve(ctx context.Context, path string) ([]byte, error)
}

// ParseListing decodes the wire format of List into entries. Malformed
// records are a transport error; callers rely on every record carrying
// both fields.
func ParseListing(listing string) ([]Entry, error) {
	var entries []Entry
	for _, line := range strings.Split(listing, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: malformed listing record: %q", domain.ErrTransport, line)
		}
		kind := domain.EntryKind(fields[1])
		if !kind.IsValid() {
			return nil, fmt.Errorf("%w: unknown entry kind in listing: %q", domain.ErrTransport, fields[1])
		}
		entries = append(entries, Entry{Path: fields[0], Kind: kind})
	}
	return entries, nil
}
