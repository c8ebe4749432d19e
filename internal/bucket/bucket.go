package bucket

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Ning0612/Filestate/internal/core/checksum"
	"github.com/Ning0612/Filestate/internal/domain"
)

// Bucket is the backup repository a resource can delegate to before its
// content is overwritten. Local and networked implementations share the
// contract; the engine only calls Backup.
type Bucket interface {
	// Backup stores the current content of path and returns the digest
	// it was filed under
	Backup(path string, content []byte) (string, error)
}

// Local stores backups on the local filesystem, addressed by the md5 of
// their content so repeated backups of identical content dedupe to one
// entry.
type Local struct {
	dir string
}

// NewLocal creates a bucket rooted at dir
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: bucket directory cannot be empty", domain.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: create bucket directory %s: %v", domain.ErrIO, dir, err)
	}
	return &Local{dir: dir}, nil
}

// Backup files content under its digest. Write goes through a temp file
// and rename so a crash never leaves a half-written entry under a valid
// digest name.
func (b *Local) Backup(path string, content []byte) (string, error) {
	digest := checksum.Bytes(content)

	sub := filepath.Join(b.dir, digest[:2])
	if err := os.MkdirAll(sub, 0750); err != nil {
		return "", fmt.Errorf("%w: bucket %s: %v", domain.ErrIO, path, err)
	}

	dest := filepath.Join(sub, digest)
	if _, err := os.Stat(dest); err == nil {
		// Identical content already filed
		return digest, nil
	}

	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, content, 0640); err != nil {
		return "", fmt.Errorf("%w: bucket %s: %v", domain.ErrIO, path, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: bucket %s: %v", domain.ErrIO, path, err)
	}

	return digest, nil
}

// Registry maps filebucket names to configured buckets
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]Bucket
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[string]Bucket)}
}

// Register binds a bucket to a name, replacing any earlier one
func (r *Registry) Register(name string, b Bucket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[name] = b
}

// Lookup returns the bucket for a name
func (r *Registry) Lookup(name string) (Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[name]
	return b, ok
}
