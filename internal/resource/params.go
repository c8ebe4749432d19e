package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ning0612/Filestate/internal/domain"
)

// DefaultBackupSuffix is appended to a path when backup is enabled
// without a custom suffix or filebucket
const DefaultBackupSuffix = ".puppet-bak"

// Params is the inheritable parameter set of a resource. Children clone
// it during recursion, with the source locator and recurse depth
// rewritten for their own position in the tree.
type Params struct {
	Backup     BackupSpec
	Recurse    RecurseSpec
	Filebucket string
	Source     string
	LinkMaker  bool
	CheckType  domain.CheckType
}

// BucketName returns the filebucket this resource backs up into, or ""
// when suffix-copy backup (or none) applies. An explicit filebucket
// parameter wins over a bucket named through the backup parameter.
func (p Params) BucketName() string {
	if p.Filebucket != "" {
		return p.Filebucket
	}
	return p.Backup.Bucket
}

// BackupSpec describes what happens to existing content before an
// overwrite: nothing, a sibling copy at path+Suffix, or delegation to a
// named filebucket.
type BackupSpec struct {
	Enabled bool
	Suffix  string
	Bucket  string
}

// ParseBackup normalizes the backup configuration value:
// false disables, true selects the default suffix, a string beginning
// with "." is a custom suffix, any other string names a filebucket.
func ParseBackup(v any) (BackupSpec, error) {
	switch val := v.(type) {
	case nil:
		return BackupSpec{}, nil
	case bool:
		if !val {
			return BackupSpec{}, nil
		}
		return BackupSpec{Enabled: true, Suffix: DefaultBackupSuffix}, nil
	case string:
		if val == "" || val == "false" {
			return BackupSpec{}, nil
		}
		if val == "true" {
			return BackupSpec{Enabled: true, Suffix: DefaultBackupSuffix}, nil
		}
		if strings.HasPrefix(val, ".") {
			return BackupSpec{Enabled: true, Suffix: val}, nil
		}
		return BackupSpec{Enabled: true, Bucket: val}, nil
	default:
		return BackupSpec{}, fmt.Errorf("%w: invalid backup value %v", domain.ErrValidation, v)
	}
}

// RecurseMode distinguishes no recursion, bounded depth and the
// infinite marker
type RecurseMode int

const (
	RecurseOff RecurseMode = iota
	RecurseDepth
	RecurseInfinite
)

// RecurseSpec is the resolved recursion request of one resource
type RecurseSpec struct {
	Mode  RecurseMode
	Depth int
}

// ParseRecurse normalizes the recurse configuration value: false
// disables, true or "infinite" recurses without bound, a non-negative
// integer bounds the descent.
func ParseRecurse(v any) (RecurseSpec, error) {
	switch val := v.(type) {
	case nil:
		return RecurseSpec{}, nil
	case bool:
		if val {
			return RecurseSpec{Mode: RecurseInfinite}, nil
		}
		return RecurseSpec{}, nil
	case int:
		if val < 0 {
			return RecurseSpec{}, fmt.Errorf("%w: recurse depth cannot be negative: %d", domain.ErrValidation, val)
		}
		return RecurseSpec{Mode: RecurseDepth, Depth: val}, nil
	case string:
		switch strings.ToLower(val) {
		case "", "false":
			return RecurseSpec{}, nil
		case "true", "inf", "infinite":
			return RecurseSpec{Mode: RecurseInfinite}, nil
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return RecurseSpec{}, fmt.Errorf("%w: invalid recurse value %q", domain.ErrValidation, val)
		}
		return RecurseSpec{Mode: RecurseDepth, Depth: n}, nil
	default:
		return RecurseSpec{}, fmt.Errorf("%w: invalid recurse value %v", domain.ErrValidation, v)
	}
}

// Descend returns the recursion spec a child inherits. Bounded depths
// strictly decrease on each level; boolean and infinite requests pass
// through unchanged.
func (s RecurseSpec) Descend() RecurseSpec {
	if s.Mode == RecurseDepth && s.Depth > 0 {
		return RecurseSpec{Mode: RecurseDepth, Depth: s.Depth - 1}
	}
	return s
}

// Active reports whether this spec permits any further descent
func (s RecurseSpec) Active() bool {
	switch s.Mode {
	case RecurseInfinite:
		return true
	case RecurseDepth:
		return s.Depth > 0
	}
	return false
}
