package resource

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Mode converges the permission bits, represented throughout as octal
// strings without a leading zero ("644", "1777"). A desired mode on a
// directory is widened so every triad that can read can also traverse;
// the fix-up happens once per assignment.
type Mode struct {
	base
	fixed bool
}

func newMode(res *FileResource) *Mode {
	return &Mode{base: newBase(res)}
}

func (s *Mode) Kind() domain.StateKind { return domain.KindMode }

// Assign parses and normalizes the desired mode. Values with a leading
// zero are accepted and stored without it.
func (s *Mode) Assign(rc *Context, v any) error {
	raw, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: invalid mode value %v", domain.ErrValidation, v)
	}

	n, err := strconv.ParseUint(raw, 8, 32)
	if err != nil || n > 0o7777 {
		return fmt.Errorf("%w: invalid mode value %q", domain.ErrValidation, raw)
	}
	s.should = domain.Set(strconv.FormatUint(n, 8))
	s.fixed = false
	return nil
}

// Retrieve reads the current permission bits, fixing up the desired
// value first when the entry turns out to be a directory
func (s *Mode) Retrieve(rc *Context) error {
	info, ok := s.res.StatInfo()
	if !ok {
		s.is = domain.Unknown()
		return nil
	}
	if info.IsDir() {
		s.fixupForDir()
	}
	perm := uint64(info.Mode().Perm())
	if info.Mode()&os.ModeSticky != 0 {
		perm |= 0o1000
	}
	if info.Mode()&os.ModeSetgid != 0 {
		perm |= 0o2000
	}
	if info.Mode()&os.ModeSetuid != 0 {
		perm |= 0o4000
	}
	s.is = domain.Set(strconv.FormatUint(perm, 8))
	return nil
}

// Sync applies the desired bits. An absent path is left to the
// existence state, which folds the mode into creation.
func (s *Mode) Sync(rc *Context) (domain.Event, error) {
	if _, ok := s.res.StatInfo(); !ok {
		rc.Log.Debug("mode deferred, path absent", "path", s.res.Path())
		return domain.EventNone, nil
	}
	if !s.should.IsSet() {
		return domain.EventNone, nil
	}
	// the entry may have been created earlier in this pass
	if err := s.Retrieve(rc); err != nil {
		return domain.EventNone, err
	}
	if s.base.InSync() {
		return domain.EventNone, nil
	}
	n, err := strconv.ParseUint(s.should.String(), 8, 32)
	if err != nil {
		return domain.EventNone, fmt.Errorf("%w: mode %q", domain.ErrInternal, s.should.String())
	}
	if err := os.Chmod(s.res.Path(), permBits(n)); err != nil {
		return domain.EventNone, fmt.Errorf("%w: chmod %s: %v", domain.ErrIO, s.res.Path(), err)
	}
	s.res.InvalidateStat()
	s.is = s.should
	return domain.EventInodeChanged, nil
}

// creationMode returns the desired bits as an os.FileMode for a fresh
// entry of the given kind, with the directory fix-up applied
func (s *Mode) creationMode(kind domain.EntryKind) os.FileMode {
	if kind == domain.EntryDirectory {
		s.fixupForDir()
	}
	n, err := strconv.ParseUint(s.should.String(), 8, 32)
	if err != nil {
		if kind == domain.EntryDirectory {
			return 0o755
		}
		return 0o644
	}
	return permBits(n)
}

// fixupForDir sets the execute bit of every triad whose read bit is
// set, once per assignment
func (s *Mode) fixupForDir() {
	if s.fixed || !s.should.IsSet() {
		return
	}
	s.fixed = true
	n, err := strconv.ParseUint(s.should.String(), 8, 32)
	if err != nil {
		return
	}
	for _, shift := range []uint{6, 3, 0} {
		if n&(4<<shift) != 0 {
			n |= 1 << shift
		}
	}
	s.should = domain.Set(strconv.FormatUint(n, 8))
}

// permBits converts a parsed octal value into os.FileMode with the
// special bits mapped to their Go flags
func permBits(n uint64) os.FileMode {
	mode := os.FileMode(n & 0o777)
	if n&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	if n&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if n&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	return mode
}
