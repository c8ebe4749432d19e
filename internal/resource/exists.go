package resource

import (
	"fmt"
	"os"
	"strings"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Existence converges whether the path exists and as what. It is the
// only state that creates entries, so it runs first in the sync order
// and absorbs a pending mode into the creation call.
type Existence struct {
	base
}

func newExistence(res *FileResource) *Existence {
	return &Existence{base: newBase(res)}
}

func (s *Existence) Kind() domain.StateKind { return domain.KindExistence }

// Assign normalizes the ensure value. "false" disables management with
// rollback semantics, "none" disables it entirely; the negative aliases
// are matched before the single-letter prefixes so "false" never reads
// as "file".
func (s *Existence) Assign(rc *Context, v any) error {
	switch val := v.(type) {
	case bool:
		if val {
			s.should = domain.Set(string(domain.EntryFile))
		} else {
			s.should = domain.Rollback()
		}
		return nil
	case string:
		lower := strings.ToLower(val)
		switch {
		case lower == "false":
			s.should = domain.Rollback()
		case lower == "none":
			s.should = domain.Set("none")
		case lower == "true" || strings.HasPrefix(lower, "f"):
			s.should = domain.Set(string(domain.EntryFile))
		case strings.HasPrefix(lower, "d"):
			s.should = domain.Set(string(domain.EntryDirectory))
		default:
			return fmt.Errorf("%w: invalid ensure value %q", domain.ErrValidation, val)
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid ensure value %v", domain.ErrValidation, v)
	}
}

// Retrieve records the entry kind found at the path. Absence is handled
// by the resource forcing every state unknown, so this only runs when
// something is there.
func (s *Existence) Retrieve(rc *Context) error {
	info, ok := s.res.StatInfo()
	if !ok {
		s.is = domain.Unknown()
		return nil
	}
	s.is = domain.Set(string(entryKindOf(info)))
	return nil
}

// InSync treats rollback as satisfied by absence and "none" as
// satisfied by anything
func (s *Existence) InSync() bool {
	if s.should.IsRollback() {
		return s.is.IsUnknown()
	}
	if s.should.IsSet() && s.should.String() == "none" {
		return true
	}
	return s.base.InSync()
}

// Sync creates the entry, or for rollback removes one we are certain
// carries no content
func (s *Existence) Sync(rc *Context) (domain.Event, error) {
	if s.should.IsRollback() {
		return s.rollback(rc)
	}
	if !s.should.IsSet() || s.should.String() == "none" {
		return domain.EventNone, nil
	}

	mode := s.creationMode()
	switch domain.EntryKind(s.should.String()) {
	case domain.EntryFile:
		f, err := os.OpenFile(s.res.Path(), os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
		if err != nil {
			return domain.EventNone, fmt.Errorf("%w: creating %s: %v", domain.ErrIO, s.res.Path(), err)
		}
		f.Close()
		// chmod again so the process umask cannot narrow the mode
		if err := os.Chmod(s.res.Path(), mode); err != nil {
			return domain.EventNone, fmt.Errorf("%w: setting mode on %s: %v", domain.ErrIO, s.res.Path(), err)
		}
		s.res.InvalidateStat()
		s.is = s.should
		return domain.EventFileCreated, nil

	case domain.EntryDirectory:
		if err := os.Mkdir(s.res.Path(), mode); err != nil {
			return domain.EventNone, fmt.Errorf("%w: creating directory %s: %v", domain.ErrIO, s.res.Path(), err)
		}
		if err := os.Chmod(s.res.Path(), mode); err != nil {
			return domain.EventNone, fmt.Errorf("%w: setting mode on %s: %v", domain.ErrIO, s.res.Path(), err)
		}
		s.res.InvalidateStat()
		s.is = s.should
		return domain.EventDirectoryCreated, nil

	default:
		return domain.EventNone, fmt.Errorf("%w: cannot create entry kind %q", domain.ErrInternal, s.should.String())
	}
}

// creationMode picks the permission for a new entry: a pending mode
// assignment when one exists (the mode state is then dropped since the
// creation satisfies it), otherwise 644 for files and 755 for
// directories
func (s *Existence) creationMode() os.FileMode {
	kind := domain.EntryKind(s.should.String())
	if ms := s.res.modeState(); ms != nil && ms.Should().IsSet() {
		mode := ms.creationMode(kind)
		s.res.RemoveState(domain.KindMode)
		return mode
	}
	if kind == domain.EntryDirectory {
		return 0o755
	}
	return 0o644
}

// rollback removes the entry only when it is demonstrably ours to
// remove: an absent path is already done, and anything that has grown
// content is left alone
func (s *Existence) rollback(rc *Context) (domain.Event, error) {
	info, ok := s.res.StatInfo()
	if !ok {
		return domain.EventNone, nil
	}
	if !info.IsDir() && info.Size() != 0 {
		return domain.EventNone, fmt.Errorf("%w: refusing to remove %s: not empty", domain.ErrIntegrity, s.res.Path())
	}
	if err := os.Remove(s.res.Path()); err != nil {
		return domain.EventNone, fmt.Errorf("%w: removing %s: %v", domain.ErrIO, s.res.Path(), err)
	}
	rc.Log.Info("rolled back", "path", s.res.Path())
	s.res.InvalidateStat()
	s.is = domain.Unknown()
	return domain.EventNone, nil
}
