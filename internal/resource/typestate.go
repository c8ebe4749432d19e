package resource

import (
	"fmt"
	"os"

	"github.com/Ning0612/Filestate/internal/domain"
)

// TypeState is a pure observation: it records what kind of entry sits
// at the path so other states and event reporting can consult it. It is
// never configured and never converges anything.
type TypeState struct {
	base
}

func newTypeState(res *FileResource) *TypeState {
	return &TypeState{base: newBase(res)}
}

func (s *TypeState) Kind() domain.StateKind { return domain.KindType }

func (s *TypeState) Assign(rc *Context, v any) error {
	return fmt.Errorf("%w: entry type is read-only", domain.ErrValidation)
}

// Retrieve observes the entry kind; the desired value mirrors the
// observation so the state never demands a transition
func (s *TypeState) Retrieve(rc *Context) error {
	info, ok := s.res.StatInfo()
	if !ok {
		s.is = domain.Unknown()
		s.should = domain.Unknown()
		return nil
	}
	s.is = domain.Set(string(entryKindOf(info)))
	s.should = s.is
	return nil
}

func (s *TypeState) InSync() bool { return true }

func (s *TypeState) Sync(rc *Context) (domain.Event, error) {
	return domain.EventNone, fmt.Errorf("%w: entry type cannot be synced", domain.ErrInternal)
}

// entryKindOf maps stat data onto the closed entry kind set
func entryKindOf(info os.FileInfo) domain.EntryKind {
	switch {
	case info.IsDir():
		return domain.EntryDirectory
	case info.Mode()&os.ModeSymlink != 0:
		return domain.EntryLink
	default:
		return domain.EntryFile
	}
}
