package resource

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Ning0612/Filestate/internal/core/checksum"
	"github.com/Ning0612/Filestate/internal/domain"
)

// ChecksumState tracks content drift through the persisted checksum
// store. Its desired value is the last recorded fingerprint; the first
// time a path is seen the store has nothing, the desired side stays
// unknown and the sync that follows records the observation.
type ChecksumState struct {
	base
	ctype domain.CheckType
}

func newChecksumState(res *FileResource, ctype domain.CheckType) *ChecksumState {
	return &ChecksumState{base: newBase(res), ctype: ctype}
}

func (s *ChecksumState) Kind() domain.StateKind { return domain.KindChecksum }

// Type returns the checksum strategy in use
func (s *ChecksumState) Type() domain.CheckType { return s.ctype }

// SetType switches the checksum strategy. Values computed under the old
// strategy are meaningless, so both sides reset.
func (s *ChecksumState) SetType(ctype domain.CheckType) {
	if ctype == s.ctype {
		return
	}
	s.ctype = ctype
	s.is = domain.Unknown()
	s.should = domain.Unknown()
}

// Assign accepts a checksum strategy name
func (s *ChecksumState) Assign(rc *Context, v any) error {
	name, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: invalid checksum value %v", domain.ErrValidation, v)
	}
	ctype := domain.CheckType(name)
	if !ctype.IsValid() {
		return fmt.Errorf("%w: unknown checksum type %q", domain.ErrValidation, name)
	}
	s.SetType(ctype)
	return nil
}

// Retrieve fingerprints the current content and resolves the desired
// value from the store. Directories carry no content fingerprint, so
// the state removes itself; an unreadable file is reported once and the
// state steps aside rather than failing every run.
func (s *ChecksumState) Retrieve(rc *Context) error {
	info, ok := s.res.StatInfo()
	if !ok {
		s.is = domain.Unknown()
		return nil
	}
	if info.IsDir() {
		s.res.RemoveState(domain.KindChecksum)
		return nil
	}

	sum, err := checksum.File(s.res.Path(), s.ctype)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			rc.Log.Warn("cannot read file for checksumming", "path", s.res.Path(), "error", err)
			s.res.RemoveState(domain.KindChecksum)
			return nil
		}
		return err
	}
	s.is = domain.Set(sum)

	prev, found, err := rc.Store.Get(s.res.Path(), s.ctype)
	if err != nil {
		return err
	}
	if found {
		s.should = domain.Set(prev)
	} else {
		// first sighting, nothing to compare against; staying unknown
		// keeps the state out of sync so the run records the observation
		s.should = domain.Unknown()
	}
	return nil
}

// Sync records the current fingerprint as the new desired value. The
// content itself is converged by the source and existence states;
// drift only warrants a warning when nothing else manages the content.
func (s *ChecksumState) Sync(rc *Context) (domain.Event, error) {
	if err := s.Retrieve(rc); err != nil {
		return domain.EventNone, err
	}
	if !s.res.HasState(domain.KindChecksum) {
		// removed itself during the re-retrieve
		return domain.EventNone, nil
	}
	if !s.is.IsSet() {
		// a co-managing state will produce the content; only an
		// unmanaged resource warrants noise
		if !s.res.HasState(domain.KindSource) && !s.res.HasState(domain.KindExistence) {
			rc.Log.Warn("no content to checksum", "path", s.res.Path(), "checktype", string(s.ctype))
		}
		return domain.EventNone, nil
	}

	prev, found, err := rc.Store.Get(s.res.Path(), s.ctype)
	if err != nil {
		return domain.EventNone, err
	}
	changed := found && prev != s.is.String()
	if changed && !s.res.HasState(domain.KindSource) && !s.res.HasState(domain.KindExistence) {
		rc.Log.Warn("content changed outside management",
			"path", s.res.Path(), "checktype", string(s.ctype),
			"was", prev, "now", s.is.String())
	}

	if err := rc.Store.Set(s.res.Path(), s.ctype, s.is.String()); err != nil {
		return domain.EventNone, err
	}
	s.should = s.is

	if changed {
		return domain.EventFileModified, nil
	}
	return domain.EventNone, nil
}
