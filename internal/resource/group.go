package resource

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Group converges the owning gid of the path, held as numeric gid
// strings like the owner state. Unlike ownership, an unprivileged
// process may change group as long as it is a member of the target.
type Group struct {
	base
	gid int
}

func newGroup(res *FileResource) *Group {
	return &Group{base: newBase(res)}
}

func (s *Group) Kind() domain.StateKind { return domain.KindGroup }

func (s *Group) Assign(rc *Context, v any) error {
	name, ok := v.(string)
	if !ok || name == "" {
		return fmt.Errorf("%w: invalid group value %v", domain.ErrValidation, v)
	}

	gid, err := lookupGID(name)
	if err != nil {
		return err
	}

	if os.Geteuid() != 0 {
		member, err := inGroup(gid)
		if err != nil {
			return err
		}
		if !member {
			return fmt.Errorf("%w: not a member of group %q", domain.ErrValidation, name)
		}
	}

	s.gid = gid
	s.should = domain.Set(strconv.Itoa(gid))
	return nil
}

func lookupGID(name string) (int, error) {
	if g, err := user.LookupGroup(name); err == nil {
		gid, err := strconv.Atoi(g.Gid)
		if err != nil {
			return 0, fmt.Errorf("%w: non-numeric gid %q for group %s", domain.ErrInternal, g.Gid, name)
		}
		return gid, nil
	}
	if gid, err := strconv.Atoi(name); err == nil && gid >= 0 {
		return gid, nil
	}
	return 0, fmt.Errorf("%w: unknown group %q", domain.ErrValidation, name)
}

func inGroup(gid int) (bool, error) {
	current, err := user.Current()
	if err != nil {
		return false, fmt.Errorf("%w: resolving current user: %v", domain.ErrInternal, err)
	}
	ids, err := current.GroupIds()
	if err != nil {
		return false, fmt.Errorf("%w: listing group memberships: %v", domain.ErrInternal, err)
	}
	want := strconv.Itoa(gid)
	for _, id := range ids {
		if id == want {
			return true, nil
		}
	}
	return false, nil
}

func (s *Group) Retrieve(rc *Context) error {
	info, ok := s.res.StatInfo()
	if !ok {
		s.is = domain.Unknown()
		return nil
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("%w: no ownership data for %s", domain.ErrInternal, s.res.Path())
	}
	s.is = domain.Set(strconv.FormatUint(uint64(st.Gid), 10))
	return nil
}

func (s *Group) Sync(rc *Context) (domain.Event, error) {
	if _, ok := s.res.StatInfo(); !ok {
		rc.Log.Debug("group deferred, path absent", "path", s.res.Path())
		return domain.EventNone, nil
	}
	// the entry may have been created earlier in this pass
	if err := s.Retrieve(rc); err != nil {
		return domain.EventNone, err
	}
	if s.base.InSync() {
		return domain.EventNone, nil
	}
	if err := os.Chown(s.res.Path(), -1, s.gid); err != nil {
		return domain.EventNone, fmt.Errorf("%w: chgrp %s: %v", domain.ErrIO, s.res.Path(), err)
	}
	s.res.InvalidateStat()
	s.is = s.should
	return domain.EventInodeChanged, nil
}
