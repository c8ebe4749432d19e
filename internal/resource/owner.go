package resource

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Owner converges the owning uid of the path. Values are held as
// numeric uid strings so symbolic and numeric declarations compare the
// same way.
type Owner struct {
	base
	uid int
}

func newOwner(res *FileResource) *Owner {
	return &Owner{base: newBase(res)}
}

func (s *Owner) Kind() domain.StateKind { return domain.KindOwner }

// Assign resolves the declared owner to a uid. Without root the
// assignment is refused up front so a run never half-applies ownership;
// the caller drops the state and the rest of the resource proceeds.
func (s *Owner) Assign(rc *Context, v any) error {
	name, ok := v.(string)
	if !ok || name == "" {
		return fmt.Errorf("%w: invalid owner value %v", domain.ErrValidation, v)
	}
	if os.Geteuid() != 0 {
		rc.PrivilegeNotice()
		return fmt.Errorf("%w: managing owner requires root", domain.ErrPrivilege)
	}

	uid, err := lookupUID(name)
	if err != nil {
		return err
	}
	s.uid = uid
	s.should = domain.Set(strconv.Itoa(uid))
	return nil
}

func lookupUID(name string) (int, error) {
	if u, err := user.Lookup(name); err == nil {
		uid, err := strconv.Atoi(u.Uid)
		if err != nil {
			return 0, fmt.Errorf("%w: non-numeric uid %q for user %s", domain.ErrInternal, u.Uid, name)
		}
		return uid, nil
	}
	if uid, err := strconv.Atoi(name); err == nil && uid >= 0 {
		return uid, nil
	}
	return 0, fmt.Errorf("%w: unknown user %q", domain.ErrValidation, name)
}

func (s *Owner) Retrieve(rc *Context) error {
	info, ok := s.res.StatInfo()
	if !ok {
		s.is = domain.Unknown()
		return nil
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("%w: no ownership data for %s", domain.ErrInternal, s.res.Path())
	}
	s.is = domain.Set(strconv.FormatUint(uint64(st.Uid), 10))
	return nil
}

func (s *Owner) Sync(rc *Context) (domain.Event, error) {
	if _, ok := s.res.StatInfo(); !ok {
		rc.Log.Debug("owner deferred, path absent", "path", s.res.Path())
		return domain.EventNone, nil
	}
	// the entry may have been created earlier in this pass
	if err := s.Retrieve(rc); err != nil {
		return domain.EventNone, err
	}
	if s.base.InSync() {
		return domain.EventNone, nil
	}
	if err := os.Chown(s.res.Path(), s.uid, -1); err != nil {
		return domain.EventNone, fmt.Errorf("%w: chown %s: %v", domain.ErrIO, s.res.Path(), err)
	}
	s.res.InvalidateStat()
	s.is = s.should
	return domain.EventInodeChanged, nil
}
