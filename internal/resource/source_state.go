package resource

import (
	"fmt"
	"os"

	"github.com/Ning0612/Filestate/internal/core/checksum"
	"github.com/Ning0612/Filestate/internal/domain"
	"github.com/Ning0612/Filestate/internal/source"
)

// SourceState converges content against a source tree served through a
// transport. The locator is resolved exactly once, at assignment;
// describing the source backfills owner, group and mode onto the
// resource when nothing else declared them.
type SourceState struct {
	base
	locator   string
	desc      *source.Descriptor
	transport source.Transport
	attrs     source.Attrs
	described bool
	dir       bool
}

func newSourceState(res *FileResource) *SourceState {
	return &SourceState{base: newBase(res)}
}

func (s *SourceState) Kind() domain.StateKind { return domain.KindSource }

// Assign resolves the locator into a descriptor and transport
func (s *SourceState) Assign(rc *Context, v any) error {
	locator, ok := v.(string)
	if !ok || locator == "" {
		return fmt.Errorf("%w: invalid source value %v", domain.ErrValidation, v)
	}
	desc, transport, err := source.Resolve(locator, rc.Transports)
	if err != nil {
		return err
	}
	s.locator = locator
	s.desc = desc
	s.transport = transport
	s.described = false
	s.dir = false
	s.is = domain.Unknown()
	s.should = domain.Unknown()
	return nil
}

// Retrieve describes the source and derives both sides of the
// comparison. A directory source delegates creation to the existence
// state and is in sync by construction; a file source demotes a
// conflicting ensure to "file" and compares content fingerprints.
func (s *SourceState) Retrieve(rc *Context) error {
	attrs, err := s.transport.Describe(rc.Ctx, s.desc.Path)
	if err != nil {
		return err
	}
	s.attrs = attrs
	s.described = true

	s.backfill(rc, attrs)

	switch attrs.Kind {
	case domain.EntryDirectory:
		s.dir = true
		if !s.res.HasState(domain.KindExistence) {
			if err := s.res.assignState(rc, domain.KindExistence, "directory"); err != nil {
				rc.Log.Error("assignment failed", "path", s.res.Path(), "attribute", "ensure", "error", err)
			}
		}
		return nil

	case domain.EntryFile:
		// a link-making resource converges as a symlink; the symlink
		// itself satisfies existence
		if s.res.Kind() == domain.EntryLink {
			return s.retrieveLink()
		}

		// the copy itself creates the file; an existence state is only
		// touched when it conflicts by targeting a directory
		if ex := s.res.existenceState(); ex != nil && ex.Should().IsSet() && ex.Should().String() == string(domain.EntryDirectory) {
			rc.Log.Info("source is a file, overriding ensure to file", "path", s.res.Path(), "source", s.locator)
			if err := ex.Assign(rc, "file"); err != nil {
				rc.Log.Error("assignment failed", "path", s.res.Path(), "attribute", "ensure", "error", err)
			}
		}

		if cks := s.res.checksumState(); cks != nil && attrs.CheckType != "" && cks.Type() != attrs.CheckType {
			rc.Log.Debug("forcing checksum type to match source",
				"path", s.res.Path(), "declared", string(cks.Type()), "source", string(attrs.CheckType))
			cks.SetType(attrs.CheckType)
		}

		s.should = domain.Set(attrs.Checksum)
		s.is = domain.Unknown()
		if info, ok := s.res.StatInfo(); ok && !info.IsDir() {
			ctype := attrs.CheckType
			if ctype == "" {
				ctype = domain.ChecksumMD5
			}
			sum, err := checksum.File(s.res.Path(), ctype)
			if err != nil {
				return err
			}
			s.is = domain.Set(sum)
		}
		return nil

	default:
		rc.Log.Warn("source entry kind is not manageable",
			"path", s.res.Path(), "source", s.locator, "kind", string(attrs.Kind))
		s.should = domain.Unknown()
		return nil
	}
}

// retrieveLink compares the current symlink target against the resolved
// source path
func (s *SourceState) retrieveLink() error {
	s.should = domain.Set(s.desc.Path)
	target, err := os.Readlink(s.res.Path())
	if err != nil {
		s.is = domain.Unknown()
		return nil
	}
	s.is = domain.Set(target)
	return nil
}

// backfill assigns source metadata onto states nothing else declared.
// An assignment refused for privilege reasons is expected when running
// unprivileged and only logged at debug.
func (s *SourceState) backfill(rc *Context, attrs source.Attrs) {
	backfillOne := func(kind domain.StateKind, attr string, val string) {
		if val == "" || s.res.HasState(kind) {
			return
		}
		if err := s.res.assignState(rc, kind, val); err != nil {
			rc.Log.Debug("source metadata not applied",
				"path", s.res.Path(), "attribute", attr, "error", err)
		}
	}
	backfillOne(domain.KindOwner, "owner", attrs.Owner)
	backfillOne(domain.KindGroup, "group", attrs.Group)
	backfillOne(domain.KindMode, "mode", attrs.Mode)
}

// InSync reports true for directory sources (creation is delegated) and
// for sources whose description yielded nothing to converge
func (s *SourceState) InSync() bool {
	if s.dir {
		return true
	}
	if !s.should.IsSet() {
		return true
	}
	return s.base.InSync()
}

// Sync copies the source content into place. Existing content is backed
// up per the resource's backup parameters and kept aside during the
// write so a failed copy restores the original.
func (s *SourceState) Sync(rc *Context) (domain.Event, error) {
	if !s.described {
		if err := s.Retrieve(rc); err != nil {
			return domain.EventNone, err
		}
	}
	if s.dir || !s.should.IsSet() {
		return domain.EventNone, nil
	}
	if s.res.Kind() == domain.EntryLink {
		return s.syncLink(rc)
	}
	if s.attrs.Kind != domain.EntryFile {
		return domain.EventNone, fmt.Errorf("%w: cannot copy source of kind %q", domain.ErrInternal, s.attrs.Kind)
	}

	content, err := s.transport.Retrieve(rc.Ctx, s.desc.Path)
	if err != nil {
		return domain.EventNone, err
	}
	if s.attrs.CheckType == domain.ChecksumMD5 && s.attrs.Checksum != "" {
		if got := checksum.Bytes(content); got != s.attrs.Checksum {
			return domain.EventNone, fmt.Errorf("%w: source %s: content checksum %s does not match described %s",
				domain.ErrIntegrity, s.locator, got, s.attrs.Checksum)
		}
	}

	info, existed := s.res.StatInfo()
	perm := s.creationPerm()
	if existed {
		perm = info.Mode().Perm()
		if err := s.backup(rc); err != nil {
			return domain.EventNone, err
		}
	}

	if err := s.writeAside(content, perm, existed); err != nil {
		return domain.EventNone, err
	}

	// a pending mode assignment applies now rather than waiting a run
	if ms := s.res.modeState(); ms != nil && ms.Should().IsSet() {
		if err := os.Chmod(s.res.Path(), ms.creationMode(domain.EntryFile)); err != nil {
			rc.Log.Warn("mode not applied after copy", "path", s.res.Path(), "error", err)
		}
	}

	s.res.InvalidateStat()
	if cks := s.res.checksumState(); cks != nil {
		cks.ForceUnknown()
	}
	s.is = s.should
	return domain.EventFileChanged, nil
}

// writeAside renames any existing entry out of the way, writes the new
// content and only then discards the original; a failed write restores
// it
func (s *SourceState) writeAside(content []byte, perm os.FileMode, existed bool) error {
	path := s.res.Path()
	aside := path + ".aside"
	if existed {
		if err := os.Rename(path, aside); err != nil {
			return fmt.Errorf("%w: setting aside %s: %v", domain.ErrIO, path, err)
		}
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		if existed {
			if rerr := os.Rename(aside, path); rerr != nil {
				return fmt.Errorf("%w: writing %s failed (%v) and the original could not be restored: %v",
					domain.ErrIO, path, err, rerr)
			}
		}
		return fmt.Errorf("%w: writing %s: %v", domain.ErrIO, path, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("%w: setting mode on %s: %v", domain.ErrIO, path, err)
	}
	if existed {
		if err := os.Remove(aside); err != nil {
			return fmt.Errorf("%w: removing aside copy of %s: %v", domain.ErrIO, path, err)
		}
	}
	return nil
}

// backup preserves the content being replaced, into a filebucket when
// one is named and as a sibling suffix copy otherwise
func (s *SourceState) backup(rc *Context) error {
	params := s.res.Params()
	name := params.BucketName()
	if !params.Backup.Enabled && name == "" {
		return nil
	}

	old, err := os.ReadFile(s.res.Path())
	if err != nil {
		return fmt.Errorf("%w: reading %s for backup: %v", domain.ErrIO, s.res.Path(), err)
	}

	if name != "" {
		bkt, ok := rc.Buckets.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: unknown filebucket %q", domain.ErrValidation, name)
		}
		digest, err := bkt.Backup(s.res.Path(), old)
		if err != nil {
			return err
		}
		rc.Log.Info("backed up to filebucket", "path", s.res.Path(), "bucket", name, "digest", digest)
		return nil
	}

	suffix := params.Backup.Suffix
	if suffix == "" {
		suffix = DefaultBackupSuffix
	}
	copyPath := s.res.Path() + suffix
	info, _ := s.res.StatInfo()
	perm := os.FileMode(0o600)
	if info != nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(copyPath, old, perm); err != nil {
		return fmt.Errorf("%w: writing backup %s: %v", domain.ErrIO, copyPath, err)
	}
	rc.Log.Info("backed up", "path", s.res.Path(), "backup", copyPath)
	return nil
}

// syncLink points a symlink at the resolved source path
func (s *SourceState) syncLink(rc *Context) (domain.Event, error) {
	path := s.res.Path()
	target := s.desc.Path

	_, existed := s.res.StatInfo()
	if existed {
		if current, err := os.Readlink(path); err == nil && current == target {
			s.is = domain.Set(target)
			return domain.EventNone, nil
		}
		if err := os.Remove(path); err != nil {
			return domain.EventNone, fmt.Errorf("%w: replacing %s: %v", domain.ErrIO, path, err)
		}
	}
	if err := os.Symlink(target, path); err != nil {
		return domain.EventNone, fmt.Errorf("%w: linking %s: %v", domain.ErrIO, path, err)
	}
	s.res.InvalidateStat()
	s.is = domain.Set(target)
	if existed {
		return domain.EventFileChanged, nil
	}
	return domain.EventFileCreated, nil
}

// creationPerm picks the permission for a file created by the copy
func (s *SourceState) creationPerm() os.FileMode {
	if ms := s.res.modeState(); ms != nil && ms.Should().IsSet() {
		return ms.creationMode(domain.EntryFile)
	}
	return 0o644
}
