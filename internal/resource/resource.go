package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Ning0612/Filestate/internal/domain"
	"github.com/Ning0612/Filestate/internal/source"
)

// Options is the recognized per-resource configuration surface. String
// zero values mean "not configured"; Recurse and Backup accept the
// loose types the configuration format allows.
type Options struct {
	Ensure     string
	Owner      string
	Group      string
	Mode       string
	Source     string
	Checksum   string
	Recurse    any
	Backup     any
	Filebucket string
	LinkMaker  bool
}

// FileResource is one node of the managed tree: a path, its inheritable
// parameters, and the set of states being converged on it. Children are
// built lazily during recursion and addressed through the catalog.
type FileResource struct {
	catalog *Catalog
	path    string
	kind    domain.EntryKind
	params  Params
	opts    Options
	states  map[domain.StateKind]State

	parent   string
	children []string

	info     os.FileInfo
	statDone bool
}

// newResource builds a resource with the states every managed path
// carries: content tracking and the read-only type observation
func newResource(c *Catalog, path string) *FileResource {
	r := &FileResource{
		catalog: c,
		path:    path,
		kind:    domain.EntryFile,
		params:  Params{CheckType: domain.ChecksumMD5},
		states:  make(map[domain.StateKind]State),
	}
	r.states[domain.KindChecksum] = newChecksumState(r, domain.ChecksumMD5)
	r.states[domain.KindType] = newTypeState(r)
	return r
}

// Path returns the absolute path this resource manages
func (r *FileResource) Path() string { return r.path }

// Kind reports whether this resource materializes as a plain entry or a
// symbolic link
func (r *FileResource) Kind() domain.EntryKind { return r.kind }

// Params returns the resource's parameter set
func (r *FileResource) Params() Params { return r.params }

// Parent returns the parent resource path, "" for declared roots
func (r *FileResource) Parent() string { return r.parent }

// Children returns child resource paths in discovery order
func (r *FileResource) Children() []string { return r.children }

// State returns the attached state for a kind, or nil
func (r *FileResource) State(kind domain.StateKind) State {
	return r.states[kind]
}

// HasState reports whether a state of the given kind is attached
func (r *FileResource) HasState(kind domain.StateKind) bool {
	return r.states[kind] != nil
}

// RemoveState detaches a state. Self-removal during convergence is a
// valid outcome (a checksum on a directory, a demoted owner change).
func (r *FileResource) RemoveState(kind domain.StateKind) {
	delete(r.states, kind)
}

// StatInfo returns the cached lstat of the path and whether it exists
func (r *FileResource) StatInfo() (os.FileInfo, bool) {
	if !r.statDone {
		info, err := os.Lstat(r.path)
		if err != nil {
			r.info = nil
		} else {
			r.info = info
		}
		r.statDone = true
	}
	return r.info, r.info != nil
}

// InvalidateStat drops the cached lstat after a mutation
func (r *FileResource) InvalidateStat() {
	r.info = nil
	r.statDone = false
}

// configure applies declared options, touching only attributes whose
// value differs from the previous configuration so re-declaration is an
// idempotent upsert
func (r *FileResource) configure(rc *Context, opts Options) {
	if opts.Checksum != "" && opts.Checksum != r.opts.Checksum {
		ctype := domain.CheckType(opts.Checksum)
		if !ctype.IsValid() {
			rc.Log.Error("invalid checksum type", "path", r.path, "checksum", opts.Checksum)
		} else {
			r.params.CheckType = ctype
			if cks := r.checksumState(); cks != nil {
				cks.SetType(ctype)
			}
		}
		r.opts.Checksum = opts.Checksum
	}

	if opts.Recurse != nil && !reflect.DeepEqual(opts.Recurse, r.opts.Recurse) {
		spec, err := ParseRecurse(opts.Recurse)
		if err != nil {
			rc.Log.Error("invalid recurse value", "path", r.path, "error", err)
		} else {
			r.params.Recurse = spec
		}
		r.opts.Recurse = opts.Recurse
	}

	if opts.Backup != nil && !reflect.DeepEqual(opts.Backup, r.opts.Backup) {
		spec, err := ParseBackup(opts.Backup)
		if err != nil {
			rc.Log.Error("invalid backup value", "path", r.path, "error", err)
		} else {
			r.params.Backup = spec
		}
		r.opts.Backup = opts.Backup
	}

	if opts.Filebucket != r.opts.Filebucket {
		r.params.Filebucket = opts.Filebucket
		r.opts.Filebucket = opts.Filebucket
	}

	if opts.LinkMaker != r.opts.LinkMaker {
		r.params.LinkMaker = opts.LinkMaker
		r.opts.LinkMaker = opts.LinkMaker
	}

	r.assignIfChanged(rc, domain.KindExistence, opts.Ensure, &r.opts.Ensure)
	r.assignIfChanged(rc, domain.KindOwner, opts.Owner, &r.opts.Owner)
	r.assignIfChanged(rc, domain.KindGroup, opts.Group, &r.opts.Group)
	r.assignIfChanged(rc, domain.KindMode, opts.Mode, &r.opts.Mode)

	if opts.Source != "" && opts.Source != r.opts.Source {
		r.params.Source = opts.Source
		if err := r.assignState(rc, domain.KindSource, opts.Source); err != nil {
			rc.Log.Error("assignment failed", "path", r.path, "attribute", "source", "error", err)
		}
		r.opts.Source = opts.Source
	}
}

// assignIfChanged assigns one attribute when its declared value differs
// from the previous declaration. An assignment failure is scoped to the
// attribute: it is logged, the state is dropped, and the rest of the
// resource proceeds.
func (r *FileResource) assignIfChanged(rc *Context, kind domain.StateKind, val string, prev *string) {
	if val == "" || val == *prev {
		return
	}
	if err := r.assignState(rc, kind, val); err != nil {
		rc.Log.Error("assignment failed", "path", r.path, "attribute", kind.String(), "error", err)
	}
	*prev = val
}

// assignState attaches (or reuses) the state for kind and assigns the
// desired value, removing the state again if the assignment fails
func (r *FileResource) assignState(rc *Context, kind domain.StateKind, v any) error {
	st := r.states[kind]
	if st == nil {
		st = r.newState(kind)
		r.states[kind] = st
	}
	if err := st.Assign(rc, v); err != nil {
		r.RemoveState(kind)
		return err
	}
	return nil
}

// newState builds the implementation for one of the closed set of
// state kinds
func (r *FileResource) newState(kind domain.StateKind) State {
	switch kind {
	case domain.KindExistence:
		return newExistence(r)
	case domain.KindOwner:
		return newOwner(r)
	case domain.KindGroup:
		return newGroup(r)
	case domain.KindMode:
		return newMode(r)
	case domain.KindSource:
		return newSourceState(r)
	case domain.KindChecksum:
		return newChecksumState(r, r.params.CheckType)
	case domain.KindType:
		return newTypeState(r)
	default:
		panic(fmt.Sprintf("unknown state kind %d", kind))
	}
}

// Typed state accessors. Each returns nil when the state is not
// attached.

func (r *FileResource) existenceState() *Existence {
	if st, ok := r.states[domain.KindExistence].(*Existence); ok {
		return st
	}
	return nil
}

func (r *FileResource) modeState() *Mode {
	if st, ok := r.states[domain.KindMode].(*Mode); ok {
		return st
	}
	return nil
}

func (r *FileResource) checksumState() *ChecksumState {
	if st, ok := r.states[domain.KindChecksum].(*ChecksumState); ok {
		return st
	}
	return nil
}

func (r *FileResource) sourceState() *SourceState {
	if st, ok := r.states[domain.KindSource].(*SourceState); ok {
		return st
	}
	return nil
}

// ChildOverrides lets a discovery route replace the derived values a
// child would otherwise inherit
type ChildOverrides struct {
	Source  string
	Recurse *RecurseSpec
	Ensure  string
}

// NewChild builds (or updates) the resource for one entry below this
// one. The child path is always parent path + relative name; the
// parameter set is cloned with the source locator extended by the
// child's name and a bounded recurse depth decremented. Re-applying for
// an existing path mutates only attributes whose value differs.
func (r *FileResource) NewChild(rc *Context, name string, overrides *ChildOverrides) (*FileResource, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return nil, fmt.Errorf("%w: invalid child name %q", domain.ErrValidation, name)
	}
	childPath := filepath.Join(r.path, name)

	params := r.params
	params.Recurse = r.params.Recurse.Descend()
	if r.params.Source != "" {
		params.Source = source.Join(r.params.Source, name)
	}

	ensure := ""
	if overrides != nil {
		if overrides.Source != "" {
			params.Source = overrides.Source
		}
		if overrides.Recurse != nil {
			params.Recurse = *overrides.Recurse
		}
		ensure = overrides.Ensure
	}

	kind := domain.EntryFile
	if params.LinkMaker && params.Source != "" {
		k, err := linkKind(rc, params.Source)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	if existing := r.catalog.Get(childPath); existing != nil {
		existing.updateChild(rc, params, ensure)
		r.adopt(existing)
		return existing, nil
	}

	child := newResource(r.catalog, childPath)
	child.kind = kind
	child.parent = r.path
	child.params = params
	child.params.CheckType = r.params.CheckType
	if cks := child.checksumState(); cks != nil && child.params.CheckType != domain.ChecksumMD5 {
		cks.SetType(child.params.CheckType)
	}

	if params.Source != "" {
		if err := child.assignState(rc, domain.KindSource, params.Source); err != nil {
			return nil, err
		}
	}
	if ensure != "" {
		if err := child.assignState(rc, domain.KindExistence, ensure); err != nil {
			return nil, err
		}
	}

	r.catalog.add(child)
	r.adopt(child)
	return child, nil
}

// updateChild is the upsert path of NewChild: only differing attributes
// are touched
func (r *FileResource) updateChild(rc *Context, params Params, ensure string) {
	if params.Source != "" && params.Source != r.params.Source {
		r.params.Source = params.Source
		if err := r.assignState(rc, domain.KindSource, params.Source); err != nil {
			rc.Log.Error("assignment failed", "path", r.path, "attribute", "source", "error", err)
		}
	}
	if params.Recurse != r.params.Recurse {
		r.params.Recurse = params.Recurse
	}
	if ensure != "" && ensure != r.opts.Ensure {
		if err := r.assignState(rc, domain.KindExistence, ensure); err != nil {
			rc.Log.Error("assignment failed", "path", r.path, "attribute", "ensure", "error", err)
		}
		r.opts.Ensure = ensure
	}
}

// adopt records a child path once regardless of discovery route
func (r *FileResource) adopt(child *FileResource) {
	for _, existing := range r.children {
		if existing == child.path {
			return
		}
	}
	r.children = append(r.children, child.path)
}

// linkKind decides whether a link-making parent materializes this child
// as a symbolic link. Only a non-directory source becomes a link; link
// making against a remote source falls back to a plain copy.
func linkKind(rc *Context, locator string) (domain.EntryKind, error) {
	desc, _, err := source.Resolve(locator, rc.Transports)
	if err != nil {
		return domain.EntryFile, err
	}
	if desc.Kind != source.KindLocal {
		rc.Log.Warn("link making requires a local source, copying instead", "source", locator)
		return domain.EntryFile, nil
	}
	info, err := os.Lstat(desc.Path)
	if err != nil || info.IsDir() {
		return domain.EntryFile, nil
	}
	return domain.EntryLink, nil
}

// Recurse performs one level of lazy discovery: real directory entries
// become children, and when a source is attached, each entry of the
// source listing is mirrored as a child with its locator rewritten to
// the listed path. A failure to build one child is reported and skipped
// without aborting the parent.
func (r *FileResource) Recurse(rc *Context) {
	if !r.params.Recurse.Active() {
		return
	}

	if info, ok := r.StatInfo(); ok && info.IsDir() {
		entries, err := os.ReadDir(r.path)
		if err != nil {
			rc.Log.Warn("cannot enumerate directory", "path", r.path, "error", err)
		} else {
			for _, entry := range entries {
				if _, err := r.NewChild(rc, entry.Name(), nil); err != nil {
					rc.Log.Warn("skipping child", "path", r.path, "name", entry.Name(), "error", err)
				}
			}
		}
	}

	ss := r.sourceState()
	if ss == nil || ss.transport == nil {
		return
	}
	listing, err := ss.transport.List(rc.Ctx, ss.desc.Path, false)
	if err != nil {
		rc.Log.Warn("source listing failed", "path", r.path, "source", r.params.Source, "error", err)
		return
	}
	entries, err := source.ParseListing(listing)
	if err != nil {
		rc.Log.Warn("source listing unreadable", "path", r.path, "source", r.params.Source, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.Path == "/" {
			continue
		}
		name := strings.TrimPrefix(entry.Path, "/")
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		overrides := &ChildOverrides{Source: source.Join(r.params.Source, name)}
		if _, err := r.NewChild(rc, name, overrides); err != nil {
			rc.Log.Warn("skipping source child", "path", r.path, "name", name, "error", err)
		}
	}
}

// Retrieve reads the observed state of this resource. The source state
// goes first because describing the source may populate sibling states
// and recursion may add children; an absent path forces every attached
// state to Unknown instead of retrieving each one.
func (r *FileResource) Retrieve(rc *Context) error {
	if ss := r.State(domain.KindSource); ss != nil {
		if err := ss.Retrieve(rc); err != nil {
			// Fatal for this resource's source handling only; the
			// remaining states still reconcile
			rc.Log.Error("source retrieval failed", "path", r.path, "error", err)
		}
	}

	r.Recurse(rc)

	r.InvalidateStat()
	if _, ok := r.StatInfo(); !ok {
		for _, kind := range domain.SyncOrder {
			if st := r.states[kind]; st != nil {
				st.ForceUnknown()
			}
		}
		return nil
	}

	for _, kind := range domain.SyncOrder {
		if kind == domain.KindSource {
			continue // already retrieved above
		}
		st := r.states[kind]
		if st == nil {
			continue
		}
		if err := st.Retrieve(rc); err != nil {
			rc.Log.Warn("retrieve failed", "path", r.path, "state", kind.String(), "error", err)
		}
	}
	return nil
}
