package reconcile

import (
	"github.com/Ning0612/Filestate/internal/bucket"
	"github.com/Ning0612/Filestate/internal/config"
	"github.com/Ning0612/Filestate/internal/domain"
	"github.com/Ning0612/Filestate/internal/resource"
)

// Reconciler drives one retrieve/compare/sync pass over a catalog
type Reconciler struct {
	rc       *resource.Context
	catalog  *resource.Catalog
	recorder *Recorder
}

// New creates a reconciler for the given run context and catalog
func New(rc *resource.Context, catalog *resource.Catalog) *Reconciler {
	return &Reconciler{
		rc:       rc,
		catalog:  catalog,
		recorder: NewRecorder(),
	}
}

// Recorder exposes the events emitted so far
func (r *Reconciler) Recorder() *Recorder {
	return r.recorder
}

// Summary reports what one run did
type Summary struct {
	// Resources is how many resources the run visited, including
	// children discovered during the run itself
	Resources int

	// Events are the transitions applied, in order
	Events []Occurrence
}

// Run performs one full pass. The catalog grows while the loop runs
// because retrieval discovers children, so the loop indexes instead of
// snapshotting; every resource visits its states in dependency order
// and a failing state is reported and skipped without taking down the
// run.
func (r *Reconciler) Run() (*Summary, error) {
	for i := 0; i < r.catalog.Len(); i++ {
		res := r.catalog.At(i)
		log := r.rc.Log.With("path", res.Path())

		if err := res.Retrieve(r.rc); err != nil {
			log.Error("retrieve failed", "error", err)
			continue
		}

		for _, kind := range domain.SyncOrder {
			if kind == domain.KindType {
				continue
			}
			st := res.State(kind)
			if st == nil || st.InSync() {
				continue
			}
			event, err := st.Sync(r.rc)
			if err != nil {
				log.Error("sync failed", "state", kind.String(), "error", err)
				continue
			}
			if event != domain.EventNone {
				log.Info("converged", "state", kind.String(), "event", string(event))
				r.recorder.Record(res.Path(), event)
			}
		}

		if err := r.rc.Ctx.Err(); err != nil {
			return nil, err
		}
	}

	return &Summary{
		Resources: r.catalog.Len(),
		Events:    r.recorder.Occurrences(),
	}, nil
}

// Pending is one transition a plan-only pass would apply
type Pending struct {
	Path      string
	Attribute string
	Is        string
	Should    string
}

// Plan retrieves everything and reports what Run would change without
// touching the system. Child discovery still happens because it is part
// of retrieval.
func (r *Reconciler) Plan() ([]Pending, error) {
	var pending []Pending
	for i := 0; i < r.catalog.Len(); i++ {
		res := r.catalog.At(i)

		if err := res.Retrieve(r.rc); err != nil {
			r.rc.Log.Error("retrieve failed", "path", res.Path(), "error", err)
			continue
		}

		for _, kind := range domain.SyncOrder {
			if kind == domain.KindType {
				continue
			}
			st := res.State(kind)
			if st == nil || st.InSync() {
				continue
			}
			pending = append(pending, Pending{
				Path:      res.Path(),
				Attribute: kind.String(),
				Is:        st.Is().String(),
				Should:    st.Should().String(),
			})
		}

		if err := r.rc.Ctx.Err(); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// BuildCatalog turns a validated configuration into a catalog and
// registers its filebuckets on the run context
func BuildCatalog(rc *resource.Context, cfg *config.Config) (*resource.Catalog, error) {
	for _, fb := range cfg.Filebuckets {
		b, err := bucket.NewLocal(fb.Path)
		if err != nil {
			return nil, err
		}
		rc.Buckets.Register(fb.Name, b)
	}

	catalog := resource.NewCatalog()
	for _, rd := range cfg.Resources {
		opts := resource.Options{
			Ensure:     rd.Ensure,
			Owner:      rd.Owner,
			Group:      rd.Group,
			Mode:       rd.Mode,
			Source:     rd.Source,
			Checksum:   rd.Checksum,
			Recurse:    rd.Recurse,
			Backup:     rd.Backup,
			Filebucket: rd.Filebucket,
			LinkMaker:  rd.LinkMaker,
		}
		if _, err := catalog.Define(rc, rd.Path, opts); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}
