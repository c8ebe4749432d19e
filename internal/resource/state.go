package resource

import (
	"github.com/Ning0612/Filestate/internal/domain"
)

// State is the comparator and converger for one attribute kind of a
// resource. Implementations are a closed set, one per domain.StateKind;
// a state is meaningful only while attached to its owning resource and
// removing itself mid-convergence is a valid outcome.
type State interface {
	// Kind identifies the attribute this state manages
	Kind() domain.StateKind

	// Assign validates and normalizes a desired value. A failure is a
	// validation (or privilege) error scoped to this one attribute.
	Assign(rc *Context, v any) error

	// Retrieve reads the current system state into the observed value
	Retrieve(rc *Context) error

	// Sync applies the observed→desired transition and returns the
	// event emitted on a successful transition, if any. Sync must be
	// safely re-entrant when observed already equals desired.
	Sync(rc *Context) (domain.Event, error)

	// InSync reports whether no transition is needed. A value never
	// retrieved is never in sync.
	InSync() bool

	// Is and Should expose the observed and desired values
	Is() domain.Value
	Should() domain.Value

	// ForceUnknown discards the observed value, e.g. when the owning
	// path turns out to be absent
	ForceUnknown()
}

// base carries the is/should pair shared by every state implementation
type base struct {
	res    *FileResource
	is     domain.Value
	should domain.Value
}

func newBase(res *FileResource) base {
	return base{
		res:    res,
		is:     domain.Unknown(),
		should: domain.Unknown(),
	}
}

func (b *base) Is() domain.Value     { return b.is }
func (b *base) Should() domain.Value { return b.should }

func (b *base) InSync() bool {
	return b.is.Equal(b.should)
}

func (b *base) ForceUnknown() {
	b.is = domain.Unknown()
}
