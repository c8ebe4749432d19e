package resource

import (
	"context"

	"github.com/Ning0612/Filestate/internal/bucket"
	"github.com/Ning0612/Filestate/internal/domain"
	"github.com/Ning0612/Filestate/internal/logger"
	"github.com/Ning0612/Filestate/internal/source"
)

// ChecksumStore is the persisted (path, checktype) → value table the
// Checksum state reads its unassigned desired values from and records
// observations into. The sqlite implementation lives in
// internal/core/checkstore; tests substitute an in-memory one.
type ChecksumStore interface {
	Get(path string, ctype domain.CheckType) (string, bool, error)
	Set(path string, ctype domain.CheckType, value string) error
}

// Context carries the per-run collaborators every state operation
// needs. One Context spans one reconciliation run; nothing in the
// engine keeps process-global mutable state.
type Context struct {
	Ctx        context.Context
	Store      ChecksumStore
	Log        logger.Logger
	Transports *source.Registry
	Buckets    *bucket.Registry

	privWarned bool
}

// NewContext builds a run context, substituting safe defaults for any
// collaborator left nil
func NewContext(ctx context.Context, store ChecksumStore, log logger.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if store == nil {
		store = nullStore{}
	}
	if log == nil {
		log = logger.Get()
	}
	return &Context{
		Ctx:        ctx,
		Store:      store,
		Log:        log,
		Transports: source.NewRegistry(),
		Buckets:    bucket.NewRegistry(),
	}
}

// PrivilegeNotice warns that ownership cannot be managed without
// elevated privilege. The notice is issued at most once per run no
// matter how many assignments are demoted.
func (rc *Context) PrivilegeNotice() {
	if rc.privWarned {
		return
	}
	rc.privWarned = true
	rc.Log.Warn("cannot manage ownership unless running as root")
}

// nullStore remembers nothing; every lookup is a first sighting
type nullStore struct{}

func (nullStore) Get(string, domain.CheckType) (string, bool, error) { return "", false, nil }
func (nullStore) Set(string, domain.CheckType, string) error         { return nil }
