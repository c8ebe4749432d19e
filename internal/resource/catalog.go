package resource

import (
	"fmt"
	"path/filepath"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Catalog is the path-keyed arena every resource of a run lives in.
// Parent/child relations are path references into the arena, never
// owning pointers, and a path can hold at most one resource no matter
// which route (declaration, local enumeration, source listing)
// discovered it.
type Catalog struct {
	resources map[string]*FileResource
	order     []string
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{resources: make(map[string]*FileResource)}
}

// Len returns the number of resources. It grows while a run discovers
// children, so reconciliation loops index rather than range.
func (c *Catalog) Len() int {
	return len(c.order)
}

// At returns the i-th resource in discovery order
func (c *Catalog) At(i int) *FileResource {
	return c.resources[c.order[i]]
}

// Get returns the resource at path, or nil
func (c *Catalog) Get(path string) *FileResource {
	return c.resources[path]
}

// Resources returns all resources in discovery order
func (c *Catalog) Resources() []*FileResource {
	out := make([]*FileResource, 0, len(c.order))
	for _, p := range c.order {
		out = append(out, c.resources[p])
	}
	return out
}

// Define declares a resource at an absolute path. Re-defining an
// existing path reconfigures the resource in place rather than
// recreating it.
func (c *Catalog) Define(rc *Context, path string, opts Options) (*FileResource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: resource path cannot be empty", domain.ErrValidation)
	}
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: resource path must be absolute: %s", domain.ErrValidation, path)
	}
	path = filepath.Clean(path)

	res := c.resources[path]
	if res == nil {
		res = newResource(c, path)
		c.add(res)
	}
	res.configure(rc, opts)
	return res, nil
}

// add inserts a freshly built resource into the arena
func (c *Catalog) add(res *FileResource) {
	c.resources[res.path] = res
	c.order = append(c.order, res.path)
}
