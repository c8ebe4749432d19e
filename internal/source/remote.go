package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Client is the wire-level view of a remote file server. The engine
// never implements the wire protocol; an embedding application
// registers a client per server and the Remote transport adapts it to
// the Transport contract.
type Client interface {
	// Describe returns the raw tab-separated metadata tuple
	// (mode, type, owner, group, checksum) for one path
	Describe(ctx context.Context, path string) (string, error)

	// List returns the raw wire-format listing
	List(ctx context.Context, path string, recursive bool) (string, error)

	// Retrieve returns percent-encoded file content
	Retrieve(ctx context.Context, path string) (string, error)
}

// Remote adapts a registered Client to the Transport contract
type Remote struct {
	client Client
}

// NewRemote wraps a client
func NewRemote(client Client) *Remote {
	return &Remote{client: client}
}

// Describe parses the server's metadata tuple into Attrs
func (r *Remote) Describe(ctx context.Context, path string) (Attrs, error) {
	raw, err := r.client.Describe(ctx, path)
	if err != nil {
		return Attrs{}, fmt.Errorf("%w: describe %s: %v", domain.ErrTransport, path, err)
	}

	fields := strings.Split(strings.TrimRight(raw, "\n"), "\t")
	if len(fields) != 5 {
		return Attrs{}, fmt.Errorf("%w: describe %s: malformed tuple %q", domain.ErrTransport, path, raw)
	}

	kind := domain.EntryKind(fields[1])
	if !kind.IsValid() {
		return Attrs{}, fmt.Errorf("%w: describe %s: unknown entry kind %q", domain.ErrTransport, path, fields[1])
	}

	attrs := Attrs{
		Mode:     fields[0],
		Kind:     kind,
		Owner:    fields[2],
		Group:    fields[3],
		Checksum: fields[4],
	}
	if attrs.Checksum != "" {
		attrs.CheckType = domain.ChecksumMD5
	}

	return attrs, nil
}

// List passes the wire listing through unchanged
func (r *Remote) List(ctx context.Context, path string, recursive bool) (string, error) {
	listing, err := r.client.List(ctx, path, recursive)
	if err != nil {
		return "", fmt.Errorf("%w: list %s: %v", domain.ErrTransport, path, err)
	}
	return listing, nil
}

// Retrieve decodes the percent-encoded content exactly once. Local
// transports never encode, so the decode lives here and only here.
func (r *Remote) Retrieve(ctx context.Context, path string) ([]byte, error) {
	encoded, err := r.client.Retrieve(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve %s: %v", domain.ErrTransport, path, err)
	}

	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve %s: bad encoding: %v", domain.ErrTransport, path, err)
	}

	return []byte(decoded), nil
}

// Registry maps host:port server keys to registered clients
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register binds a client to a host:port key, replacing any earlier one
func (r *Registry) Register(server string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[server] = client
}

// Lookup returns the client for a host:port key
func (r *Registry) Lookup(server string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[server]
	return client, ok
}
