package source

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Kind is the transport flavor a locator resolved to. Resolution
// happens once, when a source is assigned; nothing re-parses the
// locator per call.
type Kind int

const (
	// KindLocal serves the source from the local filesystem
	KindLocal Kind = iota
	// KindRemote serves the source from a registered file server
	KindRemote
)

// String returns the kind name for logs
func (k Kind) String() string {
	if k == KindRemote {
		return "remote"
	}
	return "local"
}

// RemoteScheme is the URI scheme that selects a remote file server
const RemoteScheme = "filestate"

// DefaultPort is assumed when a remote locator omits the port
const DefaultPort = "8139"

// Descriptor is the resolved form of a source locator
type Descriptor struct {
	// Kind selects local or remote handling
	Kind Kind

	// Server is host:port for remote sources, "localhost" for local
	Server string

	// Mount is the first path segment of a remote locator
	Mount string

	// Path is the server-relative path handed to the transport
	Path string
}

// Resolve parses a source locator into a descriptor and the transport
// that serves it. A bare local path is rewritten to the
// file://localhost/... form so local sources flow through the same
// describe/list/retrieve contract as remote ones. Unknown schemes are
// a validation error; a remote host with no registered client is a
// transport error.
func Resolve(locator string, reg *Registry) (*Descriptor, Transport, error) {
	if locator == "" {
		return nil, nil, fmt.Errorf("%w: empty source locator", domain.ErrValidation)
	}

	// Bare local path: rewrite into URI form
	if !strings.Contains(locator, "://") {
		if !strings.HasPrefix(locator, "/") {
			return nil, nil, fmt.Errorf("%w: source path must be absolute: %s", domain.ErrValidation, locator)
		}
		locator = "file://localhost" + locator
	}

	u, err := url.Parse(locator)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: malformed source locator %s: %v", domain.ErrValidation, locator, err)
	}

	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return nil, nil, fmt.Errorf("%w: file source has no path: %s", domain.ErrValidation, locator)
		}
		return &Descriptor{
			Kind:   KindLocal,
			Server: "localhost",
			Path:   path.Clean(u.Path),
		}, NewLocal(), nil

	case RemoteScheme:
		host := u.Hostname()
		if host == "" {
			return nil, nil, fmt.Errorf("%w: remote source has no host: %s", domain.ErrValidation, locator)
		}
		port := u.Port()
		if port == "" {
			port = DefaultPort
		}
		server := host + ":" + port

		cleaned := path.Clean(u.Path)
		segments := strings.SplitN(strings.TrimPrefix(cleaned, "/"), "/", 2)
		if segments[0] == "" || segments[0] == "." {
			return nil, nil, fmt.Errorf("%w: remote source has no mount: %s", domain.ErrValidation, locator)
		}

		client, ok := reg.Lookup(server)
		if !ok {
			return nil, nil, fmt.Errorf("%w: no client registered for server %s", domain.ErrTransport, server)
		}

		return &Descriptor{
			Kind:   KindRemote,
			Server: server,
			Mount:  segments[0],
			Path:   cleaned,
		}, NewRemote(client), nil

	default:
		return nil, nil, fmt.Errorf("%w: unsupported source scheme: %s", domain.ErrValidation, u.Scheme)
	}
}

// Join returns the locator for a child entry of the given locator
func Join(locator, name string) string {
	return strings.TrimSuffix(locator, "/") + "/" + name
}
