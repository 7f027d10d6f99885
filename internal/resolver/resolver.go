// Package resolver turns component URLs into resolved declarations. A
// Registry dispatches on the URL scheme to a registered Resolver; the
// registry is built once at startup and never mutated afterwards, so it is
// shared by reference without locking.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/componentd/internal/decl"
)

// ErrorKind classifies resolution failures into the closed set surfaced to
// callers.
type ErrorKind int

const (
	// SchemeNotRegistered: no resolver is registered for the URL's scheme.
	SchemeNotRegistered ErrorKind = iota
	// ManifestInvalid: the URL or the manifest it names is malformed.
	ManifestInvalid
	// Internal: an unexpected failure inside a resolver.
	Internal
)

func (k ErrorKind) String() string {
	switch k {
	case SchemeNotRegistered:
		return "scheme not registered"
	case ManifestInvalid:
		return "manifest invalid"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a resolution failure for one component URL.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolving %q: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolving %q: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a resolver error. Err may be nil.
func NewError(kind ErrorKind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// ResolvedComponent is the output of a successful resolution.
type ResolvedComponent struct {
	// URL the declaration was actually resolved from (after any redirects a
	// resolver performs).
	URL string
	// Decl is the validated component declaration.
	Decl *decl.ComponentDecl
	// PackageDir is the directory holding the component's package contents,
	// or empty when the scheme has no package concept.
	PackageDir string
}

// Resolver resolves component URLs for a single scheme.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*ResolvedComponent, error)
}

// Registry maps URL schemes to resolvers. Immutable after construction.
type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry builds a registry from a scheme->resolver map. The map is
// copied; later mutation of the argument has no effect.
func NewRegistry(resolvers map[string]Resolver) *Registry {
	m := make(map[string]Resolver, len(resolvers))
	for scheme, r := range resolvers {
		m[scheme] = r
	}
	return &Registry{resolvers: m}
}

// Resolve dispatches to the resolver registered for the URL's scheme.
func (r *Registry) Resolve(ctx context.Context, url string) (*ResolvedComponent, error) {
	scheme, ok := splitScheme(url)
	if !ok {
		return nil, NewError(ManifestInvalid, url, fmt.Errorf("component URL has no scheme"))
	}
	resolver, ok := r.resolvers[scheme]
	if !ok {
		return nil, NewError(SchemeNotRegistered, url, nil)
	}
	return resolver.Resolve(ctx, url)
}

func splitScheme(url string) (string, bool) {
	i := strings.Index(url, ":")
	if i <= 0 {
		return "", false
	}
	return url[:i], true
}
