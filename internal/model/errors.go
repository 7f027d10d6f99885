package model

import (
	"fmt"

	"github.com/vk/componentd/internal/moniker"
)

// InstanceNotFoundError reports that no instance exists at a moniker, or
// that a named child is not live in its realm.
type InstanceNotFoundError struct {
	Moniker moniker.AbsoluteMoniker
}

func (e *InstanceNotFoundError) Error() string {
	return fmt.Sprintf("instance %s not found", e.Moniker)
}

// InstanceAlreadyExistsError reports a dynamic-create collision with a live
// child of the same (name, collection).
type InstanceAlreadyExistsError struct {
	Realm moniker.AbsoluteMoniker
	Child moniker.PartialMoniker
}

func (e *InstanceAlreadyExistsError) Error() string {
	return fmt.Sprintf("instance %s already exists in realm %s", e.Child, e.Realm)
}

// CollectionNotFoundError reports a reference to an undeclared collection.
type CollectionNotFoundError struct {
	Realm moniker.AbsoluteMoniker
	Name  string
}

func (e *CollectionNotFoundError) Error() string {
	return fmt.Sprintf("collection %q not found in realm %s", e.Name, e.Realm)
}

// UnsupportedError reports an operation the target's declaration forbids,
// such as dynamic creation into a persistent collection.
type UnsupportedError struct {
	Op string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported: %s", e.Op)
}

// NamespaceCreationError reports a failure assembling an instance's
// incoming namespace before start.
type NamespaceCreationError struct {
	Moniker moniker.AbsoluteMoniker
	Err     error
}

func (e *NamespaceCreationError) Error() string {
	return fmt.Sprintf("creating namespace for %s: %v", e.Moniker, e.Err)
}

func (e *NamespaceCreationError) Unwrap() error { return e.Err }

// RoutingErrorKind classifies capability-routing failures. Each aborts only
// the routing attempt that produced it.
type RoutingErrorKind int

const (
	// OfferNotFound: the parent has no matching offer for the capability
	// used or re-offered by the child.
	OfferNotFound RoutingErrorKind = iota
	// ExposeNotFound: the child named as a source has no matching expose.
	ExposeNotFound
	// SourceChildNotFound: an offer or expose names a child that is not
	// live.
	SourceChildNotFound
	// CapabilityDeclNotFound: a routing declaration names a storage or
	// runner declaration its component does not carry.
	CapabilityDeclNotFound
	// InvalidFrameworkCapability: the declaration's shape implies a
	// framework origin but its source field disagrees, or the kind cannot
	// come from the framework.
	InvalidFrameworkCapability
	// InvalidBuiltinCapability: as above, for capabilities that would have
	// to originate above the root.
	InvalidBuiltinCapability
)

func (k RoutingErrorKind) String() string {
	switch k {
	case OfferNotFound:
		return "offer not found"
	case ExposeNotFound:
		return "expose not found"
	case SourceChildNotFound:
		return "source child not found"
	case CapabilityDeclNotFound:
		return "capability declaration not found"
	case InvalidFrameworkCapability:
		return "invalid framework capability"
	case InvalidBuiltinCapability:
		return "invalid builtin capability"
	default:
		return "unknown"
	}
}

// RoutingError reports a failed capability-routing attempt. Routing errors
// never affect instance state; the consumer simply does not receive the
// capability.
type RoutingError struct {
	Kind       RoutingErrorKind
	Moniker    moniker.AbsoluteMoniker
	Capability string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing %q at %s: %s", e.Capability, e.Moniker, e.Kind)
}
