package model

import (
	"fmt"

	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/moniker"
)

// CapabilitySource describes where a routed capability ultimately comes
// from. It is a closed union: ComponentCapabilitySource,
// FrameworkCapabilitySource, or AboveRootCapabilitySource.
type CapabilitySource interface {
	fmt.Stringer
	capabilitySource()
}

// ComponentCapabilitySource: the capability is served by a component
// instance in the tree, held through a weak reference so a destroyed
// provider is detected at use time rather than pinned alive.
type ComponentCapabilitySource struct {
	Capability ComponentCapability
	Realm      *WeakRealm
}

func (ComponentCapabilitySource) capabilitySource() {}

func (s ComponentCapabilitySource) String() string {
	return fmt.Sprintf("component %s: %s", s.Realm.Moniker, s.Capability)
}

// FrameworkCapabilitySource: the capability is implemented by the
// orchestrator itself, scoped to one realm.
type FrameworkCapabilitySource struct {
	Capability   InternalCapability
	ScopeMoniker moniker.AbsoluteMoniker
}

func (FrameworkCapabilitySource) capabilitySource() {}

func (s FrameworkCapabilitySource) String() string {
	return fmt.Sprintf("framework (scope %s): %s", s.ScopeMoniker, s.Capability)
}

// AboveRootCapabilitySource: the routing walk ran past the root, so the
// capability must be provided by the orchestrator's own environment.
type AboveRootCapabilitySource struct {
	Capability InternalCapability
}

func (AboveRootCapabilitySource) capabilitySource() {}

func (s AboveRootCapabilitySource) String() string {
	return fmt.Sprintf("above root: %s", s.Capability)
}

// ComponentCapability identifies a capability as its providing component
// declares it. Exactly one field is set.
type ComponentCapability struct {
	// Offer or Expose is the provider's own declaration for path-identified
	// capabilities, whose SourcePath is the path in the provider's outgoing
	// directory.
	Offer  decl.OfferDecl
	Expose decl.ExposeDecl
	// Storage is set when the provider declares the backing storage.
	Storage *decl.StorageDecl
	// Runner is set when the provider declares the runner.
	Runner *decl.RunnerDecl
}

func (c ComponentCapability) String() string {
	switch {
	case c.Storage != nil:
		return fmt.Sprintf("storage %q", c.Storage.Name)
	case c.Runner != nil:
		return fmt.Sprintf("runner %q", c.Runner.Name)
	case c.Offer != nil:
		return fmt.Sprintf("offer %T", c.Offer)
	case c.Expose != nil:
		return fmt.Sprintf("expose %T", c.Expose)
	default:
		return "unknown"
	}
}

// SourcePath returns the provider-side path for path-identified
// capabilities, or "" for name-identified ones.
func (c ComponentCapability) SourcePath() string {
	switch {
	case c.Storage != nil:
		return c.Storage.SourcePath
	case c.Runner != nil:
		return c.Runner.SourcePath
	}
	switch o := c.Offer.(type) {
	case decl.OfferProtocolDecl:
		return o.SourcePath
	case decl.OfferServiceDecl:
		return o.SourcePath
	case decl.OfferDirectoryDecl:
		return o.SourcePath
	}
	switch e := c.Expose.(type) {
	case decl.ExposeProtocolDecl:
		return e.SourcePath
	case decl.ExposeServiceDecl:
		return e.SourcePath
	case decl.ExposeDirectoryDecl:
		return e.SourcePath
	}
	return ""
}

// InternalCapability identifies a capability implemented by the orchestrator,
// either framework-scoped or above the root. Path-identified kinds set Path;
// name-identified kinds set Name.
type InternalCapability struct {
	TypeName string
	Path     string
	Name     string
}

func (c InternalCapability) String() string {
	id := c.Path
	if id == "" {
		id = c.Name
	}
	return fmt.Sprintf("%s %q", c.TypeName, id)
}

// WeakRealm is a non-owning reference to a realm. Upgrade fails once the
// realm's destruction has begun, so capability sources cached across a
// dynamic destroy cannot resurrect the provider.
type WeakRealm struct {
	Moniker moniker.AbsoluteMoniker
	realm   *Realm
}

func newWeakRealm(r *Realm) *WeakRealm {
	return &WeakRealm{Moniker: r.Moniker(), realm: r}
}

// Upgrade returns the referenced realm, or an InstanceNotFoundError if it is
// tombstoned or destroyed.
func (w *WeakRealm) Upgrade() (*Realm, error) {
	if w.realm == nil || w.realm.isGone() {
		return nil, &InstanceNotFoundError{Moniker: w.Moniker}
	}
	return w.realm, nil
}
