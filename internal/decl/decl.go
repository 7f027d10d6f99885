// Package decl defines the component declaration model: the children,
// collections, use/offer/expose declarations, and capability declarations
// that drive child-map construction and capability routing.
//
// Capability declarations are modelled as small tagged unions (one sealed
// interface per declaration family) with exhaustive switch dispatch at the
// consumers. Protocol, service, and directory capabilities are identified by
// capability path; runner and event capabilities by symbolic name; storage
// capabilities by their type enum.
package decl

// StartupMode controls whether a child starts automatically when its parent
// starts.
type StartupMode int

const (
	// StartupLazy children start only when explicitly bound or when a
	// capability routed from them is accessed.
	StartupLazy StartupMode = iota
	// StartupEager children are bound automatically and synchronously when
	// their parent binds.
	StartupEager
)

func (m StartupMode) String() string {
	switch m {
	case StartupLazy:
		return "lazy"
	case StartupEager:
		return "eager"
	default:
		return "unknown"
	}
}

// Durability describes the lifetime semantics of a collection.
type Durability int

const (
	// DurabilityPersistent collections keep their children across parent
	// restarts; dynamic creation into them is not supported.
	DurabilityPersistent Durability = iota
	// DurabilityTransient collections allow runtime create/destroy.
	DurabilityTransient
)

func (d Durability) String() string {
	switch d {
	case DurabilityPersistent:
		return "persistent"
	case DurabilityTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// StorageType is the class of storage a storage capability provides.
type StorageType int

const (
	StorageData StorageType = iota
	StorageCache
	StorageMeta
)

func (t StorageType) String() string {
	switch t {
	case StorageData:
		return "data"
	case StorageCache:
		return "cache"
	case StorageMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// SourceKind names where a routed capability comes from, relative to the
// declaring component.
type SourceKind int

const (
	// SourceParent: the capability is provided by (routed through) the
	// declaring component's containing realm.
	SourceParent SourceKind = iota
	// SourceSelf: the declaring component provides the capability itself.
	SourceSelf
	// SourceFramework: the capability is implemented by the orchestrator,
	// scoped to the declaring realm.
	SourceFramework
	// SourceChild: the capability is pulled from a named child's exposes.
	SourceChild
)

func (k SourceKind) String() string {
	switch k {
	case SourceParent:
		return "parent"
	case SourceSelf:
		return "self"
	case SourceFramework:
		return "framework"
	case SourceChild:
		return "child"
	default:
		return "unknown"
	}
}

// Source is a tagged reference to the origin of a routed capability. Child
// is set only when Kind is SourceChild.
type Source struct {
	Kind  SourceKind
	Child string
}

// OfferTargetKind distinguishes offers to a single child from offers to a
// whole collection.
type OfferTargetKind int

const (
	OfferTargetChild OfferTargetKind = iota
	OfferTargetCollection
)

// OfferTarget names the child or collection an offer is directed at.
type OfferTarget struct {
	Kind OfferTargetKind
	Name string
}

// ChildDecl declares a statically- or dynamically-created child instance.
type ChildDecl struct {
	Name    string
	URL     string
	Startup StartupMode
}

// CollectionDecl declares a container for dynamically created children.
type CollectionDecl struct {
	Name       string
	Durability Durability
}

// StorageDecl declares a storage capability backed by a directory the
// declaring component can reach.
type StorageDecl struct {
	Name       string
	Source     Source
	SourcePath string
}

// RunnerDecl declares a runner capability provided by the declaring
// component's outgoing directory.
type RunnerDecl struct {
	Name       string
	Source     Source
	SourcePath string
}

// ComponentDecl is the resolved declaration of one component, as produced by
// a Resolver. It drives both child-map construction and capability matching.
type ComponentDecl struct {
	Program     map[string]string
	Uses        []UseDecl
	Exposes     []ExposeDecl
	Offers      []OfferDecl
	Storage     []StorageDecl
	Runners     []RunnerDecl
	Children    []ChildDecl
	Collections []CollectionDecl
}

// FindCollection returns the declared collection with the given name, if any.
func (d *ComponentDecl) FindCollection(name string) (CollectionDecl, bool) {
	for _, c := range d.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionDecl{}, false
}

// FindStorage returns the storage declaration with the given name, if any.
func (d *ComponentDecl) FindStorage(name string) (StorageDecl, bool) {
	for _, s := range d.Storage {
		if s.Name == name {
			return s, true
		}
	}
	return StorageDecl{}, false
}

// FindRunner returns the runner declaration with the given name, if any.
func (d *ComponentDecl) FindRunner(name string) (RunnerDecl, bool) {
	for _, r := range d.Runners {
		if r.Name == name {
			return r, true
		}
	}
	return RunnerDecl{}, false
}
