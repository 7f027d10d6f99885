package model

import (
	"context"
	"sync"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/moniker"
	"github.com/vk/componentd/internal/resolver"
	"github.com/vk/componentd/internal/runner"
)

// environment is the shared machinery every realm in one tree holds: the
// resolver registry, the runner, and namespace construction. It is immutable
// after New.
type environment struct {
	resolvers  *resolver.Registry
	runner     runner.Runner
	nsBuilder  NamespaceBuilder
	outDirRoot string
}

// lifecycleState tracks a realm through dynamic destruction. Transitions are
// one-way: live -> tombstoned -> destroyed.
type lifecycleState int

const (
	// lifecycleLive: the realm is visible to lookups and dynamic management.
	lifecycleLive lifecycleState = iota
	// lifecycleTombstoned: destruction has begun. The realm is invisible to
	// live lookups but callers that already hold a reference may finish
	// in-flight work against it.
	lifecycleTombstoned
	// lifecycleDestroyed: finalization is complete; the realm is detached
	// from its parent and can never run again.
	lifecycleDestroyed
)

// Realm is one node of the instance tree: an instance of a component
// together with the container for its children. A realm starts unresolved
// (state == nil); resolution attaches the declaration and materializes the
// static child map. Execution presence is the sole definition of "started".
//
// Lock order: a realm's mu is held across the resolve/namespace/start
// suspension points of a bind, so concurrent binds of the same instance
// serialize. execMu nests inside mu and guards only the execution pointer,
// letting readers check started-ness without contending with a bind in
// progress on a different realm.
type Realm struct {
	env    *environment
	parent *Realm

	abs          moniker.AbsoluteMoniker
	componentURL string
	startup      decl.StartupMode

	mu        sync.Mutex
	state     *realmState
	life      lifecycleState
	destroyed chan struct{}

	// finalizeOnce serializes teardown: a realm can be reached for
	// finalization both by its own removal and by a tombstoned ancestor's
	// cascade.
	finalizeOnce sync.Once

	execMu    sync.Mutex
	execution *Execution
}

// realmState is the resolved portion of a realm.
type realmState struct {
	decl        *decl.ComponentDecl
	resolvedURL string
	packageDir  string

	// children holds every child ever created and not yet finalized,
	// keyed by full child moniker (tombstoned children included).
	children map[moniker.ChildMoniker]*Realm
	// live maps (name, collection) to the current live child, if any.
	live map[moniker.PartialMoniker]moniker.ChildMoniker
	// order preserves creation order: static children in declaration
	// order, then dynamic children as created.
	order []moniker.ChildMoniker
	// nextInstanceID is the id the next dynamic child receives. Ids are
	// strictly increasing per realm; 0 is reserved for static children.
	nextInstanceID uint32
}

func newRealm(env *environment, parent *Realm, abs moniker.AbsoluteMoniker, url string, startup decl.StartupMode) *Realm {
	return &Realm{
		env:          env,
		parent:       parent,
		abs:          abs,
		componentURL: url,
		startup:      startup,
		destroyed:    make(chan struct{}),
	}
}

// Moniker returns the realm's absolute moniker.
func (r *Realm) Moniker() moniker.AbsoluteMoniker { return r.abs }

// ComponentURL returns the URL the realm resolves from.
func (r *Realm) ComponentURL() string { return r.componentURL }

// Parent returns the containing realm, or nil for the root.
func (r *Realm) Parent() *Realm { return r.parent }

// IsStarted reports whether the instance currently has an execution.
func (r *Realm) IsStarted() bool {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.execution != nil
}

// ExecutionInfo returns a copy of the current execution, if any.
func (r *Realm) ExecutionInfo() (Execution, bool) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	if r.execution == nil {
		return Execution{}, false
	}
	return *r.execution, true
}

func (r *Realm) setExecution(e *Execution) {
	r.execMu.Lock()
	r.execution = e
	r.execMu.Unlock()
}

// isGone reports whether destruction has begun. Weak references refuse to
// upgrade once this is true.
func (r *Realm) isGone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.life != lifecycleLive
}

func (r *Realm) isDestroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.life == lifecycleDestroyed
}

// Resolve ensures the realm's declaration is attached and its static
// children exist. Idempotent; the first caller pays for resolution.
func (r *Realm) Resolve(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(ctx)
}

func (r *Realm) resolveLocked(ctx context.Context) error {
	if r.state != nil {
		return nil
	}
	rc, err := r.env.resolvers.Resolve(ctx, r.componentURL)
	if err != nil {
		return err
	}
	s := &realmState{
		decl:        rc.Decl,
		resolvedURL: rc.URL,
		packageDir:  rc.PackageDir,
		children:    make(map[moniker.ChildMoniker]*Realm, len(rc.Decl.Children)),
		live:        make(map[moniker.PartialMoniker]moniker.ChildMoniker, len(rc.Decl.Children)),
		// Dynamic ids start at 1 so a static child and its dynamic
		// namesake never collide.
		nextInstanceID: 1,
	}
	for _, cd := range rc.Decl.Children {
		s.attachChild(r, cd, "")
	}
	r.state = s
	ctxlog.FromContext(ctx).Debug("Resolved component.", "moniker", r.abs.String(), "url", rc.URL)
	return nil
}

// attachChild creates a child realm and links it into the state's maps. The
// caller has already checked for live collisions.
func (s *realmState) attachChild(parent *Realm, cd decl.ChildDecl, collection string) *Realm {
	var cm moniker.ChildMoniker
	if collection == "" {
		cm = moniker.NewChild(cd.Name)
	} else {
		cm = moniker.NewChildIn(collection, cd.Name, s.nextInstanceID)
		s.nextInstanceID++
	}
	child := newRealm(parent.env, parent, parent.abs.Child(cm), cd.URL, cd.Startup)
	s.children[cm] = child
	s.live[cm.ToPartial()] = cm
	s.order = append(s.order, cm)
	return child
}

// ResolvedDecl resolves the realm if needed and returns its declaration.
func (r *Realm) ResolvedDecl(ctx context.Context) (*decl.ComponentDecl, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveLocked(ctx); err != nil {
		return nil, err
	}
	return r.state.decl, nil
}

// LiveChild resolves the realm if needed and returns the live child realm
// addressed by partial, or an InstanceNotFoundError. Tombstoned children are
// never returned.
func (r *Realm) LiveChild(ctx context.Context, partial moniker.PartialMoniker) (*Realm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveLocked(ctx); err != nil {
		return nil, err
	}
	return r.liveChildLocked(partial)
}

func (r *Realm) liveChildLocked(partial moniker.PartialMoniker) (*Realm, error) {
	cm, ok := r.state.live[partial]
	if !ok {
		return nil, &InstanceNotFoundError{Moniker: r.abs.Child(moniker.NewChildIn(partial.Collection(), partial.Name(), 0))}
	}
	return r.state.children[cm], nil
}

// LiveChildren resolves the realm if needed and returns the monikers of its
// live children in creation order.
func (r *Realm) LiveChildren(ctx context.Context) ([]moniker.ChildMoniker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveLocked(ctx); err != nil {
		return nil, err
	}
	var out []moniker.ChildMoniker
	for _, cm := range r.state.order {
		if live, ok := r.state.live[cm.ToPartial()]; ok && live == cm {
			out = append(out, cm)
		}
	}
	return out, nil
}

// childForSegment locates the child realm addressed by one absolute-moniker
// segment. Exact ids match any child still attached; a dynamic segment with
// id 0 falls back to the live child of that (collection, name), since parsed
// monikers carry no ids.
func (r *Realm) childForSegment(ctx context.Context, seg moniker.ChildMoniker) (*Realm, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.resolveLocked(ctx); err != nil {
		return nil, false, err
	}
	if child, ok := r.state.children[seg]; ok {
		// A finalized child may linger in the map until its parent detaches
		// it; it is no longer addressable.
		if child.isDestroyed() {
			return nil, false, nil
		}
		return child, true, nil
	}
	if seg.InstanceID() == 0 && seg.Collection() != "" {
		if cm, ok := r.state.live[seg.ToPartial()]; ok {
			return r.state.children[cm], true, nil
		}
	}
	return nil, false, nil
}

// AddDynamicChild creates a child in the named transient collection. The
// child is created stopped and unresolved; it participates in routing and
// lookups immediately.
func (r *Realm) AddDynamicChild(ctx context.Context, collection string, cd decl.ChildDecl) (*Realm, error) {
	if err := decl.ValidateChild(cd); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.life != lifecycleLive {
		return nil, &InstanceNotFoundError{Moniker: r.abs}
	}
	if err := r.resolveLocked(ctx); err != nil {
		return nil, err
	}
	coll, ok := r.state.decl.FindCollection(collection)
	if !ok {
		return nil, &CollectionNotFoundError{Realm: r.abs, Name: collection}
	}
	if coll.Durability != decl.DurabilityTransient {
		return nil, &UnsupportedError{Op: "dynamic creation in a " + coll.Durability.String() + " collection"}
	}
	partial := moniker.NewPartial(collection, cd.Name)
	if _, ok := r.state.live[partial]; ok {
		return nil, &InstanceAlreadyExistsError{Realm: r.abs, Child: partial}
	}
	child := r.state.attachChild(r, cd, collection)
	ctxlog.FromContext(ctx).Info("Created dynamic child.",
		"moniker", child.abs.String(), "url", cd.URL)
	return child, nil
}

// RemoveDynamicChild tombstones the live child addressed by partial and
// begins asynchronous finalization. The child disappears from live lookups
// before this returns; Destroyed reports when teardown is complete.
func (r *Realm) RemoveDynamicChild(ctx context.Context, partial moniker.PartialMoniker) error {
	r.mu.Lock()
	if r.life != lifecycleLive {
		// A gone parent's children are torn down by its own finalization.
		r.mu.Unlock()
		return &InstanceNotFoundError{Moniker: r.abs.Child(moniker.NewChildIn(partial.Collection(), partial.Name(), 0))}
	}
	if err := r.resolveLocked(ctx); err != nil {
		r.mu.Unlock()
		return err
	}
	cm, ok := r.state.live[partial]
	if !ok {
		r.mu.Unlock()
		return &InstanceNotFoundError{Moniker: r.abs.Child(moniker.NewChildIn(partial.Collection(), partial.Name(), 0))}
	}
	child := r.state.children[cm]
	delete(r.state.live, partial)
	r.mu.Unlock()

	child.markTombstoned()
	logger := ctxlog.FromContext(ctx)
	logger.Info("Destroying dynamic child.", "moniker", child.abs.String())

	go func() {
		child.finalize()
		r.detachChild(cm)
		logger.Debug("Destroyed dynamic child.", "moniker", child.abs.String())
	}()
	return nil
}

func (r *Realm) markTombstoned() {
	r.mu.Lock()
	if r.life == lifecycleLive {
		r.life = lifecycleTombstoned
	}
	r.mu.Unlock()
}

// finalize tears the realm down bottom-up: descendants first, then the
// execution, then the destroyed mark. Safe to call more than once; late
// arrivals wait for the first teardown to complete.
func (r *Realm) finalize() {
	r.finalizeOnce.Do(r.runFinalize)
}

func (r *Realm) runFinalize() {
	r.mu.Lock()
	var children []*Realm
	if r.state != nil {
		children = make([]*Realm, 0, len(r.state.children))
		for _, c := range r.state.children {
			children = append(children, c)
		}
		r.state.live = map[moniker.PartialMoniker]moniker.ChildMoniker{}
	}
	r.mu.Unlock()

	for _, c := range children {
		c.markTombstoned()
		c.finalize()
	}

	r.setExecution(nil)

	r.mu.Lock()
	r.life = lifecycleDestroyed
	r.mu.Unlock()
	close(r.destroyed)
}

func (r *Realm) detachChild(cm moniker.ChildMoniker) {
	r.mu.Lock()
	if r.state != nil {
		delete(r.state.children, cm)
	}
	r.mu.Unlock()
}

// Destroyed returns a channel closed when the realm's finalization has
// completed.
func (r *Realm) Destroyed() <-chan struct{} { return r.destroyed }
