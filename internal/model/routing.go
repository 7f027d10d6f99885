package model

import (
	"context"
	"fmt"

	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/moniker"
)

// routedCapability is the capability being routed, as represented by the
// declaration at the current hop of the walk. Exactly one field is set: a
// use at the consumer, an offer or expose picked up mid-walk, or a storage
// declaration whose backing directory is being located.
type routedCapability struct {
	use     decl.UseDecl
	offer   decl.OfferDecl
	expose  decl.ExposeDecl
	storage *decl.StorageDecl
}

func (c routedCapability) name() string {
	switch {
	case c.use != nil:
		return declName(c.use)
	case c.offer != nil:
		return declName(c.offer)
	case c.expose != nil:
		return declName(c.expose)
	case c.storage != nil:
		return fmt.Sprintf("storage %q backing directory", c.storage.Name)
	default:
		return "unknown"
	}
}

func declName(d any) string {
	switch d := d.(type) {
	case decl.UseProtocolDecl:
		return "protocol " + d.SourcePath
	case decl.UseServiceDecl:
		return "service " + d.SourcePath
	case decl.UseDirectoryDecl:
		return "directory " + d.SourcePath
	case decl.UseStorageDecl:
		return "storage " + d.Type.String()
	case decl.UseRunnerDecl:
		return "runner " + d.SourceName
	case decl.UseEventDecl:
		return "event " + d.SourceName
	case decl.OfferProtocolDecl:
		return "protocol " + d.SourcePath
	case decl.OfferServiceDecl:
		return "service " + d.SourcePath
	case decl.OfferDirectoryDecl:
		return "directory " + d.SourcePath
	case decl.OfferStorageDecl:
		return "storage " + d.Type.String()
	case decl.OfferRunnerDecl:
		return "runner " + d.SourceName
	case decl.OfferEventDecl:
		return "event " + d.SourceName
	case decl.ExposeProtocolDecl:
		return "protocol " + d.SourcePath
	case decl.ExposeServiceDecl:
		return "service " + d.SourcePath
	case decl.ExposeDirectoryDecl:
		return "directory " + d.SourcePath
	case decl.ExposeRunnerDecl:
		return "runner " + d.SourceName
	default:
		return fmt.Sprintf("%T", d)
	}
}

// walkPosition tracks the routing walk: the capability as last declared,
// the realm being inspected, and (while ascending) which child the parent's
// offer must target.
type walkPosition struct {
	cap       routedCapability
	current   *Realm
	lastChild moniker.ChildMoniker
}

// FindUsedCapabilitySource locates the provider of the capability named by
// one of target's use declarations. Framework-sourced uses short-circuit to
// a framework source scoped at the target; everything else walks up through
// parent offers and down through child exposes until a providing component,
// the framework, or the space above the root is reached. The walk never
// starts any instance.
func (m *Model) FindUsedCapabilitySource(ctx context.Context, use decl.UseDecl, target *Realm) (CapabilitySource, error) {
	if src, ok := useSource(use); ok && src.Kind == decl.SourceFramework {
		internal, err := frameworkFromUse(use, target.Moniker())
		if err != nil {
			return nil, err
		}
		return FrameworkCapabilitySource{Capability: internal, ScopeMoniker: target.Moniker()}, nil
	}

	pos := walkPosition{cap: routedCapability{use: use}, current: target.Parent()}
	pos.lastChild, _ = target.Moniker().Leaf()

	src, err := m.walkOfferChain(ctx, &pos)
	if err != nil || src != nil {
		return src, err
	}
	return m.walkExposeChain(ctx, &pos)
}

// FindStorageBackingDirectorySource locates the directory capability backing
// a storage declaration, starting at the component that declares it.
func (m *Model) FindStorageBackingDirectorySource(ctx context.Context, sd decl.StorageDecl, provider *Realm) (CapabilitySource, error) {
	switch sd.Source.Kind {
	case decl.SourceSelf:
		s := sd
		return ComponentCapabilitySource{
			Capability: ComponentCapability{Storage: &s},
			Realm:      newWeakRealm(provider),
		}, nil
	case decl.SourceParent:
		s := sd
		pos := walkPosition{cap: routedCapability{storage: &s}, current: provider.Parent()}
		pos.lastChild, _ = provider.Moniker().Leaf()
		src, err := m.walkOfferChain(ctx, &pos)
		if err != nil || src != nil {
			return src, err
		}
		return m.walkExposeChain(ctx, &pos)
	case decl.SourceChild:
		child, err := provider.LiveChild(ctx, moniker.NewPartial("", sd.Source.Child))
		if err != nil {
			return nil, &RoutingError{Kind: SourceChildNotFound, Moniker: provider.Moniker(), Capability: "storage " + sd.Name}
		}
		s := sd
		pos := walkPosition{cap: routedCapability{storage: &s}, current: child}
		return m.walkExposeChain(ctx, &pos)
	default:
		return nil, &RoutingError{Kind: InvalidFrameworkCapability, Moniker: provider.Moniker(), Capability: "storage " + sd.Name}
	}
}

// walkOfferChain ascends the tree following offers whose source is the
// containing realm. It terminates at a providing component, the framework,
// or above the root. When an offer's source is a child it repositions the
// walk at that child and returns (nil, nil) so the caller continues down the
// expose chain.
func (m *Model) walkOfferChain(ctx context.Context, pos *walkPosition) (CapabilitySource, error) {
	for {
		if pos.current == nil {
			internal, err := builtinCapability(pos.cap)
			if err != nil {
				return nil, err
			}
			return AboveRootCapabilitySource{Capability: internal}, nil
		}
		d, err := pos.current.ResolvedDecl(ctx)
		if err != nil {
			return nil, err
		}
		offer := findOfferSource(pos.cap, d, pos.lastChild)
		if offer == nil {
			return nil, &RoutingError{Kind: OfferNotFound, Moniker: pos.current.Moniker(), Capability: pos.cap.name()}
		}
		switch src := offerSource(offer); src.Kind {
		case decl.SourceParent:
			pos.cap = routedCapability{offer: offer}
			pos.lastChild, _ = pos.current.Moniker().Leaf()
			pos.current = pos.current.Parent()
		case decl.SourceSelf:
			return componentSourceFromOffer(offer, d, pos.current)
		case decl.SourceFramework:
			internal, err := frameworkFromOffer(offer, pos.current.Moniker())
			if err != nil {
				return nil, err
			}
			return FrameworkCapabilitySource{Capability: internal, ScopeMoniker: pos.current.Moniker()}, nil
		case decl.SourceChild:
			child, err := pos.current.LiveChild(ctx, moniker.NewPartial("", src.Child))
			if err != nil {
				return nil, &RoutingError{Kind: SourceChildNotFound, Moniker: pos.current.Moniker(), Capability: pos.cap.name()}
			}
			pos.cap = routedCapability{offer: offer}
			pos.current = child
			return nil, nil
		default:
			return nil, &RoutingError{Kind: OfferNotFound, Moniker: pos.current.Moniker(), Capability: pos.cap.name()}
		}
	}
}

// walkExposeChain descends the tree following exposes whose source is a
// child, until a providing component or the framework is reached.
func (m *Model) walkExposeChain(ctx context.Context, pos *walkPosition) (CapabilitySource, error) {
	for {
		d, err := pos.current.ResolvedDecl(ctx)
		if err != nil {
			return nil, err
		}
		expose := findExposeSource(pos.cap, d)
		if expose == nil {
			return nil, &RoutingError{Kind: ExposeNotFound, Moniker: pos.current.Moniker(), Capability: pos.cap.name()}
		}
		switch src := exposeSource(expose); src.Kind {
		case decl.SourceSelf:
			return componentSourceFromExpose(expose, d, pos.current)
		case decl.SourceFramework:
			internal, err := frameworkFromExpose(expose, pos.current.Moniker())
			if err != nil {
				return nil, err
			}
			return FrameworkCapabilitySource{Capability: internal, ScopeMoniker: pos.current.Moniker()}, nil
		case decl.SourceChild:
			child, err := pos.current.LiveChild(ctx, moniker.NewPartial("", src.Child))
			if err != nil {
				return nil, &RoutingError{Kind: SourceChildNotFound, Moniker: pos.current.Moniker(), Capability: pos.cap.name()}
			}
			pos.cap = routedCapability{expose: expose}
			pos.current = child
		default:
			return nil, &RoutingError{Kind: ExposeNotFound, Moniker: pos.current.Moniker(), Capability: pos.cap.name()}
		}
	}
}

// findOfferSource scans d's offers for one that targets child and matches
// the routed capability's identity.
func findOfferSource(cap routedCapability, d *decl.ComponentDecl, child moniker.ChildMoniker) decl.OfferDecl {
	for _, o := range d.Offers {
		if !targetMatchesChild(o.OfferTarget(), child) {
			continue
		}
		if offerMatches(cap, o) {
			return o
		}
	}
	return nil
}

// targetMatchesChild: an offer to a child matches by exact name outside any
// collection; an offer to a collection matches every member of it.
func targetMatchesChild(t decl.OfferTarget, child moniker.ChildMoniker) bool {
	switch t.Kind {
	case decl.OfferTargetChild:
		return child.Collection() == "" && t.Name == child.Name()
	case decl.OfferTargetCollection:
		return child.Collection() == t.Name
	default:
		return false
	}
}

func offerMatches(cap routedCapability, o decl.OfferDecl) bool {
	switch c := cap.use.(type) {
	case decl.UseProtocolDecl:
		od, ok := o.(decl.OfferProtocolDecl)
		return ok && c.SourcePath == od.TargetPath
	case decl.UseServiceDecl:
		od, ok := o.(decl.OfferServiceDecl)
		return ok && c.SourcePath == od.TargetPath
	case decl.UseDirectoryDecl:
		od, ok := o.(decl.OfferDirectoryDecl)
		return ok && c.SourcePath == od.TargetPath
	case decl.UseStorageDecl:
		od, ok := o.(decl.OfferStorageDecl)
		return ok && c.Type == od.Type
	case decl.UseRunnerDecl:
		od, ok := o.(decl.OfferRunnerDecl)
		return ok && c.SourceName == od.TargetName
	case decl.UseEventDecl:
		od, ok := o.(decl.OfferEventDecl)
		return ok && c.SourceName == od.TargetName
	}
	switch c := cap.offer.(type) {
	case decl.OfferProtocolDecl:
		od, ok := o.(decl.OfferProtocolDecl)
		return ok && c.SourcePath == od.TargetPath
	case decl.OfferServiceDecl:
		od, ok := o.(decl.OfferServiceDecl)
		return ok && c.SourcePath == od.TargetPath
	case decl.OfferDirectoryDecl:
		od, ok := o.(decl.OfferDirectoryDecl)
		return ok && c.SourcePath == od.TargetPath
	case decl.OfferStorageDecl:
		od, ok := o.(decl.OfferStorageDecl)
		return ok && c.Type == od.Type
	case decl.OfferRunnerDecl:
		od, ok := o.(decl.OfferRunnerDecl)
		return ok && c.SourceName == od.TargetName
	case decl.OfferEventDecl:
		od, ok := o.(decl.OfferEventDecl)
		return ok && c.SourceName == od.TargetName
	}
	if cap.storage != nil {
		od, ok := o.(decl.OfferDirectoryDecl)
		return ok && cap.storage.SourcePath == od.TargetPath
	}
	return false
}

// findExposeSource scans d's exposes for one matching the routed
// capability's identity.
func findExposeSource(cap routedCapability, d *decl.ComponentDecl) decl.ExposeDecl {
	for _, e := range d.Exposes {
		if exposeMatches(cap, e) {
			return e
		}
	}
	return nil
}

func exposeMatches(cap routedCapability, e decl.ExposeDecl) bool {
	switch c := cap.use.(type) {
	case decl.UseProtocolDecl:
		ed, ok := e.(decl.ExposeProtocolDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.UseServiceDecl:
		ed, ok := e.(decl.ExposeServiceDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.UseDirectoryDecl:
		ed, ok := e.(decl.ExposeDirectoryDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.UseRunnerDecl:
		ed, ok := e.(decl.ExposeRunnerDecl)
		return ok && c.SourceName == ed.TargetName
	}
	switch c := cap.offer.(type) {
	case decl.OfferProtocolDecl:
		ed, ok := e.(decl.ExposeProtocolDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.OfferServiceDecl:
		ed, ok := e.(decl.ExposeServiceDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.OfferDirectoryDecl:
		ed, ok := e.(decl.ExposeDirectoryDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.OfferRunnerDecl:
		ed, ok := e.(decl.ExposeRunnerDecl)
		return ok && c.SourceName == ed.TargetName
	}
	switch c := cap.expose.(type) {
	case decl.ExposeProtocolDecl:
		ed, ok := e.(decl.ExposeProtocolDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.ExposeServiceDecl:
		ed, ok := e.(decl.ExposeServiceDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.ExposeDirectoryDecl:
		ed, ok := e.(decl.ExposeDirectoryDecl)
		return ok && c.SourcePath == ed.TargetPath
	case decl.ExposeRunnerDecl:
		ed, ok := e.(decl.ExposeRunnerDecl)
		return ok && c.SourceName == ed.TargetName
	}
	if cap.storage != nil {
		ed, ok := e.(decl.ExposeDirectoryDecl)
		return ok && cap.storage.SourcePath == ed.TargetPath
	}
	return false
}

func useSource(u decl.UseDecl) (decl.Source, bool) {
	switch u := u.(type) {
	case decl.UseProtocolDecl:
		return u.Source, true
	case decl.UseServiceDecl:
		return u.Source, true
	case decl.UseDirectoryDecl:
		return u.Source, true
	case decl.UseEventDecl:
		return u.Source, true
	default:
		// Storage and runner uses always route through the parent.
		return decl.Source{}, false
	}
}

func offerSource(o decl.OfferDecl) decl.Source {
	switch o := o.(type) {
	case decl.OfferProtocolDecl:
		return o.Source
	case decl.OfferServiceDecl:
		return o.Source
	case decl.OfferDirectoryDecl:
		return o.Source
	case decl.OfferStorageDecl:
		return o.Source
	case decl.OfferRunnerDecl:
		return o.Source
	case decl.OfferEventDecl:
		return o.Source
	default:
		return decl.Source{}
	}
}

func exposeSource(e decl.ExposeDecl) decl.Source {
	switch e := e.(type) {
	case decl.ExposeProtocolDecl:
		return e.Source
	case decl.ExposeServiceDecl:
		return e.Source
	case decl.ExposeDirectoryDecl:
		return e.Source
	case decl.ExposeRunnerDecl:
		return e.Source
	default:
		return decl.Source{}
	}
}

// componentSourceFromOffer resolves a self-sourced offer into the provider's
// own capability declaration.
func componentSourceFromOffer(o decl.OfferDecl, d *decl.ComponentDecl, r *Realm) (CapabilitySource, error) {
	switch o := o.(type) {
	case decl.OfferStorageDecl:
		sd, ok := d.FindStorage(o.SourceName)
		if !ok {
			return nil, &RoutingError{Kind: CapabilityDeclNotFound, Moniker: r.Moniker(), Capability: "storage " + o.SourceName}
		}
		return ComponentCapabilitySource{Capability: ComponentCapability{Storage: &sd}, Realm: newWeakRealm(r)}, nil
	case decl.OfferRunnerDecl:
		rd, ok := d.FindRunner(o.SourceName)
		if !ok {
			return nil, &RoutingError{Kind: CapabilityDeclNotFound, Moniker: r.Moniker(), Capability: "runner " + o.SourceName}
		}
		return ComponentCapabilitySource{Capability: ComponentCapability{Runner: &rd}, Realm: newWeakRealm(r)}, nil
	default:
		return ComponentCapabilitySource{Capability: ComponentCapability{Offer: o}, Realm: newWeakRealm(r)}, nil
	}
}

// componentSourceFromExpose resolves a self-sourced expose into the
// provider's own capability declaration.
func componentSourceFromExpose(e decl.ExposeDecl, d *decl.ComponentDecl, r *Realm) (CapabilitySource, error) {
	switch e := e.(type) {
	case decl.ExposeRunnerDecl:
		rd, ok := d.FindRunner(e.SourceName)
		if !ok {
			return nil, &RoutingError{Kind: CapabilityDeclNotFound, Moniker: r.Moniker(), Capability: "runner " + e.SourceName}
		}
		return ComponentCapabilitySource{Capability: ComponentCapability{Runner: &rd}, Realm: newWeakRealm(r)}, nil
	default:
		return ComponentCapabilitySource{Capability: ComponentCapability{Expose: e}, Realm: newWeakRealm(r)}, nil
	}
}

// frameworkFromUse maps a framework-sourced use onto the framework
// capability it names. Storage and runner capabilities are never provided by
// the framework.
func frameworkFromUse(u decl.UseDecl, at moniker.AbsoluteMoniker) (InternalCapability, error) {
	switch u := u.(type) {
	case decl.UseProtocolDecl:
		return InternalCapability{TypeName: "protocol", Path: u.SourcePath}, nil
	case decl.UseServiceDecl:
		return InternalCapability{TypeName: "service", Path: u.SourcePath}, nil
	case decl.UseDirectoryDecl:
		return InternalCapability{TypeName: "directory", Path: u.SourcePath}, nil
	case decl.UseEventDecl:
		return InternalCapability{TypeName: "event", Name: u.SourceName}, nil
	default:
		return InternalCapability{}, &RoutingError{Kind: InvalidFrameworkCapability, Moniker: at, Capability: declName(u)}
	}
}

func frameworkFromOffer(o decl.OfferDecl, at moniker.AbsoluteMoniker) (InternalCapability, error) {
	switch o := o.(type) {
	case decl.OfferProtocolDecl:
		return InternalCapability{TypeName: "protocol", Path: o.SourcePath}, nil
	case decl.OfferServiceDecl:
		return InternalCapability{TypeName: "service", Path: o.SourcePath}, nil
	case decl.OfferDirectoryDecl:
		return InternalCapability{TypeName: "directory", Path: o.SourcePath}, nil
	case decl.OfferEventDecl:
		return InternalCapability{TypeName: "event", Name: o.SourceName}, nil
	default:
		return InternalCapability{}, &RoutingError{Kind: InvalidFrameworkCapability, Moniker: at, Capability: declName(o)}
	}
}

func frameworkFromExpose(e decl.ExposeDecl, at moniker.AbsoluteMoniker) (InternalCapability, error) {
	switch e := e.(type) {
	case decl.ExposeProtocolDecl:
		return InternalCapability{TypeName: "protocol", Path: e.SourcePath}, nil
	case decl.ExposeServiceDecl:
		return InternalCapability{TypeName: "service", Path: e.SourcePath}, nil
	case decl.ExposeDirectoryDecl:
		return InternalCapability{TypeName: "directory", Path: e.SourcePath}, nil
	default:
		return InternalCapability{}, &RoutingError{Kind: InvalidFrameworkCapability, Moniker: at, Capability: declName(e)}
	}
}

// builtinCapability maps a walk that ran past the root onto the capability
// the environment would have to provide. Storage cannot originate above the
// root.
func builtinCapability(cap routedCapability) (InternalCapability, error) {
	switch c := cap.use.(type) {
	case decl.UseProtocolDecl:
		return InternalCapability{TypeName: "protocol", Path: c.SourcePath}, nil
	case decl.UseServiceDecl:
		return InternalCapability{TypeName: "service", Path: c.SourcePath}, nil
	case decl.UseDirectoryDecl:
		return InternalCapability{TypeName: "directory", Path: c.SourcePath}, nil
	case decl.UseRunnerDecl:
		return InternalCapability{TypeName: "runner", Name: c.SourceName}, nil
	case decl.UseEventDecl:
		return InternalCapability{TypeName: "event", Name: c.SourceName}, nil
	}
	switch c := cap.offer.(type) {
	case decl.OfferProtocolDecl:
		return InternalCapability{TypeName: "protocol", Path: c.SourcePath}, nil
	case decl.OfferServiceDecl:
		return InternalCapability{TypeName: "service", Path: c.SourcePath}, nil
	case decl.OfferDirectoryDecl:
		return InternalCapability{TypeName: "directory", Path: c.SourcePath}, nil
	case decl.OfferRunnerDecl:
		return InternalCapability{TypeName: "runner", Name: c.SourceName}, nil
	case decl.OfferEventDecl:
		return InternalCapability{TypeName: "event", Name: c.SourceName}, nil
	}
	return InternalCapability{}, &RoutingError{Kind: InvalidBuiltinCapability, Moniker: moniker.RootMoniker(), Capability: cap.name()}
}
