// Package model implements the instance tree and its lifecycle: lazy
// resolution of realms, binding (start-on-demand with eager propagation),
// dynamic child management, and capability routing across the tree.
package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/moniker"
	"github.com/vk/componentd/internal/resolver"
	"github.com/vk/componentd/internal/runner"
)

// Params configures a Model.
type Params struct {
	// RootComponentURL is the URL the root realm resolves from.
	RootComponentURL string
	// Resolvers dispatches component URLs by scheme.
	Resolvers *resolver.Registry
	// Runner starts every instance in the tree.
	Runner runner.Runner
	// NamespaceBuilder assembles incoming namespaces; defaults to
	// PackageNamespaceBuilder.
	NamespaceBuilder NamespaceBuilder
	// OutDirRoot, when set, is a directory under which each started
	// instance gets an outgoing directory. Empty disables outgoing
	// directories.
	OutDirRoot string
}

// Model is one instance tree. All operations are safe for concurrent use.
type Model struct {
	root *Realm
}

// New builds a model with an unresolved root realm. Nothing is resolved or
// started until the first bind.
func New(p Params) *Model {
	nsb := p.NamespaceBuilder
	if nsb == nil {
		nsb = PackageNamespaceBuilder{}
	}
	env := &environment{
		resolvers:  p.Resolvers,
		runner:     p.Runner,
		nsBuilder:  nsb,
		outDirRoot: p.OutDirRoot,
	}
	return &Model{
		root: newRealm(env, nil, moniker.RootMoniker(), p.RootComponentURL, decl.StartupLazy),
	}
}

// Root returns the root realm.
func (m *Model) Root() *Realm { return m.root }

// LookUpRealm walks the tree from the root to the realm addressed by abs,
// resolving each realm along the way so child maps exist. Dynamic segments
// with instance id 0 match the live child of that (collection, name).
func (m *Model) LookUpRealm(ctx context.Context, abs moniker.AbsoluteMoniker) (*Realm, error) {
	cur := m.root
	for _, seg := range abs.Path() {
		child, ok, err := cur.childForSegment(ctx, seg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &InstanceNotFoundError{Moniker: abs}
		}
		cur = child
	}
	return cur, nil
}

// BindInstance starts the instance addressed by abs if it is not already
// running, then starts its eager descendants breadth-first in declaration
// order. Binding an already-started instance is a no-op success. A failure
// starting an eager child halts that child's branch only; queued siblings
// still bind, and the first failure is returned after the worklist drains.
func (m *Model) BindInstance(ctx context.Context, abs moniker.AbsoluteMoniker) error {
	target, err := m.LookUpRealm(ctx, abs)
	if err != nil {
		return err
	}
	return m.bind(ctx, target)
}

// BindRealm binds a realm the caller already holds, with the same eager
// propagation as BindInstance.
func (m *Model) BindRealm(ctx context.Context, r *Realm) error {
	return m.bind(ctx, r)
}

func (m *Model) bind(ctx context.Context, target *Realm) error {
	ctx = ctxlog.With(ctx, "bind_target", target.abs.String())
	logger := ctxlog.FromContext(ctx)

	queue := []*Realm{target}
	var firstErr error
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		eager, err := m.bindSingle(ctx, r)
		if err != nil {
			logger.Error("Failed to bind instance.", "moniker", r.abs.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		queue = append(queue, eager...)
	}
	return firstErr
}

// bindSingle starts one realm and returns its eager children. The realm's
// lock is held across resolution, namespace construction, and the runner
// call, so a concurrent bind of the same instance waits and then observes
// the execution.
func (m *Model) bindSingle(ctx context.Context, r *Realm) ([]*Realm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.life == lifecycleDestroyed {
		return nil, &InstanceNotFoundError{Moniker: r.abs}
	}
	if r.IsStarted() {
		// Eager propagation happens only on the call that performs the
		// start transition; a re-bind contributes nothing to the worklist.
		return nil, nil
	}
	if err := r.resolveLocked(ctx); err != nil {
		return nil, err
	}

	ns, err := r.env.nsBuilder.Build(ctx, r.state.decl.Uses, r.state.packageDir)
	if err != nil {
		return nil, &NamespaceCreationError{Moniker: r.abs, Err: err}
	}

	outDir := ""
	if r.env.outDirRoot != "" {
		outDir = filepath.Join(r.env.outDirRoot, monikerDirName(r.abs))
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, &NamespaceCreationError{Moniker: r.abs, Err: err}
		}
	}

	err = r.env.runner.Start(ctx, runner.StartInfo{
		ResolvedURL: r.state.resolvedURL,
		Program:     r.state.decl.Program,
		Namespace:   ns,
		OutgoingDir: outDir,
		PackageDir:  r.state.packageDir,
	})
	if err != nil {
		return nil, err
	}

	r.setExecution(&Execution{
		ResolvedURL: r.state.resolvedURL,
		Namespace:   ns,
		OutgoingDir: outDir,
	})
	ctxlog.FromContext(ctx).Info("Started instance.",
		"moniker", r.abs.String(), "url", r.state.resolvedURL)
	return r.eagerChildrenLocked(), nil
}

// eagerChildrenLocked returns the live eager children in creation order.
func (r *Realm) eagerChildrenLocked() []*Realm {
	var eager []*Realm
	for _, cm := range r.state.order {
		live, ok := r.state.live[cm.ToPartial()]
		if !ok || live != cm {
			continue
		}
		child := r.state.children[cm]
		if child.startup == decl.StartupEager {
			eager = append(eager, child)
		}
	}
	return eager
}

// monikerDirName flattens an absolute moniker into a single stable path
// component. Hashing sidesteps both separator characters and length limits.
func monikerDirName(abs moniker.AbsoluteMoniker) string {
	if abs.IsRoot() {
		return "root"
	}
	sum := sha256.Sum256([]byte(abs.String()))
	return hex.EncodeToString(sum[:8])
}
