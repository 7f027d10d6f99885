// Package framework implements the capabilities the orchestrator itself
// provides to components, chiefly the realm service: dynamic child
// management scoped to the realm of the component that uses it.
package framework

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/model"
	"github.com/vk/componentd/internal/moniker"
	"github.com/vk/componentd/internal/resolver"
	"github.com/vk/componentd/internal/runner"
)

// RealmServicePath is the namespace path under which components reach the
// realm service via a framework-sourced protocol use.
const RealmServicePath = "/svc/realm"

// ChildRef addresses a child of the scope realm by name and collection.
// Collection is empty for static children.
type ChildRef struct {
	Name       string
	Collection string
}

// RealmService is one scoped instance of the realm framework capability.
// Every operation acts on the children of the scope realm; a component can
// never reach outside its own realm through it.
type RealmService struct {
	model *model.Model
	scope *model.Realm
}

// NewRealmService builds the realm service scoped to one realm.
func NewRealmService(m *model.Model, scope *model.Realm) *RealmService {
	return &RealmService{model: m, scope: scope}
}

// ServiceForSource turns a routed framework capability source into the realm
// service it designates, scoped at the source's scope moniker.
func ServiceForSource(ctx context.Context, m *model.Model, src model.CapabilitySource) (*RealmService, error) {
	fw, ok := src.(model.FrameworkCapabilitySource)
	if !ok || fw.Capability.Path != RealmServicePath {
		return nil, newError(ErrInvalidArguments, errors.New("not a realm service source"))
	}
	scope, err := m.LookUpRealm(ctx, fw.ScopeMoniker)
	if err != nil {
		return nil, mapError(ctx, "lookup", err)
	}
	return NewRealmService(m, scope), nil
}

// CreateChild creates a dynamic child in the named transient collection of
// the scope realm. The child is created stopped.
func (s *RealmService) CreateChild(ctx context.Context, collection string, cd decl.ChildDecl) error {
	if collection == "" {
		return newError(ErrInvalidArguments, errors.New("collection must be set"))
	}
	if _, err := s.scope.AddDynamicChild(ctx, collection, cd); err != nil {
		return mapError(ctx, "create child", err)
	}
	return nil
}

// BindChild binds the live child addressed by ref, starting it and its eager
// descendants if not already running, and returns the child's outgoing
// directory (empty when outgoing directories are disabled).
func (s *RealmService) BindChild(ctx context.Context, ref ChildRef) (string, error) {
	child, err := s.scope.LiveChild(ctx, moniker.NewPartial(ref.Collection, ref.Name))
	if err != nil {
		return "", mapError(ctx, "bind child", err)
	}
	if err := s.model.BindRealm(ctx, child); err != nil {
		return "", mapError(ctx, "bind child", err)
	}
	exec, _ := child.ExecutionInfo()
	return exec.OutgoingDir, nil
}

// DestroyChild destroys the live dynamic child addressed by ref. The child
// disappears from this service's view immediately; teardown completes in the
// background.
func (s *RealmService) DestroyChild(ctx context.Context, ref ChildRef) error {
	if ref.Collection == "" {
		return newError(ErrInvalidArguments, errors.New("collection must be set"))
	}
	if err := s.scope.RemoveDynamicChild(ctx, moniker.NewPartial(ref.Collection, ref.Name)); err != nil {
		return mapError(ctx, "destroy child", err)
	}
	return nil
}

// ListChildren snapshots the live children of the named collection, sorted
// by name, and returns an iterator yielding them in batches of batchSize.
// Children destroyed before this call never appear, even while their
// teardown is still finalizing.
func (s *RealmService) ListChildren(ctx context.Context, collection string, batchSize int) (*ChildIterator, error) {
	if collection == "" {
		return nil, newError(ErrInvalidArguments, errors.New("collection must be set"))
	}
	if batchSize <= 0 {
		return nil, newError(ErrInvalidArguments, errors.New("batch size must be positive"))
	}
	d, err := s.scope.ResolvedDecl(ctx)
	if err != nil {
		return nil, mapError(ctx, "list children", err)
	}
	if _, ok := d.FindCollection(collection); !ok {
		return nil, newError(ErrCollectionNotFound, fmt.Errorf("collection %q not declared", collection))
	}
	children, err := s.scope.LiveChildren(ctx)
	if err != nil {
		return nil, mapError(ctx, "list children", err)
	}
	var refs []ChildRef
	for _, cm := range children {
		if cm.Collection() == collection {
			refs = append(refs, ChildRef{Name: cm.Name(), Collection: cm.Collection()})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return &ChildIterator{refs: refs, batchSize: batchSize}, nil
}

// ChildIterator pages through a ListChildren snapshot. It is not safe for
// concurrent use.
type ChildIterator struct {
	refs      []ChildRef
	batchSize int
}

// Next returns the next batch, or an empty slice once the snapshot is
// exhausted.
func (it *ChildIterator) Next() []ChildRef {
	n := it.batchSize
	if n > len(it.refs) {
		n = len(it.refs)
	}
	batch := it.refs[:n]
	it.refs = it.refs[n:]
	return batch
}

// mapError collapses model, resolver, and runner errors onto the service's
// error codes. Unrecognized errors become ErrInternal and are logged with
// the full cause, since the code alone would hide it.
func mapError(ctx context.Context, op string, err error) *Error {
	var (
		notFound   *model.InstanceNotFoundError
		exists     *model.InstanceAlreadyExistsError
		noColl     *model.CollectionNotFoundError
		unsup      *model.UnsupportedError
		badDecl    decl.ErrorList
		resolveErr *resolver.Error
		runErr     *runner.Error
		nsErr      *model.NamespaceCreationError
	)
	switch {
	case errors.As(err, &notFound):
		return newError(ErrInstanceNotFound, err)
	case errors.As(err, &exists):
		return newError(ErrInstanceAlreadyExists, err)
	case errors.As(err, &noColl):
		return newError(ErrCollectionNotFound, err)
	case errors.As(err, &unsup):
		return newError(ErrUnsupported, err)
	case errors.As(err, &badDecl):
		return newError(ErrInvalidArguments, err)
	case errors.As(err, &resolveErr):
		return newError(ErrInstanceCannotResolve, err)
	case errors.As(err, &runErr):
		return newError(ErrInstanceCannotStart, err)
	case errors.As(err, &nsErr):
		return newError(ErrInstanceCannotStart, err)
	default:
		ctxlog.FromContext(ctx).Error("Unexpected realm service failure.", "op", op, "error", err)
		return newError(ErrInternal, err)
	}
}
