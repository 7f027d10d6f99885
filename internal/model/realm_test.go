package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/moniker"
)

func collectionRoot() map[string]*decl.ComponentDecl {
	return map[string]*decl.ComponentDecl{
		"test:///root": {Collections: []decl.CollectionDecl{
			{Name: "workers", Durability: decl.DurabilityTransient},
			{Name: "archive", Durability: decl.DurabilityPersistent},
		}},
		"test:///w": {},
	}
}

func waitDestroyed(t *testing.T, r *Realm) {
	t.Helper()
	select {
	case <-r.Destroyed():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for destruction")
	}
}

func TestDynamicChildrenGetIncreasingInstanceIDs(t *testing.T) {
	m, _, _ := newTestModel(collectionRoot())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	first, err := root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "w1", URL: "test:///w"})
	require.NoError(t, err)
	second, err := root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "w2", URL: "test:///w"})
	require.NoError(t, err)

	firstLeaf, _ := first.Moniker().Leaf()
	secondLeaf, _ := second.Moniker().Leaf()
	assert.Equal(t, uint32(1), firstLeaf.InstanceID())
	assert.Equal(t, uint32(2), secondLeaf.InstanceID())

	// Recreating a destroyed name must mint a fresh id, never reuse one.
	require.NoError(t, root.RemoveDynamicChild(ctx, moniker.NewPartial("workers", "w1")))
	waitDestroyed(t, first)
	third, err := root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "w1", URL: "test:///w"})
	require.NoError(t, err)
	thirdLeaf, _ := third.Moniker().Leaf()
	assert.Equal(t, uint32(3), thirdLeaf.InstanceID())
}

func TestAddDynamicChildCollision(t *testing.T) {
	m, _, _ := newTestModel(collectionRoot())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	_, err = root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "w", URL: "test:///w"})
	require.NoError(t, err)
	_, err = root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "w", URL: "test:///w"})

	var exists *InstanceAlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "workers:w", exists.Child.String())
}

func TestAddDynamicChildUnknownCollection(t *testing.T) {
	m, _, _ := newTestModel(collectionRoot())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	_, err = root.AddDynamicChild(ctx, "nope", decl.ChildDecl{Name: "w", URL: "test:///w"})

	var nf *CollectionNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.Name)
}

func TestAddDynamicChildPersistentCollection(t *testing.T) {
	m, _, _ := newTestModel(collectionRoot())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	_, err = root.AddDynamicChild(ctx, "archive", decl.ChildDecl{Name: "w", URL: "test:///w"})

	var unsup *UnsupportedError
	require.ErrorAs(t, err, &unsup)
}

func TestAddDynamicChildRejectsInvalidDecl(t *testing.T) {
	m, _, _ := newTestModel(collectionRoot())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	_, err = root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "Not Valid!", URL: "test:///w"})

	var list decl.ErrorList
	require.ErrorAs(t, err, &list)
}

func TestRemoveDynamicChildHidesImmediately(t *testing.T) {
	m, _, _ := newTestModel(collectionRoot())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	childRealm, err := root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "w", URL: "test:///w"})
	require.NoError(t, err)
	require.NoError(t, m.BindInstance(ctx, childRealm.Moniker()))
	require.True(t, childRealm.IsStarted())

	require.NoError(t, root.RemoveDynamicChild(ctx, moniker.NewPartial("workers", "w")))

	// The tombstoned child is invisible to live lookups before
	// finalization completes.
	_, err = root.LiveChild(ctx, moniker.NewPartial("workers", "w"))
	var nf *InstanceNotFoundError
	require.ErrorAs(t, err, &nf)

	waitDestroyed(t, childRealm)
	assert.False(t, childRealm.IsStarted())

	_, err = m.LookUpRealm(ctx, childRealm.Moniker())
	require.ErrorAs(t, err, &nf)
}

func TestRemoveDynamicChildUnknown(t *testing.T) {
	m, _, _ := newTestModel(collectionRoot())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	err = root.RemoveDynamicChild(ctx, moniker.NewPartial("workers", "ghost"))

	var nf *InstanceNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDestroyTearsDownDescendants(t *testing.T) {
	m, _, _ := newTestModel(map[string]*decl.ComponentDecl{
		"test:///root": {Collections: []decl.CollectionDecl{
			{Name: "workers", Durability: decl.DurabilityTransient},
		}},
		"test:///parent": {Children: []decl.ChildDecl{
			{Name: "inner", URL: "test:///inner", Startup: decl.StartupEager},
		}},
		"test:///inner": {},
	})
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)

	parent, err := root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "p", URL: "test:///parent"})
	require.NoError(t, err)
	require.NoError(t, m.BindInstance(ctx, parent.Moniker()))

	inner, err := parent.LiveChild(ctx, moniker.NewPartial("", "inner"))
	require.NoError(t, err)
	require.True(t, inner.IsStarted())

	require.NoError(t, root.RemoveDynamicChild(ctx, moniker.NewPartial("workers", "p")))
	waitDestroyed(t, parent)

	assert.False(t, parent.IsStarted())
	assert.False(t, inner.IsStarted())
}

func nestedCollectionDecls() map[string]*decl.ComponentDecl {
	return map[string]*decl.ComponentDecl{
		"test:///root": {Collections: []decl.CollectionDecl{
			{Name: "workers", Durability: decl.DurabilityTransient},
		}},
		"test:///parent": {Collections: []decl.CollectionDecl{
			{Name: "inner", Durability: decl.DurabilityTransient},
		}},
		"test:///c": {},
	}
}

func TestRemoveChildOfDestroyedParent(t *testing.T) {
	m, _, _ := newTestModel(nestedCollectionDecls())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)
	parent, err := root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "p", URL: "test:///parent"})
	require.NoError(t, err)
	childRealm, err := parent.AddDynamicChild(ctx, "inner", decl.ChildDecl{Name: "c", URL: "test:///c"})
	require.NoError(t, err)

	require.NoError(t, root.RemoveDynamicChild(ctx, moniker.NewPartial("workers", "p")))

	// The tombstoned parent no longer accepts dynamic management; its
	// subtree is torn down by its own finalization instead.
	err = parent.RemoveDynamicChild(ctx, moniker.NewPartial("inner", "c"))
	var nf *InstanceNotFoundError
	require.ErrorAs(t, err, &nf)
	_, err = parent.AddDynamicChild(ctx, "inner", decl.ChildDecl{Name: "late", URL: "test:///c"})
	require.ErrorAs(t, err, &nf)

	waitDestroyed(t, parent)
	waitDestroyed(t, childRealm)
}

func TestChildAndParentDestroyOverlap(t *testing.T) {
	// Removing a child and then its parent reaches the child's teardown
	// through both paths; finalization must stay single-shot.
	m, _, _ := newTestModel(nestedCollectionDecls())
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)
	parent, err := root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "p", URL: "test:///parent"})
	require.NoError(t, err)
	childRealm, err := parent.AddDynamicChild(ctx, "inner", decl.ChildDecl{Name: "c", URL: "test:///c"})
	require.NoError(t, err)

	require.NoError(t, parent.RemoveDynamicChild(ctx, moniker.NewPartial("inner", "c")))
	require.NoError(t, root.RemoveDynamicChild(ctx, moniker.NewPartial("workers", "p")))

	waitDestroyed(t, childRealm)
	waitDestroyed(t, parent)
	assert.False(t, childRealm.IsStarted())
}

func TestLiveChildrenOrder(t *testing.T) {
	m, _, _ := newTestModel(map[string]*decl.ComponentDecl{
		"test:///root": {
			Children: []decl.ChildDecl{
				{Name: "static1", URL: "test:///w"},
				{Name: "static2", URL: "test:///w"},
			},
			Collections: []decl.CollectionDecl{
				{Name: "workers", Durability: decl.DurabilityTransient},
			},
		},
		"test:///w": {},
	})
	ctx := context.Background()
	root, err := m.LookUpRealm(ctx, moniker.RootMoniker())
	require.NoError(t, err)
	_, err = root.AddDynamicChild(ctx, "workers", decl.ChildDecl{Name: "dyn", URL: "test:///w"})
	require.NoError(t, err)

	children, err := root.LiveChildren(ctx)
	require.NoError(t, err)

	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.String()
	}
	assert.Equal(t, []string{"static1:0", "static2:0", "workers:dyn:1"}, names)
}
