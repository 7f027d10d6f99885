package moniker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildMonikerString(t *testing.T) {
	assert.Equal(t, "logger:0", NewChild("logger").String())
	assert.Equal(t, "coll:worker:3", NewChildIn("coll", "worker", 3).String())
}

func TestPartialDropsInstanceID(t *testing.T) {
	a := NewChildIn("coll", "worker", 1).ToPartial()
	b := NewChildIn("coll", "worker", 7).ToPartial()
	assert.Equal(t, a, b)
	assert.Equal(t, "coll:worker", a.String())
}

func TestAbsoluteMonikerNavigation(t *testing.T) {
	root := RootMoniker()
	assert.True(t, root.IsRoot())
	assert.Equal(t, "/", root.String())
	_, ok := root.Leaf()
	assert.False(t, ok)
	_, ok = root.Parent()
	assert.False(t, ok)

	m := root.Child(NewChild("system")).Child(NewChild("logger"))
	assert.Equal(t, "/system:0/logger:0", m.String())

	leaf, ok := m.Leaf()
	require.True(t, ok)
	assert.Equal(t, "logger", leaf.Name())

	parent, ok := m.Parent()
	require.True(t, ok)
	assert.Equal(t, "/system:0", parent.String())
}

func TestAbsoluteMonikerEqual(t *testing.T) {
	a := NewAbsolute(NewChild("a"), NewChildIn("c", "b", 2))
	b := RootMoniker().Child(NewChild("a")).Child(NewChildIn("c", "b", 2))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(RootMoniker()))
	assert.False(t, a.Equal(NewAbsolute(NewChild("a"), NewChildIn("c", "b", 3))))
}

func TestParseAbsolute(t *testing.T) {
	m, err := ParseAbsolute("/system/logger")
	require.NoError(t, err)
	assert.Equal(t, "/system:0/logger:0", m.String())

	m, err = ParseAbsolute("system/coll:worker")
	require.NoError(t, err)
	assert.Equal(t, "/system:0/coll:worker:0", m.String())

	m, err = ParseAbsolute("/")
	require.NoError(t, err)
	assert.True(t, m.IsRoot())

	_, err = ParseAbsolute("/a//b")
	assert.Error(t, err)
	_, err = ParseAbsolute("/a/b:c:d")
	assert.Error(t, err)
	_, err = ParseAbsolute("/:x")
	assert.Error(t, err)
}
