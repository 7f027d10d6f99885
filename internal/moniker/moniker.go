// Package moniker defines the path-like identities used to address component
// instances within the realm tree.
package moniker

import (
	"fmt"
	"strings"
)

// ChildMoniker identifies one child within its parent realm. The instance id
// disambiguates successive dynamic children created under the same name: ids
// are assigned strictly increasing per realm, so a recreated child never
// aliases its predecessor. Static children always carry id 0.
type ChildMoniker struct {
	name       string
	collection string
	instanceID uint32
}

// NewChild returns a ChildMoniker for a static child (no collection, id 0).
func NewChild(name string) ChildMoniker {
	return ChildMoniker{name: name}
}

// NewChildIn returns a ChildMoniker for a dynamic child in a collection.
func NewChildIn(collection, name string, instanceID uint32) ChildMoniker {
	return ChildMoniker{name: name, collection: collection, instanceID: instanceID}
}

func (m ChildMoniker) Name() string       { return m.name }
func (m ChildMoniker) Collection() string { return m.collection }
func (m ChildMoniker) InstanceID() uint32 { return m.instanceID }

// ToPartial drops the instance id, yielding the address used by dynamic
// management operations, which always act on the live instance.
func (m ChildMoniker) ToPartial() PartialMoniker {
	return PartialMoniker{name: m.name, collection: m.collection}
}

func (m ChildMoniker) String() string {
	s := m.name
	if m.collection != "" {
		s = m.collection + ":" + s
	}
	return fmt.Sprintf("%s:%d", s, m.instanceID)
}

// PartialMoniker addresses a child by (name, collection), ignoring the
// instance id. At most one live child matches a PartialMoniker at a time.
type PartialMoniker struct {
	name       string
	collection string
}

// NewPartial returns a PartialMoniker. collection may be empty for static
// children.
func NewPartial(collection, name string) PartialMoniker {
	return PartialMoniker{name: name, collection: collection}
}

func (m PartialMoniker) Name() string       { return m.name }
func (m PartialMoniker) Collection() string { return m.collection }

func (m PartialMoniker) String() string {
	if m.collection != "" {
		return m.collection + ":" + m.name
	}
	return m.name
}

// AbsoluteMoniker is the ordered sequence of ChildMonikers from the root to
// an instance. The empty sequence addresses the root itself. It is a value
// type; use String for map keys.
type AbsoluteMoniker struct {
	path []ChildMoniker
}

// RootMoniker addresses the root instance.
func RootMoniker() AbsoluteMoniker {
	return AbsoluteMoniker{}
}

// NewAbsolute builds an AbsoluteMoniker from the given path segments.
func NewAbsolute(path ...ChildMoniker) AbsoluteMoniker {
	return AbsoluteMoniker{path: path}
}

// Path returns the segments from the root. Callers must not mutate it.
func (m AbsoluteMoniker) Path() []ChildMoniker { return m.path }

// IsRoot reports whether the moniker addresses the root instance.
func (m AbsoluteMoniker) IsRoot() bool { return len(m.path) == 0 }

// Leaf returns the last segment, or false for the root.
func (m AbsoluteMoniker) Leaf() (ChildMoniker, bool) {
	if len(m.path) == 0 {
		return ChildMoniker{}, false
	}
	return m.path[len(m.path)-1], true
}

// Parent returns the moniker with the last segment removed, or false for the
// root.
func (m AbsoluteMoniker) Parent() (AbsoluteMoniker, bool) {
	if len(m.path) == 0 {
		return AbsoluteMoniker{}, false
	}
	return AbsoluteMoniker{path: m.path[:len(m.path)-1]}, true
}

// Child returns the moniker extended by one segment.
func (m AbsoluteMoniker) Child(c ChildMoniker) AbsoluteMoniker {
	path := make([]ChildMoniker, 0, len(m.path)+1)
	path = append(path, m.path...)
	path = append(path, c)
	return AbsoluteMoniker{path: path}
}

// Equal reports segment-wise equality.
func (m AbsoluteMoniker) Equal(o AbsoluteMoniker) bool {
	if len(m.path) != len(o.path) {
		return false
	}
	for i := range m.path {
		if m.path[i] != o.path[i] {
			return false
		}
	}
	return true
}

func (m AbsoluteMoniker) String() string {
	if len(m.path) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, c := range m.path {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}

// ParseAbsolute parses a slash-separated path of "name" or "collection:name"
// segments into an AbsoluteMoniker with instance id 0 per segment. This is
// the addressing form accepted on the command line, where ids are not known;
// it matches static children exactly.
func ParseAbsolute(s string) (AbsoluteMoniker, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return RootMoniker(), nil
	}
	var path []ChildMoniker
	for _, seg := range strings.Split(s, "/") {
		if seg == "" {
			return AbsoluteMoniker{}, fmt.Errorf("moniker %q: empty path segment", s)
		}
		parts := strings.Split(seg, ":")
		switch len(parts) {
		case 1:
			path = append(path, NewChild(parts[0]))
		case 2:
			if parts[0] == "" || parts[1] == "" {
				return AbsoluteMoniker{}, fmt.Errorf("moniker %q: malformed segment %q", s, seg)
			}
			path = append(path, NewChildIn(parts[0], parts[1], 0))
		default:
			return AbsoluteMoniker{}, fmt.Errorf("moniker %q: malformed segment %q", s, seg)
		}
	}
	return AbsoluteMoniker{path: path}, nil
}
