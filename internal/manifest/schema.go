package manifest

import (
	"github.com/hashicorp/hcl/v2"
)

// componentFile represents the top-level structure of a component manifest.
type componentFile struct {
	Program     *programBlock      `hcl:"program,block"`
	Uses        []*useBlock        `hcl:"use,block"`
	Offers      []*offerBlock      `hcl:"offer,block"`
	Exposes     []*exposeBlock     `hcl:"expose,block"`
	Storage     []*storageBlock    `hcl:"storage,block"`
	Runners     []*runnerBlock     `hcl:"runner,block"`
	Children    []*childBlock      `hcl:"child,block"`
	Collections []*collectionBlock `hcl:"collection,block"`
}

// programBlock carries free-form program attributes (binary, args, ...)
// which are evaluated and string-converted at translation time.
type programBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// useBlock declares a capability the component consumes. The label selects
// the capability kind: protocol, service, directory, storage, runner, event.
type useBlock struct {
	Kind       string `hcl:"kind,label"`
	From       string `hcl:"from,optional"`
	Path       string `hcl:"path,optional"`
	TargetPath string `hcl:"target_path,optional"`
	Name       string `hcl:"name,optional"`
	TargetName string `hcl:"target_name,optional"`
	Type       string `hcl:"type,optional"`
}

// offerBlock routes a capability to one child (to_child) or to every member
// of a collection (to_collection). Exactly one of the two must be set.
type offerBlock struct {
	Kind         string `hcl:"kind,label"`
	From         string `hcl:"from,optional"`
	Path         string `hcl:"path,optional"`
	TargetPath   string `hcl:"target_path,optional"`
	Name         string `hcl:"name,optional"`
	TargetName   string `hcl:"target_name,optional"`
	Type         string `hcl:"type,optional"`
	ToChild      string `hcl:"to_child,optional"`
	ToCollection string `hcl:"to_collection,optional"`
}

// exposeBlock makes a capability available to the parent realm.
type exposeBlock struct {
	Kind       string `hcl:"kind,label"`
	From       string `hcl:"from,optional"`
	Path       string `hcl:"path,optional"`
	TargetPath string `hcl:"target_path,optional"`
	Name       string `hcl:"name,optional"`
	TargetName string `hcl:"target_name,optional"`
}

// storageBlock declares a storage capability backed by a directory.
type storageBlock struct {
	Name string `hcl:"name,label"`
	From string `hcl:"from,optional"`
	Path string `hcl:"path"`
}

// runnerBlock declares a runner capability served from the component's
// outgoing directory.
type runnerBlock struct {
	Name string `hcl:"name,label"`
	From string `hcl:"from,optional"`
	Path string `hcl:"path"`
}

// childBlock declares a static child instance.
type childBlock struct {
	Name    string `hcl:"name,label"`
	URL     string `hcl:"url"`
	Startup string `hcl:"startup,optional"`
}

// collectionBlock declares a container for dynamically created children.
type collectionBlock struct {
	Name       string `hcl:"name,label"`
	Durability string `hcl:"durability"`
}
