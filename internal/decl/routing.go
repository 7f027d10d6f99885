package decl

// UseDecl is a consumer-side capability declaration. Exactly the concrete
// types in this package implement it.
type UseDecl interface {
	useDecl()
}

// UseProtocolDecl requests a protocol capability at SourcePath, installed in
// the consumer's namespace at TargetPath.
type UseProtocolDecl struct {
	Source     Source
	SourcePath string
	TargetPath string
}

// UseServiceDecl requests a service capability by path.
type UseServiceDecl struct {
	Source     Source
	SourcePath string
	TargetPath string
}

// UseDirectoryDecl requests a directory capability by path.
type UseDirectoryDecl struct {
	Source     Source
	SourcePath string
	TargetPath string
}

// UseStorageDecl requests storage of a given type, mounted at TargetPath.
type UseStorageDecl struct {
	Type       StorageType
	TargetPath string
}

// UseRunnerDecl requests the named runner for this component's program.
type UseRunnerDecl struct {
	SourceName string
}

// UseEventDecl subscribes to the named lifecycle event.
type UseEventDecl struct {
	Source     Source
	SourceName string
	TargetName string
}

func (UseProtocolDecl) useDecl()  {}
func (UseServiceDecl) useDecl()   {}
func (UseDirectoryDecl) useDecl() {}
func (UseStorageDecl) useDecl()   {}
func (UseRunnerDecl) useDecl()    {}
func (UseEventDecl) useDecl()     {}

// OfferDecl is a parent-side declaration routing a capability to one child
// or collection.
type OfferDecl interface {
	offerDecl()
	OfferTarget() OfferTarget
}

type OfferProtocolDecl struct {
	Source     Source
	SourcePath string
	Target     OfferTarget
	TargetPath string
}

type OfferServiceDecl struct {
	Source     Source
	SourcePath string
	Target     OfferTarget
	TargetPath string
}

type OfferDirectoryDecl struct {
	Source     Source
	SourcePath string
	Target     OfferTarget
	TargetPath string
}

// OfferStorageDecl routes a storage capability declared in this component
// (Source self, SourceName naming the storage declaration) or offered by the
// parent (Source parent) to a child.
type OfferStorageDecl struct {
	Type       StorageType
	Source     Source
	SourceName string
	Target     OfferTarget
}

type OfferRunnerDecl struct {
	Source     Source
	SourceName string
	Target     OfferTarget
	TargetName string
}

type OfferEventDecl struct {
	Source     Source
	SourceName string
	Target     OfferTarget
	TargetName string
}

func (OfferProtocolDecl) offerDecl()  {}
func (OfferServiceDecl) offerDecl()   {}
func (OfferDirectoryDecl) offerDecl() {}
func (OfferStorageDecl) offerDecl()   {}
func (OfferRunnerDecl) offerDecl()    {}
func (OfferEventDecl) offerDecl()     {}

func (d OfferProtocolDecl) OfferTarget() OfferTarget  { return d.Target }
func (d OfferServiceDecl) OfferTarget() OfferTarget   { return d.Target }
func (d OfferDirectoryDecl) OfferTarget() OfferTarget { return d.Target }
func (d OfferStorageDecl) OfferTarget() OfferTarget   { return d.Target }
func (d OfferRunnerDecl) OfferTarget() OfferTarget    { return d.Target }
func (d OfferEventDecl) OfferTarget() OfferTarget     { return d.Target }

// ExposeDecl is a child-side declaration making a capability available to
// the parent realm.
type ExposeDecl interface {
	exposeDecl()
}

type ExposeProtocolDecl struct {
	Source     Source
	SourcePath string
	TargetPath string
}

type ExposeServiceDecl struct {
	Source     Source
	SourcePath string
	TargetPath string
}

type ExposeDirectoryDecl struct {
	Source     Source
	SourcePath string
	TargetPath string
}

type ExposeRunnerDecl struct {
	Source     Source
	SourceName string
	TargetName string
}

func (ExposeProtocolDecl) exposeDecl()  {}
func (ExposeServiceDecl) exposeDecl()   {}
func (ExposeDirectoryDecl) exposeDecl() {}
func (ExposeRunnerDecl) exposeDecl()    {}
