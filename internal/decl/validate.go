package decl

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxNameLength = 100
	maxURLLength  = 4096
	maxPathLength = 1024
)

var nameRe = regexp.MustCompile(`^[0-9a-z_\-\.]+$`)

// FieldErrorKind classifies a single validation failure.
type FieldErrorKind int

const (
	FieldMissing FieldErrorKind = iota
	FieldEmpty
	FieldDuplicate
	FieldInvalid
	FieldTooLong
	InvalidChildRef
	InconsistentRelativeID
)

func (k FieldErrorKind) String() string {
	switch k {
	case FieldMissing:
		return "missing"
	case FieldEmpty:
		return "empty"
	case FieldDuplicate:
		return "duplicate"
	case FieldInvalid:
		return "invalid"
	case FieldTooLong:
		return "too long"
	case InvalidChildRef:
		return "invalid child reference"
	case InconsistentRelativeID:
		return "inconsistent relative id"
	default:
		return "unknown"
	}
}

// FieldError reports one structurally invalid field in a declaration.
type FieldError struct {
	Decl  string
	Field string
	Kind  FieldErrorKind
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: field %q is %s", e.Decl, e.Field, e.Kind)
}

// ErrorList aggregates every validation failure found in one declaration.
// A declaration is accepted only when the list is empty.
type ErrorList []FieldError

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return "declaration validation failed: " + strings.Join(msgs, "; ")
}

// errOrNil avoids the classic non-nil interface holding a nil slice.
func (l ErrorList) errOrNil() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l *ErrorList) add(declName, field string, kind FieldErrorKind) {
	*l = append(*l, FieldError{Decl: declName, Field: field, Kind: kind})
}

func (l *ErrorList) checkName(declName, field, value string) {
	switch {
	case value == "":
		l.add(declName, field, FieldEmpty)
	case len(value) > maxNameLength:
		l.add(declName, field, FieldTooLong)
	case !nameRe.MatchString(value):
		l.add(declName, field, FieldInvalid)
	}
}

func (l *ErrorList) checkURL(declName, field, value string) {
	switch {
	case value == "":
		l.add(declName, field, FieldEmpty)
	case len(value) > maxURLLength:
		l.add(declName, field, FieldTooLong)
	case !strings.Contains(value, "://") && !strings.Contains(value, ":"):
		l.add(declName, field, FieldInvalid)
	}
}

func (l *ErrorList) checkPath(declName, field, value string) {
	switch {
	case value == "":
		l.add(declName, field, FieldEmpty)
	case len(value) > maxPathLength:
		l.add(declName, field, FieldTooLong)
	case !strings.HasPrefix(value, "/") || strings.HasSuffix(value, "/"):
		l.add(declName, field, FieldInvalid)
	}
}

// ValidateChild validates a single child declaration. It is applied to
// dynamically created children before they are accepted into a collection;
// statically resolved declarations are assumed to have been validated as
// part of Validate.
func ValidateChild(c ChildDecl) error {
	var errs ErrorList
	errs.checkName("ChildDecl", "name", c.Name)
	errs.checkURL("ChildDecl", "url", c.URL)
	if c.Startup != StartupLazy && c.Startup != StartupEager {
		errs.add("ChildDecl", "startup", FieldInvalid)
	}
	return errs.errOrNil()
}

// Validate checks a full component declaration for structural validity:
// well-formed names, paths and URLs, uniqueness within each scope, and offer
// targets that reference declared children or collections.
func Validate(d *ComponentDecl) error {
	var errs ErrorList

	childNames := make(map[string]struct{}, len(d.Children))
	for _, c := range d.Children {
		if err := ValidateChild(c); err != nil {
			errs = append(errs, err.(ErrorList)...)
		}
		if _, ok := childNames[c.Name]; ok && c.Name != "" {
			errs.add("ChildDecl", "name", FieldDuplicate)
		}
		childNames[c.Name] = struct{}{}
	}

	collectionNames := make(map[string]struct{}, len(d.Collections))
	for _, c := range d.Collections {
		errs.checkName("CollectionDecl", "name", c.Name)
		if _, ok := collectionNames[c.Name]; ok && c.Name != "" {
			errs.add("CollectionDecl", "name", FieldDuplicate)
		}
		collectionNames[c.Name] = struct{}{}
	}

	storageNames := make(map[string]struct{}, len(d.Storage))
	for _, s := range d.Storage {
		errs.checkName("StorageDecl", "name", s.Name)
		errs.checkPath("StorageDecl", "source_path", s.SourcePath)
		if _, ok := storageNames[s.Name]; ok && s.Name != "" {
			errs.add("StorageDecl", "name", FieldDuplicate)
		}
		storageNames[s.Name] = struct{}{}
		errs.checkStorageSource(s.Source, childNames)
	}

	runnerNames := make(map[string]struct{}, len(d.Runners))
	for _, r := range d.Runners {
		errs.checkName("RunnerDecl", "name", r.Name)
		errs.checkPath("RunnerDecl", "source_path", r.SourcePath)
		if _, ok := runnerNames[r.Name]; ok && r.Name != "" {
			errs.add("RunnerDecl", "name", FieldDuplicate)
		}
		runnerNames[r.Name] = struct{}{}
	}

	for _, u := range d.Uses {
		errs.validateUse(u)
	}
	for _, o := range d.Offers {
		errs.validateOffer(o, childNames, collectionNames)
	}
	for _, e := range d.Exposes {
		errs.validateExpose(e, childNames)
	}

	return errs.errOrNil()
}

func (l *ErrorList) checkStorageSource(s Source, childNames map[string]struct{}) {
	if s.Kind == SourceChild {
		if _, ok := childNames[s.Child]; !ok {
			l.add("StorageDecl", "source", InvalidChildRef)
		}
	}
}

// checkUseSource: a consumer can only pull from its containing realm or the
// framework.
func (l *ErrorList) checkUseSource(declName string, s Source) {
	if s.Kind != SourceParent && s.Kind != SourceFramework {
		l.add(declName, "source", FieldInvalid)
	}
}

func (l *ErrorList) validateUse(u UseDecl) {
	switch u := u.(type) {
	case UseProtocolDecl:
		l.checkPath("UseProtocolDecl", "source_path", u.SourcePath)
		l.checkPath("UseProtocolDecl", "target_path", u.TargetPath)
		l.checkUseSource("UseProtocolDecl", u.Source)
	case UseServiceDecl:
		l.checkPath("UseServiceDecl", "source_path", u.SourcePath)
		l.checkPath("UseServiceDecl", "target_path", u.TargetPath)
		l.checkUseSource("UseServiceDecl", u.Source)
	case UseDirectoryDecl:
		l.checkPath("UseDirectoryDecl", "source_path", u.SourcePath)
		l.checkPath("UseDirectoryDecl", "target_path", u.TargetPath)
		l.checkUseSource("UseDirectoryDecl", u.Source)
	case UseStorageDecl:
		l.checkPath("UseStorageDecl", "target_path", u.TargetPath)
	case UseRunnerDecl:
		l.checkName("UseRunnerDecl", "source_name", u.SourceName)
	case UseEventDecl:
		l.checkName("UseEventDecl", "source_name", u.SourceName)
		l.checkName("UseEventDecl", "target_name", u.TargetName)
		l.checkUseSource("UseEventDecl", u.Source)
	}
}

func (l *ErrorList) validateOffer(o OfferDecl, childNames, collectionNames map[string]struct{}) {
	declName := fmt.Sprintf("%T", o)
	declName = declName[strings.LastIndexByte(declName, '.')+1:]

	switch o := o.(type) {
	case OfferProtocolDecl:
		l.checkPath(declName, "source_path", o.SourcePath)
		l.checkPath(declName, "target_path", o.TargetPath)
		l.checkOfferSource(declName, o.Source, childNames)
	case OfferServiceDecl:
		l.checkPath(declName, "source_path", o.SourcePath)
		l.checkPath(declName, "target_path", o.TargetPath)
		l.checkOfferSource(declName, o.Source, childNames)
	case OfferDirectoryDecl:
		l.checkPath(declName, "source_path", o.SourcePath)
		l.checkPath(declName, "target_path", o.TargetPath)
		l.checkOfferSource(declName, o.Source, childNames)
	case OfferStorageDecl:
		switch o.Source.Kind {
		case SourceParent:
		case SourceSelf:
			// A self-sourced storage offer names the storage declaration
			// backing it.
			l.checkName(declName, "source_name", o.SourceName)
		default:
			l.add(declName, "source", FieldInvalid)
		}
	case OfferRunnerDecl:
		l.checkName(declName, "source_name", o.SourceName)
		l.checkName(declName, "target_name", o.TargetName)
		l.checkOfferSource(declName, o.Source, childNames)
	case OfferEventDecl:
		l.checkName(declName, "source_name", o.SourceName)
		l.checkName(declName, "target_name", o.TargetName)
		if o.Source.Kind != SourceParent && o.Source.Kind != SourceFramework {
			l.add(declName, "source", FieldInvalid)
		}
	}

	target := o.OfferTarget()
	switch target.Kind {
	case OfferTargetChild:
		if _, ok := childNames[target.Name]; !ok {
			l.add(declName, "target", InvalidChildRef)
		}
	case OfferTargetCollection:
		if _, ok := collectionNames[target.Name]; !ok {
			l.add(declName, "target", InvalidChildRef)
		}
	default:
		l.add(declName, "target", FieldInvalid)
	}
}

func (l *ErrorList) checkOfferSource(declName string, s Source, childNames map[string]struct{}) {
	if s.Kind == SourceChild {
		if _, ok := childNames[s.Child]; !ok {
			l.add(declName, "source", InvalidChildRef)
		}
	}
}

func (l *ErrorList) validateExpose(e ExposeDecl, childNames map[string]struct{}) {
	switch e := e.(type) {
	case ExposeProtocolDecl:
		l.checkPath("ExposeProtocolDecl", "source_path", e.SourcePath)
		l.checkPath("ExposeProtocolDecl", "target_path", e.TargetPath)
		l.checkExposeSource("ExposeProtocolDecl", e.Source, childNames)
	case ExposeServiceDecl:
		l.checkPath("ExposeServiceDecl", "source_path", e.SourcePath)
		l.checkPath("ExposeServiceDecl", "target_path", e.TargetPath)
		l.checkExposeSource("ExposeServiceDecl", e.Source, childNames)
	case ExposeDirectoryDecl:
		l.checkPath("ExposeDirectoryDecl", "source_path", e.SourcePath)
		l.checkPath("ExposeDirectoryDecl", "target_path", e.TargetPath)
		l.checkExposeSource("ExposeDirectoryDecl", e.Source, childNames)
	case ExposeRunnerDecl:
		l.checkName("ExposeRunnerDecl", "source_name", e.SourceName)
		l.checkName("ExposeRunnerDecl", "target_name", e.TargetName)
		l.checkExposeSource("ExposeRunnerDecl", e.Source, childNames)
	}
}

func (l *ErrorList) checkExposeSource(declName string, s Source, childNames map[string]struct{}) {
	switch s.Kind {
	case SourceSelf, SourceFramework:
	case SourceChild:
		if _, ok := childNames[s.Child]; !ok {
			l.add(declName, "source", InvalidChildRef)
		}
	default:
		l.add(declName, "source", FieldInvalid)
	}
}
