package manifest

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/componentd/internal/decl"
)

// translate converts the HCL-specific schema into the agnostic declaration
// model. Structural validity (paths, references) is left to decl.Validate;
// this layer only rejects what cannot be represented at all.
func translate(cf *componentFile) (*decl.ComponentDecl, error) {
	d := &decl.ComponentDecl{}

	if cf.Program != nil {
		program, err := translateProgram(cf.Program)
		if err != nil {
			return nil, err
		}
		d.Program = program
	}

	for _, u := range cf.Uses {
		ud, err := translateUse(u)
		if err != nil {
			return nil, err
		}
		d.Uses = append(d.Uses, ud)
	}
	for _, o := range cf.Offers {
		od, err := translateOffer(o)
		if err != nil {
			return nil, err
		}
		d.Offers = append(d.Offers, od)
	}
	for _, e := range cf.Exposes {
		ed, err := translateExpose(e)
		if err != nil {
			return nil, err
		}
		d.Exposes = append(d.Exposes, ed)
	}
	for _, s := range cf.Storage {
		source, err := parseSource(s.From, decl.SourceSelf)
		if err != nil {
			return nil, fmt.Errorf("storage %q: %w", s.Name, err)
		}
		d.Storage = append(d.Storage, decl.StorageDecl{Name: s.Name, Source: source, SourcePath: s.Path})
	}
	for _, r := range cf.Runners {
		source, err := parseSource(r.From, decl.SourceSelf)
		if err != nil {
			return nil, fmt.Errorf("runner %q: %w", r.Name, err)
		}
		d.Runners = append(d.Runners, decl.RunnerDecl{Name: r.Name, Source: source, SourcePath: r.Path})
	}
	for _, c := range cf.Children {
		startup, err := parseStartup(c.Startup)
		if err != nil {
			return nil, fmt.Errorf("child %q: %w", c.Name, err)
		}
		d.Children = append(d.Children, decl.ChildDecl{Name: c.Name, URL: c.URL, Startup: startup})
	}
	for _, c := range cf.Collections {
		durability, err := parseDurability(c.Durability)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", c.Name, err)
		}
		d.Collections = append(d.Collections, decl.CollectionDecl{Name: c.Name, Durability: durability})
	}

	return d, nil
}

// translateProgram evaluates the program block's attributes and converts
// each value to a string.
func translateProgram(p *programBlock) (map[string]string, error) {
	attrs, diags := p.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("program block: %w", diags)
	}
	program := make(map[string]string, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("program attribute %q: %w", name, diags)
		}
		strVal, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, fmt.Errorf("program attribute %q: %w", name, err)
		}
		program[name] = strVal.AsString()
	}
	return program, nil
}

func translateUse(u *useBlock) (decl.UseDecl, error) {
	source, err := parseSource(u.From, decl.SourceParent)
	if err != nil {
		return nil, fmt.Errorf("use %q: %w", u.Kind, err)
	}
	targetPath := u.TargetPath
	if targetPath == "" {
		targetPath = u.Path
	}
	targetName := u.TargetName
	if targetName == "" {
		targetName = u.Name
	}

	switch u.Kind {
	case "protocol":
		return decl.UseProtocolDecl{Source: source, SourcePath: u.Path, TargetPath: targetPath}, nil
	case "service":
		return decl.UseServiceDecl{Source: source, SourcePath: u.Path, TargetPath: targetPath}, nil
	case "directory":
		return decl.UseDirectoryDecl{Source: source, SourcePath: u.Path, TargetPath: targetPath}, nil
	case "storage":
		storageType, err := parseStorageType(u.Type)
		if err != nil {
			return nil, fmt.Errorf("use storage: %w", err)
		}
		return decl.UseStorageDecl{Type: storageType, TargetPath: targetPath}, nil
	case "runner":
		return decl.UseRunnerDecl{SourceName: u.Name}, nil
	case "event":
		return decl.UseEventDecl{Source: source, SourceName: u.Name, TargetName: targetName}, nil
	default:
		return nil, fmt.Errorf("use: unknown capability kind %q", u.Kind)
	}
}

func translateOffer(o *offerBlock) (decl.OfferDecl, error) {
	source, err := parseSource(o.From, decl.SourceParent)
	if err != nil {
		return nil, fmt.Errorf("offer %q: %w", o.Kind, err)
	}
	target, err := parseOfferTarget(o)
	if err != nil {
		return nil, err
	}
	targetPath := o.TargetPath
	if targetPath == "" {
		targetPath = o.Path
	}
	targetName := o.TargetName
	if targetName == "" {
		targetName = o.Name
	}

	switch o.Kind {
	case "protocol":
		return decl.OfferProtocolDecl{Source: source, SourcePath: o.Path, Target: target, TargetPath: targetPath}, nil
	case "service":
		return decl.OfferServiceDecl{Source: source, SourcePath: o.Path, Target: target, TargetPath: targetPath}, nil
	case "directory":
		return decl.OfferDirectoryDecl{Source: source, SourcePath: o.Path, Target: target, TargetPath: targetPath}, nil
	case "storage":
		storageType, err := parseStorageType(o.Type)
		if err != nil {
			return nil, fmt.Errorf("offer storage: %w", err)
		}
		return decl.OfferStorageDecl{Type: storageType, Source: source, SourceName: o.Name, Target: target}, nil
	case "runner":
		return decl.OfferRunnerDecl{Source: source, SourceName: o.Name, Target: target, TargetName: targetName}, nil
	case "event":
		return decl.OfferEventDecl{Source: source, SourceName: o.Name, Target: target, TargetName: targetName}, nil
	default:
		return nil, fmt.Errorf("offer: unknown capability kind %q", o.Kind)
	}
}

func translateExpose(e *exposeBlock) (decl.ExposeDecl, error) {
	source, err := parseSource(e.From, decl.SourceSelf)
	if err != nil {
		return nil, fmt.Errorf("expose %q: %w", e.Kind, err)
	}
	targetPath := e.TargetPath
	if targetPath == "" {
		targetPath = e.Path
	}
	targetName := e.TargetName
	if targetName == "" {
		targetName = e.Name
	}

	switch e.Kind {
	case "protocol":
		return decl.ExposeProtocolDecl{Source: source, SourcePath: e.Path, TargetPath: targetPath}, nil
	case "service":
		return decl.ExposeServiceDecl{Source: source, SourcePath: e.Path, TargetPath: targetPath}, nil
	case "directory":
		return decl.ExposeDirectoryDecl{Source: source, SourcePath: e.Path, TargetPath: targetPath}, nil
	case "runner":
		return decl.ExposeRunnerDecl{Source: source, SourceName: e.Name, TargetName: targetName}, nil
	default:
		return nil, fmt.Errorf("expose: unknown capability kind %q", e.Kind)
	}
}

// parseSource parses a routing source reference: "parent", "self",
// "framework", or "#child-name". An empty value falls back to def.
func parseSource(s string, def decl.SourceKind) (decl.Source, error) {
	switch {
	case s == "":
		return decl.Source{Kind: def}, nil
	case s == "parent":
		return decl.Source{Kind: decl.SourceParent}, nil
	case s == "self":
		return decl.Source{Kind: decl.SourceSelf}, nil
	case s == "framework":
		return decl.Source{Kind: decl.SourceFramework}, nil
	case strings.HasPrefix(s, "#"):
		name := strings.TrimPrefix(s, "#")
		if name == "" {
			return decl.Source{}, fmt.Errorf("empty child reference %q", s)
		}
		return decl.Source{Kind: decl.SourceChild, Child: name}, nil
	default:
		return decl.Source{}, fmt.Errorf("unknown source %q", s)
	}
}

func parseOfferTarget(o *offerBlock) (decl.OfferTarget, error) {
	switch {
	case o.ToChild != "" && o.ToCollection != "":
		return decl.OfferTarget{}, fmt.Errorf("offer %q: to_child and to_collection are mutually exclusive", o.Kind)
	case o.ToChild != "":
		return decl.OfferTarget{Kind: decl.OfferTargetChild, Name: o.ToChild}, nil
	case o.ToCollection != "":
		return decl.OfferTarget{Kind: decl.OfferTargetCollection, Name: o.ToCollection}, nil
	default:
		return decl.OfferTarget{}, fmt.Errorf("offer %q: missing to_child or to_collection", o.Kind)
	}
}

func parseStartup(s string) (decl.StartupMode, error) {
	switch s {
	case "", "lazy":
		return decl.StartupLazy, nil
	case "eager":
		return decl.StartupEager, nil
	default:
		return 0, fmt.Errorf("unknown startup mode %q", s)
	}
}

func parseDurability(s string) (decl.Durability, error) {
	switch s {
	case "persistent":
		return decl.DurabilityPersistent, nil
	case "transient":
		return decl.DurabilityTransient, nil
	default:
		return 0, fmt.Errorf("unknown durability %q", s)
	}
}

func parseStorageType(s string) (decl.StorageType, error) {
	switch s {
	case "data":
		return decl.StorageData, nil
	case "cache":
		return decl.StorageCache, nil
	case "meta":
		return decl.StorageMeta, nil
	default:
		return 0, fmt.Errorf("unknown storage type %q", s)
	}
}
