package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/componentd/internal/decl"
	"github.com/vk/componentd/internal/runner"
)

// NamespaceBuilder assembles the incoming namespace for an instance about to
// start, from its use declarations. Implementations must be safe for
// concurrent use; a bind holds its realm's lock while building.
type NamespaceBuilder interface {
	Build(ctx context.Context, uses []decl.UseDecl, packageDir string) ([]runner.NamespaceEntry, error)
}

// PackageNamespaceBuilder maps directory uses onto subdirectories of the
// component's package. Protocol, service, runner, and event uses carry no
// directory to mount and are skipped; storage uses are backed lazily through
// routing, not at start.
type PackageNamespaceBuilder struct{}

func (PackageNamespaceBuilder) Build(_ context.Context, uses []decl.UseDecl, packageDir string) ([]runner.NamespaceEntry, error) {
	var ns []runner.NamespaceEntry
	for _, u := range uses {
		ud, ok := u.(decl.UseDirectoryDecl)
		if !ok {
			continue
		}
		if packageDir == "" {
			return nil, fmt.Errorf("directory use %q: no package directory", ud.SourcePath)
		}
		dir := filepath.Join(packageDir, filepath.FromSlash(strings.TrimPrefix(ud.SourcePath, "/")))
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("directory use %q: %w", ud.SourcePath, err)
		}
		ns = append(ns, runner.NamespaceEntry{TargetPath: ud.TargetPath, Dir: dir})
	}
	return ns, nil
}
