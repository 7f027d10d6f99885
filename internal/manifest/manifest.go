// Package manifest parses HCL component manifests into the declaration
// model. The HCL-specific schema stays private to this package; consumers
// only ever see decl types.
package manifest

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/componentd/internal/decl"
)

// Parse parses manifest source into a validated component declaration.
// filename is used for diagnostic positions only.
func Parse(src []byte, filename string) (*decl.ComponentDecl, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing manifest %s: %w", filename, diags)
	}

	var cf componentFile
	if diags := gohcl.DecodeBody(file.Body, nil, &cf); diags.HasErrors() {
		return nil, fmt.Errorf("decoding manifest %s: %w", filename, diags)
	}

	d, err := translate(&cf)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", filename, err)
	}
	if err := decl.Validate(d); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", filename, err)
	}
	return d, nil
}

// ParseFile reads and parses a component manifest from disk.
func ParseFile(path string) (*decl.ComponentDecl, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(src, path)
}
