package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/componentd/internal/decl"
)

const systemManifest = `
program {
  binary = "bin/system.wasm"
  args   = "--verbose"
}

use "protocol" {
  from = "parent"
  path = "/svc/log"
}

use "storage" {
  type        = "data"
  target_path = "/data"
}

use "runner" {
  name = "wasm"
}

offer "protocol" {
  from     = "self"
  path     = "/svc/sys"
  to_child = "logger"
}

offer "runner" {
  from          = "parent"
  name          = "wasm"
  to_collection = "workers"
}

expose "protocol" {
  from        = "#logger"
  path        = "/svc/logsink"
  target_path = "/svc/logsink"
}

storage "data" {
  from = "self"
  path = "/minfs/data"
}

runner "wasm" {
  path = "/svc/runner"
}

child "logger" {
  url     = "test:///logger"
  startup = "eager"
}

collection "workers" {
  durability = "transient"
}
`

func TestParseFullManifest(t *testing.T) {
	got, err := Parse([]byte(systemManifest), "system.hcl")
	require.NoError(t, err)

	want := &decl.ComponentDecl{
		Program: map[string]string{
			"binary": "bin/system.wasm",
			"args":   "--verbose",
		},
		Uses: []decl.UseDecl{
			decl.UseProtocolDecl{Source: decl.Source{Kind: decl.SourceParent}, SourcePath: "/svc/log", TargetPath: "/svc/log"},
			decl.UseStorageDecl{Type: decl.StorageData, TargetPath: "/data"},
			decl.UseRunnerDecl{SourceName: "wasm"},
		},
		Offers: []decl.OfferDecl{
			decl.OfferProtocolDecl{
				Source:     decl.Source{Kind: decl.SourceSelf},
				SourcePath: "/svc/sys",
				Target:     decl.OfferTarget{Kind: decl.OfferTargetChild, Name: "logger"},
				TargetPath: "/svc/sys",
			},
			decl.OfferRunnerDecl{
				Source:     decl.Source{Kind: decl.SourceParent},
				SourceName: "wasm",
				Target:     decl.OfferTarget{Kind: decl.OfferTargetCollection, Name: "workers"},
				TargetName: "wasm",
			},
		},
		Exposes: []decl.ExposeDecl{
			decl.ExposeProtocolDecl{
				Source:     decl.Source{Kind: decl.SourceChild, Child: "logger"},
				SourcePath: "/svc/logsink",
				TargetPath: "/svc/logsink",
			},
		},
		Storage: []decl.StorageDecl{
			{Name: "data", Source: decl.Source{Kind: decl.SourceSelf}, SourcePath: "/minfs/data"},
		},
		Runners: []decl.RunnerDecl{
			{Name: "wasm", Source: decl.Source{Kind: decl.SourceSelf}, SourcePath: "/svc/runner"},
		},
		Children: []decl.ChildDecl{
			{Name: "logger", URL: "test:///logger", Startup: decl.StartupEager},
		},
		Collections: []decl.CollectionDecl{
			{Name: "workers", Durability: decl.DurabilityTransient},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyManifest(t *testing.T) {
	got, err := Parse([]byte(""), "empty.hcl")
	require.NoError(t, err)
	assert.Empty(t, got.Children)
	assert.Empty(t, got.Uses)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`child "x" {`), "broken.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.hcl")
}

func TestParseRejectsUnknownKinds(t *testing.T) {
	_, err := Parse([]byte(`use "widget" { path = "/svc/x" }`), "m.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown capability kind")

	_, err = Parse([]byte("child \"x\" {\n  url = \"test:///x\"\n  startup = \"sometimes\"\n}"), "m.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown startup mode")
}

func TestParseRejectsAmbiguousOfferTarget(t *testing.T) {
	src := `
offer "protocol" {
  from          = "self"
  path          = "/svc/x"
  to_child      = "a"
  to_collection = "c"
}
`
	_, err := Parse([]byte(src), "m.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	src = `
offer "protocol" {
  from = "self"
  path = "/svc/x"
}
`
	_, err = Parse([]byte(src), "m.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing to_child or to_collection")
}

func TestParseRunsDeclValidation(t *testing.T) {
	// Offer aimed at an undeclared child must be rejected by the decl
	// validator, not silently accepted.
	src := `
offer "protocol" {
  from     = "self"
  path     = "/svc/x"
  to_child = "ghost"
}
`
	_, err := Parse([]byte(src), "m.hcl")
	require.Error(t, err)
	var list decl.ErrorList
	require.ErrorAs(t, err, &list)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "root.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`child "a" { url = "test:///a" }`), 0o644))

	d, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, d.Children, 1)
	assert.Equal(t, "a", d.Children[0].Name)

	_, err = ParseFile(filepath.Join(dir, "missing.hcl"))
	assert.Error(t, err)
}
