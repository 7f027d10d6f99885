package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyModule is the smallest valid wasm binary: magic plus version, no
// sections. It instantiates cleanly and has no start function.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestWasmRunnerStartsValidModule(t *testing.T) {
	ctx := context.Background()
	r := NewWasmRunner(ctx)
	defer r.Close(ctx)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.wasm"), emptyModule, 0o644))

	err := r.Start(ctx, StartInfo{
		ResolvedURL: "file:///app",
		Program:     map[string]string{"binary": "app.wasm"},
		PackageDir:  dir,
	})
	assert.NoError(t, err)
}

func TestWasmRunnerMissingBinary(t *testing.T) {
	ctx := context.Background()
	r := NewWasmRunner(ctx)
	defer r.Close(ctx)

	err := r.Start(ctx, StartInfo{
		ResolvedURL: "file:///app",
		Program:     map[string]string{},
		PackageDir:  t.TempDir(),
	})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, InstanceCannotStart, rerr.Kind)
}

func TestWasmRunnerBinaryNotFound(t *testing.T) {
	ctx := context.Background()
	r := NewWasmRunner(ctx)
	defer r.Close(ctx)

	err := r.Start(ctx, StartInfo{
		ResolvedURL: "file:///app",
		Program:     map[string]string{"binary": "nope.wasm"},
		PackageDir:  t.TempDir(),
	})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, InstanceCannotStart, rerr.Kind)
}

func TestWasmRunnerRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	r := NewWasmRunner(ctx)
	defer r.Close(ctx)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.wasm"), []byte("not wasm"), 0o644))

	err := r.Start(ctx, StartInfo{
		ResolvedURL: "file:///junk",
		Program:     map[string]string{"binary": "junk.wasm"},
		PackageDir:  dir,
	})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, InstanceCannotStart, rerr.Kind)
}
