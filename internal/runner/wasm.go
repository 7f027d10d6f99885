package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/vk/componentd/internal/ctxlog"
)

// WasmRunner starts components whose program section names a WebAssembly
// binary, executing it with wazero under WASI. The binary path is resolved
// against the component's package directory; namespace entries become
// preopened guest directories.
type WasmRunner struct {
	runtime wazero.Runtime
}

// NewWasmRunner builds a runner with a shared compilation cache. Close it
// when the model shuts down.
func NewWasmRunner(ctx context.Context) *WasmRunner {
	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	return &WasmRunner{runtime: rt}
}

// Close releases compiled-module resources.
func (r *WasmRunner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Start implements Runner.
func (r *WasmRunner) Start(ctx context.Context, info StartInfo) error {
	logger := ctxlog.FromContext(ctx)

	binary, ok := info.Program["binary"]
	if !ok || binary == "" {
		return NewError(InstanceCannotStart, info.ResolvedURL, fmt.Errorf("program has no binary"))
	}
	path := binary
	if !filepath.IsAbs(path) {
		path = filepath.Join(info.PackageDir, filepath.FromSlash(binary))
	}

	wasm, err := os.ReadFile(path)
	if err != nil {
		return NewError(InstanceCannotStart, info.ResolvedURL, err)
	}

	// Anonymous module name so the same component URL can be started more
	// than once within one runtime.
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)
	if args, ok := info.Program["args"]; ok && args != "" {
		cfg = cfg.WithArgs(append([]string{binary}, strings.Fields(args)...)...)
	} else {
		cfg = cfg.WithArgs(binary)
	}

	fsCfg := wazero.NewFSConfig()
	for _, entry := range info.Namespace {
		fsCfg = fsCfg.WithDirMount(entry.Dir, entry.TargetPath)
	}
	if info.OutgoingDir != "" {
		fsCfg = fsCfg.WithDirMount(info.OutgoingDir, "/out")
	}
	cfg = cfg.WithFSConfig(fsCfg)

	logger.Debug("Starting wasm program.", "url", info.ResolvedURL, "binary", binary)

	mod, err := r.runtime.InstantiateWithConfig(ctx, wasm, cfg)
	if err != nil {
		// A clean exit(0) from the guest's start function is a successful
		// start, not a failure.
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil
		}
		return NewError(InstanceCannotStart, info.ResolvedURL, err)
	}
	if err := mod.Close(ctx); err != nil {
		return NewError(Internal, info.ResolvedURL, err)
	}
	return nil
}
