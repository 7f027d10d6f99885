package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/model"
	"github.com/vk/componentd/internal/resolver"
	"github.com/vk/componentd/internal/runner"
)

// App encapsulates the orchestrator's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *model.Model

	// wasm is set only when the app owns its runner and must close it.
	wasm *runner.WasmRunner
}

// NewApp is the constructor for the orchestrator. A nil run wires in the
// wazero-backed wasm runner; tests pass their own.
func NewApp(outW io.Writer, cfg *Config, run runner.Runner) *App {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{outW: outW, logger: logger, config: cfg}

	if run == nil {
		a.wasm = runner.NewWasmRunner(ctx)
		run = a.wasm
	}

	fileResolver := resolver.NewFileResolver(cfg.PackagesDir)
	if urls, err := fileResolver.ListComponents(); err == nil {
		logger.Debug("Discovered component manifests.", "count", len(urls))
	}
	resolvers := resolver.NewRegistry(map[string]resolver.Resolver{
		"file": fileResolver,
	})
	a.model = model.New(model.Params{
		RootComponentURL: cfg.RootURL,
		Resolvers:        resolvers,
		Runner:           run,
		OutDirRoot:       cfg.OutDir,
	})
	logger.Debug("Model constructed.", "root_url", cfg.RootURL)
	return a
}

// Model returns the instance tree. This is primarily for testing.
func (a *App) Model() *model.Model {
	return a.model
}

// Close releases resources owned by the app.
func (a *App) Close(ctx context.Context) error {
	if a.wasm != nil {
		return a.wasm.Close(ctx)
	}
	return nil
}
