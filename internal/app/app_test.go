package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/componentd/internal/moniker"
	"github.com/vk/componentd/internal/testutil"
)

// writePackages lays out a packages directory: one manifest file per entry,
// keyed by relative path.
func writePackages(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestRunBindsRootAndEagerChildren(t *testing.T) {
	pkgDir := writePackages(t, map[string]string{
		"root.hcl": `
program {
  binary = "bin/root"
}

child "logger" {
  url     = "file:///logger"
  startup = "eager"
}

child "shell" {
  url = "file:///shell"
}
`,
		"logger.hcl": `
program {
  binary = "bin/logger"
}
`,
		"shell.hcl": `
program {
  binary = "bin/shell"
}
`,
	})

	cfg, err := NewConfig(Config{
		RootURL:     "file:///root",
		PackagesDir: pkgDir,
		LogFormat:   "text",
		LogLevel:    "debug",
	})
	require.NoError(t, err)

	logBuf := &testutil.SafeBuffer{}
	run := testutil.NewRecordingRunner()
	a := NewApp(logBuf, cfg, run)
	defer a.Close(context.Background())

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, []string{"file:///root", "file:///logger"}, run.StartedURLs())
	assert.Contains(t, logBuf.String(), "Root instance bound")

	shell, err := a.Model().LookUpRealm(context.Background(), moniker.NewAbsolute(moniker.NewChild("shell")))
	require.NoError(t, err)
	assert.False(t, shell.IsStarted())
}

func TestRunFailsOnUnresolvableRoot(t *testing.T) {
	cfg, err := NewConfig(Config{
		RootURL:     "file:///missing",
		PackagesDir: t.TempDir(),
		LogFormat:   "text",
		LogLevel:    "error",
	})
	require.NoError(t, err)

	a := NewApp(&testutil.SafeBuffer{}, cfg, testutil.NewRecordingRunner())
	defer a.Close(context.Background())

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bind root instance")
}

func TestConfigLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.Level(), "level %q", in)
	}
}

func TestNewConfigValidation(t *testing.T) {
	_, err := NewConfig(Config{PackagesDir: "/pkgs"})
	require.Error(t, err)

	_, err = NewConfig(Config{RootURL: "file:///root"})
	require.Error(t, err)

	cfg, err := NewConfig(Config{RootURL: "file:///root", PackagesDir: "/pkgs"})
	require.NoError(t, err)
	assert.Equal(t, "file:///root", cfg.RootURL)
}
