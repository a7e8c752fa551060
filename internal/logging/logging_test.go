package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogDirAndPath(t *testing.T) {
	dir := DefaultLogDir()
	assert.Contains(t, dir, ".contextweaver")
	assert.Contains(t, dir, "logs")

	path := DefaultLogPath()
	assert.Equal(t, "contextweaver.log", filepath.Base(path))
}

func TestDefaultAndDebugConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)

	debug := DebugConfig()
	assert.Equal(t, "debug", debug.Level)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestSetupWritesToFileAndStderr(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:         "debug",
		FilePath:      filepath.Join(dir, "test.log"),
		MaxSizeMB:     1,
		MaxFiles:      3,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("hello", slog.String("project", "demo"))

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "demo")
}

func TestFindLogFileExplicitPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "explicit.log")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	found, err := FindLogFile(p)
	require.NoError(t, err)
	assert.Equal(t, p, found)
}

func TestFindLogFileMissingExplicitPath(t *testing.T) {
	_, err := FindLogFile(filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestEnsureLogDirCreatesDirectory(t *testing.T) {
	require.NoError(t, EnsureLogDir())
	info, err := os.Stat(DefaultLogDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
