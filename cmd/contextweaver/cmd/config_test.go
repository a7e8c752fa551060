package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextweaver/contextweaver/internal/config"
)

func TestConfigInitCreatesUserConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"config", "init"})
	require.NoError(t, root.Execute())

	path := config.GetUserConfigPath()
	assert.Equal(t, filepath.Join(xdg, "contextweaver", "config.yaml"), path)
	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Created user configuration")
}

func TestConfigInitWithoutForceLeavesExistingConfigAlone(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	root := NewRootCmd()
	root.SetArgs([]string{"config", "init"})
	require.NoError(t, root.Execute())

	buf := new(bytes.Buffer)
	root2 := NewRootCmd()
	root2.SetOut(buf)
	root2.SetArgs([]string{"config", "init"})
	require.NoError(t, root2.Execute())
	assert.Contains(t, buf.String(), "already exists")
}

func TestConfigInitForceBacksUpExistingConfig(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	first := NewRootCmd()
	first.SetArgs([]string{"config", "init"})
	require.NoError(t, first.Execute())

	buf := new(bytes.Buffer)
	second := NewRootCmd()
	second.SetOut(buf)
	second.SetArgs([]string{"config", "init", "--force"})
	require.NoError(t, second.Execute())
	assert.Contains(t, buf.String(), "Backed up existing configuration")

	entries, err := os.ReadDir(filepath.Join(xdg, "contextweaver"))
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".yaml" {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestConfigPathPrintsUserConfigPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"config", "path"})
	require.NoError(t, root.Execute())
	assert.Equal(t, filepath.Join(xdg, "contextweaver", "config.yaml")+"\n", buf.String())
}

func TestConfigShowRendersYAMLByDefault(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	tmpDir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(oldDir) }()

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"config", "show"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "search:")
}
