package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmdRegistersExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["scan"])
	assert.True(t, names["search"])
	assert.True(t, names["index"])
	assert.True(t, names["config"])
	assert.True(t, names["version"])
}

func TestVersionCmdPrintsShortVersion(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version", "--short"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "dev\n", buf.String())
}

func TestScanCmdRejectsMissingPath(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"scan", "/definitely/does/not/exist"})
	err := root.Execute()
	require.Error(t, err)
}

func TestSearchCmdRequiresExistingIndex(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(oldDir) }()

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"search", "foo"})
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index found")
}
