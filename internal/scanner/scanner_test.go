package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextweaver/contextweaver/internal/config"
)

func collectScan(t *testing.T, opts *ScanOptions) []*FileInfo {
	t.Helper()
	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), opts)
	require.NoError(t, err)

	var files []*FileInfo
	for r := range results {
		require.NoError(t, r.Error)
		if r.File != nil {
			files = append(files, r.File)
		}
	}
	return files
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestScanDiscoversCodeFilesAndSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {}\n")
	writeFile(t, root, "vendor/pkg/pkg.go", "package pkg\n")

	files := collectScan(t, &ScanOptions{RootDir: root, RespectGitignore: true})

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "node_modules/dep/index.js")
	assert.NotContains(t, paths, "vendor/pkg/pkg.go")
}

func TestScanRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\nbuild_output/\n")
	writeFile(t, root, "app.go", "package app\n")
	writeFile(t, root, "debug.log", "trace\n")
	writeFile(t, root, "build_output/artifact.txt", "binary-ish\n")

	files := collectScan(t, &ScanOptions{RootDir: root, RespectGitignore: true})

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "app.go")
	assert.NotContains(t, paths, "debug.log")
	assert.NotContains(t, paths, "build_output/artifact.txt")
}

func TestScanSkipsSensitiveFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "service.go", "package service\n")
	writeFile(t, root, ".env", "SECRET=1\n")
	writeFile(t, root, "server.key", "-----BEGIN KEY-----\n")

	files := collectScan(t, &ScanOptions{RootDir: root})

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "service.go")
	assert.NotContains(t, paths, ".env")
	assert.NotContains(t, paths, "server.key")
}

func TestScanSkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readable.go", "package main\n")
	binPath := filepath.Join(root, "blob.dat")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 'a', 'b'}, 0o644))

	files := collectScan(t, &ScanOptions{RootDir: root})

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "readable.go")
	assert.NotContains(t, paths, "blob.dat")
}

func TestScanDetectsGeneratedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gen.go", "// Code generated by protoc-gen-go. DO NOT EDIT.\npackage pb\n")
	writeFile(t, root, "hand.go", "package pb\n")

	files := collectScan(t, &ScanOptions{RootDir: root})

	byPath := map[string]*FileInfo{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	require.Contains(t, byPath, "gen.go")
	require.Contains(t, byPath, "hand.go")
	assert.True(t, byPath["gen.go"].IsGenerated)
	assert.False(t, byPath["hand.go"].IsGenerated)
}

func TestScanHonorsIncludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "b.md", "# doc\n")

	files := collectScan(t, &ScanOptions{RootDir: root, IncludePatterns: []string{"**/*.go"}})

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "a.go")
	assert.NotContains(t, paths, "b.md")
}

func TestDetectLanguageAndContentType(t *testing.T) {
	assert.Equal(t, "go", DetectLanguage("pkg/main.go"))
	assert.Equal(t, "typescript", DetectLanguage("src/index.tsx"))
	assert.Equal(t, "dockerfile", DetectLanguage("Dockerfile"))
	assert.Equal(t, ContentTypeCode, DetectContentType("go"))
	assert.Equal(t, ContentTypeMarkdown, DetectContentType("markdown"))
	assert.Equal(t, ContentTypeText, DetectContentType(""))
}

func TestHashFileIsStableAndContentAddressed(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "f.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello world"), 0o644))

	h1, err := HashFile(p)
	require.NoError(t, err)
	h2, err := HashFile(p)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	require.NoError(t, os.WriteFile(p, []byte("hello world!"), 0o644))
	h3, err := HashFile(p)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestParseGitmodulesParsesMultipleEntries(t *testing.T) {
	content := []byte(`[submodule "libfoo"]
	path = vendor/libfoo
	url = https://example.com/libfoo.git
	branch = main
[submodule "libbar"]
	path = vendor/libbar
	url = https://example.com/libbar.git
`)
	subs, err := ParseGitmodules(content)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "libfoo", subs[0].Name)
	assert.Equal(t, "vendor/libfoo", subs[0].Path)
	assert.Equal(t, "main", subs[0].Branch)
	assert.Equal(t, "libbar", subs[1].Name)
}

func TestMatchesPatternExcludeTakesPriorityOverInclude(t *testing.T) {
	assert.True(t, MatchesPattern("libfoo", "vendor/libfoo", nil, nil))
	assert.False(t, MatchesPattern("libfoo", "vendor/libfoo", []string{"vendor/*"}, []string{"libfoo"}))
	assert.True(t, MatchesPattern("libfoo", "vendor/libfoo", []string{"vendor/*"}, nil))
	assert.False(t, MatchesPattern("libbar", "vendor/libbar", []string{"vendor/libfoo"}, nil))
}

func TestDiscoverSubmodulesFindsDeclaredSubmodule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitmodules", `[submodule "libfoo"]
	path = vendor/libfoo
	url = https://example.com/libfoo.git
`)
	// An initialized submodule has more than just a .git entry.
	writeFile(t, root, "vendor/libfoo/README.md", "# libfoo\n")

	subs, err := DiscoverSubmodules(root, config.SubmoduleConfig{Enabled: true, Recursive: true})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "vendor/libfoo", subs[0].Path)
	assert.True(t, subs[0].Initialized)
}

func TestDiscoverSubmodulesDisabledReturnsNil(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitmodules", `[submodule "libfoo"]
	path = vendor/libfoo
	url = https://example.com/libfoo.git
`)
	subs, err := DiscoverSubmodules(root, config.SubmoduleConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, subs)
}
