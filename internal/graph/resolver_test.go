package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBarrel(t *testing.T) {
	assert.True(t, IsBarrel("pkg/__init__.py"))
	assert.True(t, IsBarrel("src/mod.rs"))
	assert.True(t, IsBarrel("src/components/index.ts"))
	assert.False(t, IsBarrel("src/components/button.ts"))
}

func TestTSJSResolverRelativeWithExtensionFamily(t *testing.T) {
	r := &tsJSResolver{}
	paths := map[string]bool{"src/utils/format.ts": true}

	target, ok := r.Resolve("./utils/format.js", "src/app.ts", paths)
	assert.True(t, ok)
	assert.Equal(t, "src/utils/format.ts", target)
}

func TestTSJSResolverIndexFallback(t *testing.T) {
	r := &tsJSResolver{}
	paths := map[string]bool{"src/components/index.tsx": true}

	target, ok := r.Resolve("./components", "src/app.ts", paths)
	assert.True(t, ok)
	assert.Equal(t, "src/components/index.tsx", target)
}

func TestTSJSResolverSkipsNonRelative(t *testing.T) {
	r := &tsJSResolver{}
	_, ok := r.Resolve("react", "src/app.ts", map[string]bool{"node_modules/react/index.js": true})
	assert.False(t, ok)
}

func TestTSJSExtractImports(t *testing.T) {
	r := &tsJSResolver{}
	content := `
import { foo } from "./foo"
import bar from './bar'
const x = await import("./lazy")
const y = require("./legacy")
`
	imports := r.ExtractImports(content)
	assert.Contains(t, imports, "./foo")
	assert.Contains(t, imports, "./bar")
	assert.Contains(t, imports, "./lazy")
	assert.Contains(t, imports, "./legacy")
}

func TestPythonResolverRelative(t *testing.T) {
	r := &pythonResolver{}
	paths := map[string]bool{"pkg/sibling.py": true}
	target, ok := r.Resolve(".sibling", "pkg/mod.py", paths)
	assert.True(t, ok)
	assert.Equal(t, "pkg/sibling.py", target)
}

func TestPythonResolverParentRelative(t *testing.T) {
	r := &pythonResolver{}
	paths := map[string]bool{"pkg/shared/util.py": true}
	target, ok := r.Resolve("..shared.util", "pkg/sub/mod.py", paths)
	assert.True(t, ok)
	assert.Equal(t, "pkg/shared/util.py", target)
}

func TestPythonResolverAbsolutePackage(t *testing.T) {
	r := &pythonResolver{}
	paths := map[string]bool{"myapp/services/auth/__init__.py": true}
	target, ok := r.Resolve("myapp.services.auth", "myapp/main.py", paths)
	assert.True(t, ok)
	assert.Equal(t, "myapp/services/auth/__init__.py", target)
}

func TestGoResolverSkipsStdlib(t *testing.T) {
	r := &goResolver{}
	_, ok := r.Resolve("fmt", "main.go", map[string]bool{})
	assert.False(t, ok)
}

func TestGoResolverSuffixMatch(t *testing.T) {
	r := &goResolver{}
	paths := map[string]bool{
		"internal/store/types.go":      true,
		"internal/store/types_test.go": false, // present as a key; Resolve ranges over keys, so the non-test file must win
	}
	target, ok := r.Resolve("github.com/contextweaver/contextweaver/internal/store", "internal/index/indexer.go", paths)
	assert.True(t, ok)
	assert.Equal(t, "internal/store/types.go", target)
}

func TestGoResolverExtractImportsBlock(t *testing.T) {
	r := &goResolver{}
	content := `package main

import (
	"fmt"
	"github.com/foo/bar"
)

import "os"
`
	imports := r.ExtractImports(content)
	assert.Contains(t, imports, "fmt")
	assert.Contains(t, imports, "github.com/foo/bar")
	assert.Contains(t, imports, "os")
}

func TestJavaResolverWildcard(t *testing.T) {
	r := &javaResolver{}
	paths := map[string]bool{"a/b/Widget.java": true}
	target, ok := r.Resolve("a.b.*", "a/Main.java", paths)
	assert.True(t, ok)
	assert.Equal(t, "a/b/Widget.java", target)
}

func TestRustResolverModAndUse(t *testing.T) {
	r := &rustResolver{}
	paths := map[string]bool{"src/sub.rs": true, "src/sub/mod.rs": true}

	target, ok := r.Resolve("mod:sub", "src/lib.rs", paths)
	assert.True(t, ok)
	assert.Equal(t, "src/sub.rs", target)

	target, ok = r.Resolve("use:crate::sub::Thing", "src/lib.rs", paths)
	assert.True(t, ok)
	assert.Equal(t, "src/sub.rs", target)
}

func TestParentPrefix(t *testing.T) {
	assert.Equal(t, "", parentPrefix(""))
	assert.Equal(t, "", parentPrefix("a.ts"))
	assert.Equal(t, "a.ts > UserService", parentPrefix("a.ts > UserService > validate"))
}
