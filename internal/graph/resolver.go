package graph

import (
	"path"
	"strings"
)

// Resolver extracts import strings from a file's source and resolves
// each against the project's full path set. Import extraction is
// regex-level, matching spec §1's non-goal of full static analysis — no
// type resolution or symbol tables, just the same import-line patterns a
// language's own tooling would recognize at a glance.
type Resolver interface {
	// Supports reports whether this resolver handles the given
	// project-relative file path.
	Supports(path string) bool

	// ExtractImports returns the raw import strings found in content, in
	// source order.
	ExtractImports(content string) []string

	// Resolve maps one import string, found in currentFile, to a
	// project-relative path in allPaths. Returns ("", false) if it can't
	// be resolved — a failed resolution is not an error (spec §7:
	// "Resolver failure — returns null, expansion continues").
	Resolve(importStr, currentFile string, allPaths map[string]bool) (string, bool)
}

// Resolvers returns the fixed, language-priority-ordered resolver list.
func Resolvers() []Resolver {
	return []Resolver{
		&tsJSResolver{},
		&pythonResolver{},
		&goResolver{},
		&javaResolver{},
		&rustResolver{},
	}
}

// IsBarrel reports whether path is a barrel/re-export entry point:
// __init__.py, mod.rs, or index.{ts,tsx,js,jsx,mts,mjs,cts,cjs}.
func IsBarrel(p string) bool {
	base := path.Base(p)
	switch base {
	case "__init__.py", "mod.rs":
		return true
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".mjs", ".cts", ".cjs"} {
		if base == "index"+ext {
			return true
		}
	}
	return false
}

// resolverFor returns the first resolver that supports path, or nil.
func resolverFor(p string) Resolver {
	for _, r := range Resolvers() {
		if r.Supports(p) {
			return r
		}
	}
	return nil
}

// joinClean joins a directory and a relative path and collapses `.`/`..`
// segments using POSIX semantics (project paths are always `/`-separated).
func joinClean(dir, rel string) string {
	return path.Clean(path.Join(dir, rel))
}

func trimExt(p string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext)
}
