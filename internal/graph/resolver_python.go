package graph

import (
	"path"
	"regexp"
	"strings"
)

var (
	pyFromImportRe = regexp.MustCompile(`(?m)^\s*from\s+(\.*[\w.]*)\s+import\b`)
	pyImportRe     = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
)

type pythonResolver struct{}

func (r *pythonResolver) Supports(p string) bool {
	return path.Ext(p) == ".py"
}

func (r *pythonResolver) ExtractImports(content string) []string {
	var imports []string
	for _, m := range pyFromImportRe.FindAllStringSubmatch(content, -1) {
		if m[1] != "" {
			imports = append(imports, m[1])
		}
	}
	for _, m := range pyImportRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, m[1])
	}
	return imports
}

func (r *pythonResolver) Resolve(importStr, currentFile string, allPaths map[string]bool) (string, bool) {
	if strings.HasPrefix(importStr, ".") {
		return r.resolveRelative(importStr, currentFile, allPaths)
	}
	return r.resolveAbsolute(importStr, currentFile, allPaths)
}

// resolveRelative handles `from .foo import x` / `from ..pkg.mod import y`:
// each leading dot beyond the first walks up one directory from the
// importer's own directory.
func (r *pythonResolver) resolveRelative(importStr, currentFile string, allPaths map[string]bool) (string, bool) {
	dots := 0
	for dots < len(importStr) && importStr[dots] == '.' {
		dots++
	}
	rest := importStr[dots:]

	dir := path.Dir(currentFile)
	for i := 0; i < dots-1; i++ {
		dir = path.Dir(dir)
	}

	if rest == "" {
		return tryPythonModule(dir, allPaths)
	}
	sub := strings.ReplaceAll(rest, ".", "/")
	return tryPythonModule(joinClean(dir, sub), allPaths)
}

// resolveAbsolute handles `import a.b.c` / `from a.b import c`: dots map
// to path separators and the result is matched by suffix against the
// project's full path set, breaking ties by longest common directory
// prefix with the importer.
func (r *pythonResolver) resolveAbsolute(importStr, currentFile string, allPaths map[string]bool) (string, bool) {
	sub := strings.ReplaceAll(importStr, ".", "/")
	suffixFile := "/" + sub + ".py"
	suffixPkg := "/" + sub + "/__init__.py"

	var candidates []string
	for p := range allPaths {
		withSlash := "/" + p
		if strings.HasSuffix(withSlash, suffixFile) || strings.HasSuffix(withSlash, suffixPkg) {
			candidates = append(candidates, p)
		}
	}
	return pickByCommonPrefix(candidates, currentFile)
}

func tryPythonModule(base string, allPaths map[string]bool) (string, bool) {
	if p := base + ".py"; allPaths[p] {
		return p, true
	}
	if p := joinClean(base, "__init__.py"); allPaths[p] {
		return p, true
	}
	return "", false
}

// pickByCommonPrefix breaks ties among several candidate paths by
// preferring the one sharing the longest directory prefix with from.
func pickByCommonPrefix(candidates []string, from string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	fromDir := strings.Split(path.Dir(from), "/")
	best := candidates[0]
	bestLen := commonPrefixLen(fromDir, strings.Split(path.Dir(best), "/"))
	for _, c := range candidates[1:] {
		l := commonPrefixLen(fromDir, strings.Split(path.Dir(c), "/"))
		if l > bestLen {
			bestLen = l
			best = c
		}
	}
	return best, true
}

func commonPrefixLen(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
