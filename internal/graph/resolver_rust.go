package graph

import (
	"path"
	"regexp"
	"strings"
)

var (
	rustModRe = regexp.MustCompile(`(?m)^\s*(?:pub\s+)?mod\s+(\w+)\s*;`)
	rustUseRe = regexp.MustCompile(`(?m)^\s*(?:pub\s+)?use\s+((?:crate|super|self)::[\w:]+)`)
)

type rustResolver struct{}

func (r *rustResolver) Supports(p string) bool {
	return path.Ext(p) == ".rs"
}

func (r *rustResolver) ExtractImports(content string) []string {
	var imports []string
	for _, m := range rustModRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, "mod:"+m[1])
	}
	for _, m := range rustUseRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, "use:"+m[1])
	}
	return imports
}

func (r *rustResolver) Resolve(importStr, currentFile string, allPaths map[string]bool) (string, bool) {
	dir := path.Dir(currentFile)

	if name, ok := strings.CutPrefix(importStr, "mod:"); ok {
		if p := path.Join(dir, name+".rs"); allPaths[p] {
			return p, true
		}
		if p := path.Join(dir, name, "mod.rs"); allPaths[p] {
			return p, true
		}
		return "", false
	}

	use, ok := strings.CutPrefix(importStr, "use:")
	if !ok {
		return "", false
	}

	var anchor string
	switch {
	case strings.HasPrefix(use, "crate::"):
		anchor = srcRoot(currentFile)
		use = strings.TrimPrefix(use, "crate::")
	case strings.HasPrefix(use, "super::"):
		anchor = path.Dir(dir)
		use = strings.TrimPrefix(use, "super::")
	case strings.HasPrefix(use, "self::"):
		anchor = dir
		use = strings.TrimPrefix(use, "self::")
	default:
		return "", false
	}

	// Only the first path segment after the anchor keyword names a
	// resolvable module file; trailing segments are items imported from
	// it (types, functions), not further directory components.
	segment, _, _ := strings.Cut(use, "::")
	if segment == "" {
		return "", false
	}

	if p := joinClean(anchor, segment+".rs"); allPaths[p] {
		return p, true
	}
	if p := joinClean(anchor, path.Join(segment, "mod.rs")); allPaths[p] {
		return p, true
	}
	return "", false
}

// srcRoot walks up from a file looking for a "src" ancestor directory,
// falling back to the top-level "src" directory if none is found.
func srcRoot(currentFile string) string {
	dir := path.Dir(currentFile)
	for dir != "." && dir != "/" {
		if path.Base(dir) == "src" {
			return dir
		}
		dir = path.Dir(dir)
	}
	return "src"
}
