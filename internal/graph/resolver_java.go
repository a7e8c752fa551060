package graph

import (
	"path"
	"regexp"
	"strings"
)

var javaImportRe = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+(?:\.\*)?)\s*;`)

type javaResolver struct{}

func (r *javaResolver) Supports(p string) bool {
	return path.Ext(p) == ".java"
}

func (r *javaResolver) ExtractImports(content string) []string {
	var imports []string
	for _, m := range javaImportRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, m[1])
	}
	return imports
}

// Resolve maps `a.b.C` to a suffix match on `/a/b/C.java`, and a wildcard
// `a.b.*` to any `.java` file directly under `/a/b/`.
func (r *javaResolver) Resolve(importStr, currentFile string, allPaths map[string]bool) (string, bool) {
	if strings.HasSuffix(importStr, ".*") {
		pkgDir := strings.ReplaceAll(strings.TrimSuffix(importStr, ".*"), ".", "/")
		suffix := "/" + pkgDir + "/"

		var candidates []string
		for p := range allPaths {
			if path.Ext(p) != ".java" {
				continue
			}
			if strings.HasSuffix("/"+path.Dir(p)+"/", suffix) {
				candidates = append(candidates, p)
			}
		}
		return pickByCommonPrefix(candidates, currentFile)
	}

	parts := strings.Split(importStr, ".")
	suffix := "/" + strings.Join(parts, "/") + ".java"
	for p := range allPaths {
		if strings.HasSuffix("/"+p, suffix) {
			return p, true
		}
	}
	return "", false
}
