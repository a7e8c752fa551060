package graph

import (
	"path"
	"regexp"
	"strings"
)

var (
	goSingleImportRe = regexp.MustCompile(`(?m)^\s*import\s+"([^"]+)"`)
	goBlockImportRe  = regexp.MustCompile(`(?s)import\s*\(([^)]*)\)`)
	goBlockLineRe    = regexp.MustCompile(`"([^"]+)"`)
)

type goResolver struct{}

func (r *goResolver) Supports(p string) bool {
	return path.Ext(p) == ".go"
}

func (r *goResolver) ExtractImports(content string) []string {
	var imports []string
	for _, m := range goSingleImportRe.FindAllStringSubmatch(content, -1) {
		imports = append(imports, m[1])
	}
	for _, block := range goBlockImportRe.FindAllStringSubmatch(content, -1) {
		for _, m := range goBlockLineRe.FindAllStringSubmatch(block[1], -1) {
			imports = append(imports, m[1])
		}
	}
	return imports
}

// Resolve skips standard-library-looking imports (no dot and no slash —
// e.g. "fmt", "strings") and suffix-matches the import path's final
// segment as a directory component across all .go files, preferring a
// non-_test.go file when both exist.
func (r *goResolver) Resolve(importStr, _ string, allPaths map[string]bool) (string, bool) {
	if !strings.ContainsAny(importStr, "./") {
		return "", false
	}

	pkg := path.Base(importStr)
	suffix := "/" + pkg + "/"

	var nonTest, testFile string
	for p := range allPaths {
		if path.Ext(p) != ".go" {
			continue
		}
		dirWithSlash := "/" + path.Dir(p) + "/"
		if !strings.HasSuffix(dirWithSlash, suffix) {
			continue
		}
		if strings.HasSuffix(p, "_test.go") {
			if testFile == "" {
				testFile = p
			}
			continue
		}
		if nonTest == "" {
			nonTest = p
		}
	}

	if nonTest != "" {
		return nonTest, true
	}
	if testFile != "" {
		return testFile, true
	}
	return "", false
}
