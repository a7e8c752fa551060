package graph

import (
	"path"
	"regexp"
	"strings"
)

var (
	tsImportFromRe = regexp.MustCompile(`import\s+(?:type\s+)?(?:[^'";]+?from\s+)?['"]([^'"]+)['"]`)
	tsDynamicRe    = regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	tsRequireRe    = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
)

// extensionFamilies maps a source file's extension to the ordered list of
// candidate extensions to try when resolving an extensionless or
// same-extension relative import, per spec §4.8 TS/JS resolver rules.
var extensionFamilies = map[string][]string{
	".js":  {".ts", ".tsx", ".js", ".jsx"},
	".jsx": {".tsx", ".jsx", ".ts", ".js"},
	".mjs": {".mts", ".mjs", ".ts", ".js"},
	".cjs": {".cts", ".cjs", ".ts", ".js"},
	".ts":  {".ts", ".tsx"},
	".tsx": {".tsx", ".ts"},
}

var defaultTSJSExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

type tsJSResolver struct{}

func (r *tsJSResolver) Supports(p string) bool {
	switch path.Ext(p) {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts":
		return true
	}
	return false
}

func (r *tsJSResolver) ExtractImports(content string) []string {
	var imports []string
	for _, re := range []*regexp.Regexp{tsImportFromRe, tsDynamicRe, tsRequireRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			imports = append(imports, m[1])
		}
	}
	return imports
}

func (r *tsJSResolver) Resolve(importStr, currentFile string, allPaths map[string]bool) (string, bool) {
	if !strings.HasPrefix(importStr, ".") {
		return "", false // only relative imports are resolved (spec §4.8)
	}

	dir := path.Dir(currentFile)
	joined := joinClean(dir, importStr)

	// Try the literal path as given, if it already carries a recognized
	// extension.
	ext := path.Ext(joined)
	if ext != "" {
		if allPaths[joined] {
			return joined, true
		}
		if family, ok := extensionFamilies[ext]; ok {
			base := trimExt(joined)
			for _, candidate := range family {
				if p := base + candidate; allPaths[p] {
					return p, true
				}
			}
		}
	} else {
		for _, candidate := range defaultTSJSExtensions {
			if p := joined + candidate; allPaths[p] {
				return p, true
			}
		}
	}

	// Barrel fallback: `./dir` or `./dir/index`.
	for _, candidate := range defaultTSJSExtensions {
		if p := joined + "/index" + candidate; allPaths[p] {
			return p, true
		}
	}

	return "", false
}
