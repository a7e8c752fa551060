// Package scanner discovers indexable files in a project, respecting
// .gitignore/.contextweaverignore rules, exclusion patterns, generated-file
// heuristics, and git submodule boundaries.
package scanner

import (
	"time"

	"github.com/contextweaver/contextweaver/internal/config"
)

// ContentType classifies a discovered file.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
	ContentTypeConfig   ContentType = "config"
)

// FileInfo describes a discovered file.
type FileInfo struct {
	Path        string // relative to project root
	AbsPath     string
	Size        int64
	ModTime     time.Time
	ContentType ContentType
	Language    string
	IsGenerated bool
	Submodule   string // submodule path this file belongs to, empty if none
}

// ScanOptions configures a scan.
type ScanOptions struct {
	RootDir          string
	IncludePatterns  []string
	ExcludePatterns  []string
	IgnorePatterns   []string // extra patterns from CONTEXTWEAVER_IGNORE_PATTERNS / config
	RespectGitignore bool
	Workers          int
	MaxFileSize      int64
	FollowSymlinks   bool
	ProgressFunc     func(scanned, total int)
	Submodules       *config.SubmoduleConfig
}

// ScanResult is emitted on the scanner's result channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size scanned (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

var languageMap = map[string]string{
	".go": "go",

	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",

	".py": "python", ".pyw": "python", ".pyi": "python",

	".html": "html", ".htm": "html", ".css": "css", ".scss": "scss", ".sass": "sass", ".less": "less",

	".json": "json", ".yaml": "yaml", ".yml": "yaml", ".toml": "toml",
	".xml": "xml", ".ini": "ini", ".conf": "config", ".properties": "properties",

	".md": "markdown", ".mdx": "markdown", ".markdown": "markdown", ".rst": "rst", ".txt": "text",

	".sh": "shell", ".bash": "shell", ".zsh": "shell", ".fish": "fish",

	".rb": "ruby", ".rake": "ruby", ".erb": "erb",

	".rs": "rust",

	".java": "java", ".kt": "kotlin", ".kts": "kotlin",

	".c": "c", ".h": "c", ".cpp": "cpp", ".hpp": "cpp", ".cc": "cpp", ".cxx": "cpp",

	".cs": "csharp",

	".swift": "swift",

	".php": "php",

	".scala": "scala",

	".ex": "elixir", ".exs": "elixir", ".erl": "erlang",

	".hs": "haskell",

	".lua": "lua",

	".sql": "sql",

	"Dockerfile": "dockerfile",
	"Makefile":   "makefile", "makefile": "makefile", "GNUmakefile": "makefile",

	".vue": "vue", ".svelte": "svelte", ".graphql": "graphql", ".gql": "graphql", ".proto": "protobuf",
}

var contentTypeMap = map[string]ContentType{
	"go": ContentTypeCode, "javascript": ContentTypeCode, "typescript": ContentTypeCode,
	"python": ContentTypeCode, "ruby": ContentTypeCode, "rust": ContentTypeCode,
	"java": ContentTypeCode, "kotlin": ContentTypeCode, "c": ContentTypeCode, "cpp": ContentTypeCode,
	"csharp": ContentTypeCode, "swift": ContentTypeCode, "php": ContentTypeCode, "scala": ContentTypeCode,
	"elixir": ContentTypeCode, "erlang": ContentTypeCode, "haskell": ContentTypeCode, "lua": ContentTypeCode,
	"sql": ContentTypeCode, "shell": ContentTypeCode, "fish": ContentTypeCode, "erb": ContentTypeCode,
	"vue": ContentTypeCode, "svelte": ContentTypeCode, "graphql": ContentTypeCode, "protobuf": ContentTypeCode,
	"html": ContentTypeCode, "css": ContentTypeCode, "scss": ContentTypeCode, "sass": ContentTypeCode, "less": ContentTypeCode,

	"markdown": ContentTypeMarkdown, "rst": ContentTypeMarkdown,

	"text": ContentTypeText,

	"json": ContentTypeConfig, "yaml": ContentTypeConfig, "toml": ContentTypeConfig, "xml": ContentTypeConfig,
	"ini": ContentTypeConfig, "config": ContentTypeConfig, "properties": ContentTypeConfig,
	"dockerfile": ContentTypeConfig, "makefile": ContentTypeConfig,
}

// DetectLanguage infers a programming language from a file path.
func DetectLanguage(path string) string {
	base := baseName(path)
	if lang, ok := languageMap[base]; ok {
		return lang
	}
	if lang, ok := languageMap[extension(path)]; ok {
		return lang
	}
	return ""
}

// DetectContentType maps a language to a content type.
func DetectContentType(language string) ContentType {
	if ct, ok := contentTypeMap[language]; ok {
		return ct
	}
	return ContentTypeText
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
