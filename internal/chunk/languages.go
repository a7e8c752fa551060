package chunk

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry manages supported languages, their tree-sitter grammars,
// and the node-type tables the splitter and graph resolvers rely on.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry creates a registry with all six chunker languages
// registered: Go, TypeScript, TSX, JavaScript, JSX (via JS grammar),
// Python, Java, and Rust.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	r.registerJava()
	r.registerRust()

	return r
}

// GetByName returns the language configuration by name.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a language name.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns every registered file extension.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang
	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

func (r *LanguageRegistry) registerGo() {
	config := &LanguageConfig{
		Name:       "go",
		Extensions: []string{".go"},
		HierarchyTypes: []string{
			"function_declaration", "method_declaration", "type_declaration",
		},
		NameBearingFields: []string{"identifier", "field_identifier", "type_identifier"},
		CommentTypes:      []string{"comment"},
		ImportTypes:       []string{"import_declaration"},
	}
	r.registerLanguage(config, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	tsConfig := &LanguageConfig{
		Name:       "typescript",
		Extensions: []string{".ts"},
		HierarchyTypes: []string{
			"function_declaration", "method_definition", "class_declaration",
			"interface_declaration", "type_alias_declaration",
		},
		NameBearingFields: []string{"identifier", "property_identifier", "type_identifier"},
		CommentTypes:      []string{"comment"},
		ImportTypes:       []string{"import_statement"},
	}
	r.registerLanguage(tsConfig, typescript.GetLanguage())

	tsxConfig := &LanguageConfig{
		Name:              "tsx",
		Extensions:        []string{".tsx"},
		HierarchyTypes:    tsConfig.HierarchyTypes,
		NameBearingFields: tsConfig.NameBearingFields,
		CommentTypes:      tsConfig.CommentTypes,
		ImportTypes:       tsConfig.ImportTypes,
	}
	r.registerLanguage(tsxConfig, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	jsConfig := &LanguageConfig{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs"},
		HierarchyTypes: []string{
			"function_declaration", "function", "method_definition", "class_declaration",
		},
		NameBearingFields: []string{"identifier", "property_identifier"},
		CommentTypes:      []string{"comment"},
		ImportTypes:       []string{"import_statement"},
	}
	r.registerLanguage(jsConfig, javascript.GetLanguage())

	jsxConfig := &LanguageConfig{
		Name:              "jsx",
		Extensions:        []string{".jsx"},
		HierarchyTypes:    jsConfig.HierarchyTypes,
		NameBearingFields: jsConfig.NameBearingFields,
		CommentTypes:      jsConfig.CommentTypes,
		ImportTypes:       jsConfig.ImportTypes,
	}
	r.registerLanguage(jsxConfig, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	config := &LanguageConfig{
		Name:              "python",
		Extensions:        []string{".py"},
		HierarchyTypes:    []string{"function_definition", "class_definition"},
		NameBearingFields: []string{"identifier"},
		CommentTypes:      []string{"comment"},
		ImportTypes:       []string{"import_statement", "import_from_statement"},
	}
	r.registerLanguage(config, python.GetLanguage())
}

func (r *LanguageRegistry) registerJava() {
	config := &LanguageConfig{
		Name:       "java",
		Extensions: []string{".java"},
		HierarchyTypes: []string{
			"method_declaration", "class_declaration", "interface_declaration",
			"constructor_declaration", "enum_declaration",
		},
		NameBearingFields: []string{"identifier"},
		CommentTypes:      []string{"line_comment", "block_comment"},
		ImportTypes:       []string{"import_declaration"},
	}
	r.registerLanguage(config, java.GetLanguage())
}

func (r *LanguageRegistry) registerRust() {
	config := &LanguageConfig{
		Name:       "rust",
		Extensions: []string{".rs"},
		HierarchyTypes: []string{
			"function_item", "impl_item", "struct_item", "trait_item", "enum_item", "mod_item",
		},
		NameBearingFields: []string{"identifier", "type_identifier"},
		CommentTypes:      []string{"line_comment", "block_comment"},
		ImportTypes:       []string{"use_declaration"},
	}
	r.registerLanguage(config, rust.GetLanguage())
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the shared global language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
