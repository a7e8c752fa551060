package chunk

import (
	"context"
)

// Size defaults for the semantic splitter's split-then-merge pass. Budgets
// are expressed in non-whitespace (NWS) characters rather than tokens or
// raw bytes, since NWS count is stable across re-indentation and tracks
// embedding-model input size more closely than raw length.
const (
	DefaultMaxChunkNWSChars = 1800
	DefaultOverlapChars     = 200
	MinChunkNWSChars        = 40
	// DefaultMaxRawChars caps the raw (non-NWS) character span a sibling
	// merge may produce, independent of the NWS budget; a node dense in
	// whitespace (deeply indented, blank-line separated) can pass the NWS
	// check while still spanning an unreasonable number of raw characters.
	DefaultMaxRawChars = DefaultMaxChunkNWSChars * 4
)

// ContentType classifies the kind of content a chunk carries.
type ContentType string

const (
	ContentTypeCode ContentType = "code"
	ContentTypeText ContentType = "text"
)

// Chunk is a retrievable unit of content produced by a Chunker.
type Chunk struct {
	ID          string // content-addressable: sha256(path + rawContent)[:16]
	FilePath    string // relative to project root
	Content     string // vectorSpan: the window's own span widened by overlap context, clamped at neighboring windows
	RawContent  string // rawSpan: from the previous window's end (0 for the first) to this window's end (file end for the last)
	Breadcrumb  string // context-path string, e.g. "UserService > validate"
	ContentType ContentType
	Language    string
	StartLine   int // 1-indexed, inclusive
	EndLine     int // 1-indexed, inclusive
	StartByte   uint32
	EndByte     uint32
	Symbols     []*Symbol
	Metadata    map[string]string
}

// FileInput is input to a Chunker.
type FileInput struct {
	Path     string
	Content  []byte
	Language string
}

// Chunker splits a file into semantic chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}

// SymbolType is the kind of code symbol a node represents.
type SymbolType string

const (
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeInterface SymbolType = "interface"
	SymbolTypeType      SymbolType = "type"
	SymbolTypeMethod    SymbolType = "method"
)

// Symbol is a named code entity extracted while walking the AST.
type Symbol struct {
	Name      string
	Type      SymbolType
	StartLine int
	EndLine   int
}

// Tree is a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node is a node in the AST, with byte offsets into the original source.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point is a row/column position in the source.
type Point struct {
	Row    uint32
	Column uint32
}

// LanguageConfig holds the per-language node-type tables the splitter uses
// to find chunk boundaries, name identifiers for breadcrumbs, and comments
// eligible for forward absorption.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// HierarchyTypes are node types that form a chunk boundary: function,
	// method, class, interface, and type declarations. The splitter
	// recurses into these looking for nested hierarchy nodes (methods
	// inside a class) before deciding a node is a leaf chunk.
	HierarchyTypes []string

	// NameBearingFields identify the child node type that carries the
	// symbol's name, used to build the breadcrumb context path.
	NameBearingFields []string

	// CommentTypes are node types eligible for forward absorption into
	// the following chunk (doc comments immediately preceding a symbol).
	CommentTypes []string

	// ImportTypes are node types the graph expander's import resolver
	// looks for at the top of a file.
	ImportTypes []string
}

// GetContent returns the source slice for a node.
func (n *Node) GetContent(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType returns the first direct child with the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child
		}
	}
	return nil
}

// Walk traverses the tree depth-first, calling fn for each node. fn
// returns false to stop descending into that node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
