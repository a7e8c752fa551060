package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SplitterConfig tunes the split-then-merge pass.
type SplitterConfig struct {
	MaxChunkNWSChars int
	OverlapChars     int
	MinChunkNWSChars int
	// MaxRawChars caps combinedRaw (in UTF-16 units) during sibling
	// merge, independent of the NWS budget. Zero means "use
	// DefaultMaxRawChars".
	MaxRawChars int
}

// DefaultSplitterConfig returns the spec's default chunk sizing.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		MaxChunkNWSChars: DefaultMaxChunkNWSChars,
		OverlapChars:     DefaultOverlapChars,
		MinChunkNWSChars: MinChunkNWSChars,
		MaxRawChars:      DefaultMaxRawChars,
	}
}

// SemanticSplitter chunks source files along AST symbol boundaries: it
// walks the tree looking for hierarchy nodes (functions, methods, classes,
// types), merges adjacent small siblings up to a character budget, absorbs
// leading doc comments into the following chunk, and falls back to plain
// line-window chunking for unsupported languages, parse failures, or
// non-UTF8 content.
type SemanticSplitter struct {
	parser   *Parser
	registry *LanguageRegistry
	cfg      SplitterConfig
}

// NewSemanticSplitter builds a splitter against the default language
// registry.
func NewSemanticSplitter(cfg SplitterConfig) *SemanticSplitter {
	return &SemanticSplitter{
		parser:   NewParser(),
		registry: DefaultRegistry(),
		cfg:      cfg,
	}
}

// SupportedExtensions returns every extension the underlying registry
// knows how to parse.
func (s *SemanticSplitter) SupportedExtensions() []string {
	return s.registry.SupportedExtensions()
}

// Chunk implements Chunker.
func (s *SemanticSplitter) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	langCfg, ok := s.registry.GetByName(file.Language)
	if !ok {
		return plainTextChunk(file, s.cfg)
	}

	tree, err := s.parser.Parse(ctx, file.Content, file.Language)
	if err != nil || tree == nil || tree.Root == nil {
		return plainTextChunk(file, s.cfg)
	}

	adapter := NewSourceAdapter(file.Content, int(tree.Root.EndByte))
	if adapter.Domain == DomainUnknown {
		return plainTextChunk(file, s.cfg)
	}

	candidates := collectCandidates(tree.Root, langCfg, file.Content, adapter, s.cfg, nil)
	if len(candidates) == 0 {
		return plainTextChunk(file, s.cfg)
	}

	absorbComments(candidates, langCfg, file.Content)
	merged := mergeSiblings(candidates, adapter, s.cfg)

	return buildChunks(merged, file, adapter, s.cfg.OverlapChars), nil
}

// candidate is a window found while walking the tree: a node whose NWS
// size fits the budget, or an oversized node with no children.
type candidate struct {
	contextPath []string
	startByte   uint32
	endByte     uint32
}

func isHierarchy(nodeType string, cfg *LanguageConfig) bool {
	for _, t := range cfg.HierarchyTypes {
		if t == nodeType {
			return true
		}
	}
	return false
}

func nameOf(node *Node, cfg *LanguageConfig, source []byte) string {
	var find func(*Node, int) string
	find = func(n *Node, depth int) string {
		if depth > 2 {
			return ""
		}
		for _, field := range cfg.NameBearingFields {
			if child := n.FindChildByType(field); child != nil {
				return child.GetContent(source)
			}
		}
		for _, child := range n.Children {
			if name := find(child, depth+1); name != "" {
				return name
			}
		}
		return ""
	}
	return find(node, 0)
}

// collectCandidates performs the split step: a budget-driven recursive
// visit of every AST node starting at the root. A node whose NWS size
// fits the budget becomes a one-node window; a node that's too big
// recurses into its children so nothing is skipped (top-level
// package/import/var declarations, standalone statements, and anything
// else with no nested hierarchy node still gets its own window); a node
// that's too big but has no children (an atomic oversized leaf, e.g. a
// huge string literal) is emitted as a single over-budget window anyway,
// since there's nothing left to split. Context path tracking only
// updates at hierarchy-typed nodes (class/function/etc., per cfg);
// everything else inherits its parent's path unchanged.
func collectCandidates(node *Node, cfg *LanguageConfig, source []byte, adapter *SourceAdapter, scfg SplitterConfig, path []string) []*candidate {
	nodePath := path
	if isHierarchy(node.Type, cfg) {
		name := nameOf(node, cfg, source)
		nodePath = append(append([]string{}, path...), name)
	}

	if adapter.NWSCount(node.StartByte, node.EndByte) <= scfg.MaxChunkNWSChars || len(node.Children) == 0 {
		return []*candidate{{
			contextPath: nodePath,
			startByte:   node.StartByte,
			endByte:     node.EndByte,
		}}
	}

	var result []*candidate
	for _, child := range node.Children {
		result = append(result, collectCandidates(child, cfg, source, adapter, scfg, nodePath)...)
	}
	return result
}

// absorbComments extends each candidate's start backward over immediately
// preceding comment lines (a doc comment block with no blank-line break),
// so the chunk carries its own documentation.
func absorbComments(candidates []*candidate, cfg *LanguageConfig, source []byte) {
	if len(cfg.CommentTypes) == 0 {
		return
	}

	for _, c := range candidates {
		start := c.startByte
		for {
			absorbed := absorbOneComment(start, cfg, source)
			if absorbed == start {
				break
			}
			start = absorbed
		}
		c.startByte = start
	}
}

// absorbOneComment looks immediately before byteOffset for whitespace then
// a comment-shaped line; if found with at most one blank line of
// separation, returns the comment's start byte, else byteOffset unchanged.
// This is a lightweight heuristic (it doesn't reparse the gap as a
// tree-sitter comment node) because by the time we're merging candidates
// we only have byte spans, not a node to query.
func absorbOneComment(byteOffset uint32, cfg *LanguageConfig, source []byte) uint32 {
	if byteOffset == 0 {
		return byteOffset
	}

	i := int(byteOffset)
	newlines := 0
	lineEnd := i
	for i > 0 && (source[i-1] == ' ' || source[i-1] == '\t' || source[i-1] == '\n' || source[i-1] == '\r') {
		if source[i-1] == '\n' {
			newlines++
			if newlines == 1 {
				lineEnd = i - 1
			}
		}
		i--
	}
	if newlines == 0 || newlines > 2 {
		return byteOffset
	}

	lineStart := i
	line := string(source[lineStart:lineEnd])
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return byteOffset
	}

	for _, marker := range []string{"//", "/*", "*", "#", "///"} {
		if strings.HasPrefix(trimmed, marker) {
			return uint32(lineStart)
		}
	}
	return byteOffset
}

// commonPrefixLen returns how many leading path elements a and b share.
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

// sameContext reports whether one of a, b is a prefix of the other (or
// they're equal) — the merge test's definition of "same family", which
// also covers a node about to merge with a sibling nested one level
// deeper into it.
func sameContext(a, b []string) bool {
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	return commonPrefixLen(a, b) >= min
}

// mergeSiblings performs the merge step: a left-to-right scan of
// candidate windows that folds a run of adjacent siblings into one chunk
// as long as both the NWS budget and the raw-character budget fit,
// discounted by a boundary penalty when the pair crosses a context
// family. A small `building` window gets a softer NWS ceiling (1.5x) so
// it isn't left stranded just under minChunkSize.
func mergeSiblings(candidates []*candidate, adapter *SourceAdapter, cfg SplitterConfig) []*candidate {
	if len(candidates) == 0 {
		return nil
	}

	maxRaw := cfg.MaxRawChars
	if maxRaw <= 0 {
		maxRaw = cfg.MaxChunkNWSChars * 4
	}

	var merged []*candidate
	building := &candidate{
		contextPath: candidates[0].contextPath,
		startByte:   candidates[0].startByte,
		endByte:     candidates[0].endByte,
	}
	buildingSize := adapter.NWSCount(building.startByte, building.endByte)

	for _, next := range candidates[1:] {
		nextSize := adapter.NWSCount(next.startByte, next.endByte)
		gapNWS := adapter.NWSCount(building.endByte, next.startByte)
		combinedNWS := buildingSize + gapNWS + nextSize
		combinedRaw := adapter.CharLen(building.startByte, next.endByte)

		penalty := 0.7
		if sameContext(building.contextPath, next.contextPath) {
			penalty = 1.0
		}

		fitsNWS := float64(combinedNWS) <= float64(cfg.MaxChunkNWSChars)*penalty ||
			(buildingSize < cfg.MinChunkNWSChars && float64(combinedNWS) < 1.5*float64(cfg.MaxChunkNWSChars)*penalty)
		fitsRaw := float64(combinedRaw) <= float64(maxRaw)*penalty

		if fitsNWS && fitsRaw {
			building.endByte = next.endByte
			if len(next.contextPath) > len(building.contextPath) {
				building.contextPath = next.contextPath
			}
			buildingSize = combinedNWS
			continue
		}

		merged = append(merged, building)
		building = &candidate{
			contextPath: next.contextPath,
			startByte:   next.startByte,
			endByte:     next.endByte,
		}
		buildingSize = nextSize
	}
	merged = append(merged, building)

	return merged
}

// buildChunks converts merged windows into Chunks. Each chunk's raw span
// owns the gap back to the previous window's own semantic end (the
// first chunk starts at 0; the last chunk's raw span extends to the
// file's end), so concatenating every chunk's raw span reproduces the
// file exactly with no gaps and no overlap. The vectorSpan is computed
// from the window's own semantic boundary and absorbs up to
// cfg.OverlapChars characters of surrounding context on each side,
// clamped so it never crosses into a neighboring window's own boundary.
func buildChunks(merged []*candidate, file *FileInput, adapter *SourceAdapter, overlap int) []*Chunk {
	chunks := make([]*Chunk, 0, len(merged))
	fileEnd := uint32(len(file.Content))

	for i, m := range merged {
		var rawStart uint32
		if i > 0 {
			rawStart = merged[i-1].endByte
		}
		rawEnd := m.endByte
		if i == len(merged)-1 {
			rawEnd = fileEnd
		}

		var floor uint32
		if i > 0 {
			floor = merged[i-1].endByte
		}
		ceil := fileEnd
		if i+1 < len(merged) {
			ceil = merged[i+1].startByte
		}

		vecStart := expandStart(adapter, m.startByte, floor, overlap)
		vecEnd := expandEnd(adapter, m.endByte, ceil, overlap)

		raw := string(file.Content[rawStart:rawEnd])
		vector := string(file.Content[vecStart:vecEnd])
		startLine := adapter.LineAtByte(rawStart)
		endLine := adapter.LineAtByte(rawEnd)
		if endLine < startLine {
			endLine = startLine
		}

		breadcrumb := strings.Join(m.contextPath, " > ")

		chunks = append(chunks, &Chunk{
			ID:          chunkID(file.Path, raw),
			FilePath:    file.Path,
			Content:     vector,
			RawContent:  raw,
			Breadcrumb:  breadcrumb,
			ContentType: ContentTypeCode,
			Language:    file.Language,
			StartLine:   startLine,
			EndLine:     endLine,
			StartByte:   rawStart,
			EndByte:     rawEnd,
		})
	}

	return chunks
}

func expandStart(adapter *SourceAdapter, start, floor uint32, overlap int) uint32 {
	if adapter.Domain == DomainUnknown {
		if start < floor {
			return floor
		}
		return start
	}
	wantChar := adapter.CharOffset(start) - overlap
	floorChar := adapter.CharOffset(floor)
	if wantChar < floorChar {
		wantChar = floorChar
	}
	b := adapter.ByteAtChar(wantChar)
	if b < floor {
		b = floor
	}
	return b
}

func expandEnd(adapter *SourceAdapter, end, ceil uint32, overlap int) uint32 {
	if adapter.Domain == DomainUnknown {
		if end > ceil {
			return ceil
		}
		return end
	}
	wantChar := adapter.CharOffset(end) + overlap
	ceilChar := adapter.CharOffset(ceil)
	if wantChar > ceilChar {
		wantChar = ceilChar
	}
	b := adapter.ByteAtChar(wantChar)
	if b > ceil {
		b = ceil
	}
	return b
}

func chunkID(path, content string) string {
	sum := sha256.Sum256([]byte(path + content))
	return hex.EncodeToString(sum[:])[:16]
}
