package chunk

import (
	"sort"
	"unicode/utf8"
)

// Domain classifies how an AST's node offsets relate to the source
// buffer: tree-sitter-style parsers report byte offsets, while
// LSP/JavaScript-style ASTs report offsets in the 16-bit (UTF-16) code
// unit domain used by `string.length` in those ecosystems. A
// SourceAdapter detects which domain an AST speaks from the root node's
// reported end offset and normalizes all further lookups through it, so
// the splitter can budget chunks in characters without caring which
// domain produced the tree.
type Domain string

const (
	// DomainUTF16 means AST node offsets are already UTF-16 code unit
	// offsets; CharOffset is the identity function (clamped to the total
	// unit count), and slicing still goes through the byte<->unit index
	// built over the underlying UTF-8 buffer.
	DomainUTF16 Domain = "utf16"
	// DomainUTF8 means AST node offsets are raw UTF-8 byte offsets (this
	// is what github.com/smacker/go-tree-sitter reports); CharOffset
	// converts through the byte->unit index.
	DomainUTF8 Domain = "utf8"
	// DomainUnknown means the reported AST root end offset matched
	// neither hypothesis (or there's no AST at all); the splitter falls
	// back to plain-text line chunking in this case.
	DomainUnknown Domain = "unknown"
)

// DetectDomain implements the domain-detection contract: compare the
// AST root node's reported end offset against the source's UTF-16 unit
// length and its UTF-8 byte length to decide which domain produced it.
// A pure-ASCII source satisfies both comparisons identically, in which
// case utf16 wins by precedence; the two interpretations agree
// numerically for ASCII, so this never produces a wrong answer, only an
// ambiguous label.
func DetectDomain(source []byte, astRootEndIndex int) Domain {
	if astRootEndIndex == utf16UnitLength(source) {
		return DomainUTF16
	}
	if astRootEndIndex == len(source) {
		return DomainUTF8
	}
	return DomainUnknown
}

// utf16UnitLength returns the number of UTF-16 code units source would
// occupy if re-encoded as UTF-16: one unit per codepoint, except
// codepoints above the Basic Multilingual Plane (astral-plane runes —
// most emoji, some CJK extension glyphs) which require a surrogate pair
// and so take two units.
func utf16UnitLength(source []byte) int {
	n := 0
	b := 0
	for b < len(source) {
		r, size := utf8.DecodeRune(source[b:])
		if size == 0 {
			size = 1
		}
		n++
		if r > 0xFFFF {
			n++
		}
		b += size
	}
	return n
}

// isNWSExempt reports whether c is one of the four whitespace bytes the
// NWS count excludes: space, tab, LF, CR. Deliberately narrower than
// unicode.IsSpace, which also treats \v, \f, NBSP, and other Unicode
// space separators as whitespace.
func isNWSExempt(r rune) bool {
	switch r {
	case 0x20, 0x09, 0x0A, 0x0D:
		return true
	default:
		return false
	}
}

// SourceAdapter indexes a source buffer for O(1) offset -> UTF-16-unit
// lookups and O(1) non-whitespace (NWS) unit counting over any span, via
// prefix sums built once per file.
type SourceAdapter struct {
	Source []byte
	Domain Domain

	// unitAtByte[b] is the UTF-16 unit index of the rune starting at byte
	// b, for every byte offset; len == len(Source)+1, with the final
	// entry holding the total unit count. Interior bytes of a multi-byte
	// sequence map to the rune's starting unit index, so any byte offset
	// rounds down to a valid unit boundary.
	unitAtByte []int32

	// nwsPrefix[u] is the number of non-whitespace UTF-16 units among the
	// first u units of the source.
	nwsPrefix []int32

	// lineStartBytes[i] is the byte offset where line i+2 begins (line 1
	// always starts at byte 0), used for byte-offset -> line-number lookup.
	lineStartBytes []uint32
}

// NewSourceAdapter builds a SourceAdapter over source, given the AST
// root node's reported end offset (bytes for tree-sitter, UTF-16 units
// for an LSP-style AST). If source is not valid UTF-8, or astRootEndIndex
// matches neither domain hypothesis, the adapter is returned in
// DomainUnknown with no index; callers must fall back to plain-text
// chunking in that case.
func NewSourceAdapter(source []byte, astRootEndIndex int) *SourceAdapter {
	if !utf8.Valid(source) {
		return &SourceAdapter{Source: source, Domain: DomainUnknown}
	}

	domain := DetectDomain(source, astRootEndIndex)
	a := &SourceAdapter{Source: source, Domain: domain}
	if domain != DomainUnknown {
		a.buildIndex()
	}
	return a
}

func (a *SourceAdapter) buildIndex() {
	n := len(a.Source)
	a.unitAtByte = make([]int32, n+1)
	nws := make([]int32, 1, n+1)

	unit := int32(0)
	b := 0
	for b < n {
		r, size := utf8.DecodeRune(a.Source[b:])
		if size == 0 {
			size = 1
		}
		units := 1
		if r > 0xFFFF {
			units = 2 // astral codepoint: one rune, two UTF-16 units (surrogate pair)
		}

		for k := 0; k < size; k++ {
			a.unitAtByte[b+k] = unit
		}
		if r == '\n' {
			a.lineStartBytes = append(a.lineStartBytes, uint32(b+size))
		}

		exempt := isNWSExempt(r)
		for k := 0; k < units; k++ {
			last := nws[len(nws)-1]
			if exempt {
				nws = append(nws, last)
			} else {
				nws = append(nws, last+1)
			}
			unit++
		}
		b += size
	}
	a.unitAtByte[n] = unit
	a.nwsPrefix = nws
}

// ByteAtChar returns the smallest byte offset whose UTF-16 unit index is
// >= charOffset, via binary search over the monotonic byte->unit index.
// This is how vector-span overlap expansion converts a "go back N
// characters" budget into a byte offset without re-scanning the source.
func (a *SourceAdapter) ByteAtChar(charOffset int) uint32 {
	if a.Domain == DomainUnknown {
		return uint32(charOffset)
	}
	n := len(a.unitAtByte)
	idx := sort.Search(n, func(i int) bool {
		return int(a.unitAtByte[i]) >= charOffset
	})
	if idx >= n {
		idx = n - 1
	}
	return uint32(idx)
}

// LineAtByte returns the 1-indexed line number containing byteOffset.
func (a *SourceAdapter) LineAtByte(byteOffset uint32) int {
	idx := sort.Search(len(a.lineStartBytes), func(i int) bool {
		return a.lineStartBytes[i] > byteOffset
	})
	return idx + 1
}

// CharOffset converts an AST node offset into a UTF-16 unit offset. In
// the utf8 domain, offset is a byte offset and gets converted through
// the byte->unit index; in the utf16 domain, offset is already a unit
// offset and is returned as-is (clamped to the total unit count).
// Callers must only pass offsets that fall on a rune boundary
// (tree-sitter guarantees this for any node's StartByte/EndByte over
// valid UTF-8 source).
func (a *SourceAdapter) CharOffset(offset uint32) int {
	switch a.Domain {
	case DomainUTF16:
		total := len(a.nwsPrefix) - 1
		if int(offset) > total {
			return total
		}
		return int(offset)
	case DomainUTF8:
		if int(offset) >= len(a.unitAtByte) {
			return int(a.unitAtByte[len(a.unitAtByte)-1])
		}
		return int(a.unitAtByte[offset])
	default:
		return int(offset)
	}
}

// NWSCount returns the number of non-whitespace UTF-16 units in
// [startByte, endByte).
func (a *SourceAdapter) NWSCount(startByte, endByte uint32) int {
	if a.Domain == DomainUnknown {
		return int(endByte - startByte)
	}
	start := a.CharOffset(startByte)
	end := a.CharOffset(endByte)
	if start < 0 || end > len(a.nwsPrefix)-1 || start > end {
		return 0
	}
	return int(a.nwsPrefix[end] - a.nwsPrefix[start])
}

// CharLen returns the number of UTF-16 units in [startByte, endByte).
func (a *SourceAdapter) CharLen(startByte, endByte uint32) int {
	return a.CharOffset(endByte) - a.CharOffset(startByte)
}

// LineRange returns the 1-indexed, inclusive [startLine, endLine] a byte
// span covers, given the node's tree-sitter start/end points.
func LineRange(start, end Point) (int, int) {
	return int(start.Row) + 1, int(end.Row) + 1
}
