// Package pack assembles a ContextPack: the merged, budgeted, per-file
// text segments that SearchService.BuildContextPack hands to a downstream
// LLM (spec §4.9).
package pack

import "github.com/contextweaver/contextweaver/internal/graph"

// Budget constants from spec §4.9.
const (
	MaxSegmentsPerFile = 3
	MaxTotalChars      = 48000
)

// Segment is one merged, line-numbered span of a file's text.
type Segment struct {
	StartLine  int
	EndLine    int
	Text       string
	Score      float64
	Breadcrumb string
}

// PackedFile is one file's kept segments, in ascending raw-offset order.
type PackedFile struct {
	FilePath string
	Segments []Segment
}

// ContextPack is SearchService.BuildContextPack's output: the query that
// produced it, the seeds and graph-expanded chunks that fed packing, and
// the packed, budgeted file segments themselves.
type ContextPack struct {
	Query    string
	Seeds    []graph.Seed
	Expanded []graph.Expanded
	Files    []PackedFile
	Debug    any
}
