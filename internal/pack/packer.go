package pack

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/contextweaver/contextweaver/internal/graph"
	"github.com/contextweaver/contextweaver/internal/store"
)

// Config configures a Packer for one project.
type Config struct {
	Metadata           store.MetadataStore
	RootPath           string
	MaxSegmentsPerFile int
	MaxTotalChars      int
}

// Packer implements ContextPacker (spec §4.9): it takes the seeds and
// graph-expanded chunks a query surfaced, groups them by file, merges
// overlapping spans, and truncates the result to a character budget.
type Packer struct {
	cfg Config
}

// New creates a Packer, applying spec defaults for any zero-valued budget
// field.
func New(cfg Config) *Packer {
	if cfg.MaxSegmentsPerFile <= 0 {
		cfg.MaxSegmentsPerFile = MaxSegmentsPerFile
	}
	if cfg.MaxTotalChars <= 0 {
		cfg.MaxTotalChars = MaxTotalChars
	}
	return &Packer{cfg: cfg}
}

type candidate struct {
	chunkID    string
	score      float64
	breadcrumb string
}

// Pack merges seeds and graph-expanded chunks into a budgeted ContextPack.
func (p *Packer) Pack(ctx context.Context, query string, seeds []graph.Seed, expanded []graph.Expanded) (*ContextPack, error) {
	byID := make(map[string]candidate, len(seeds)+len(expanded))
	for _, s := range seeds {
		byID[s.ChunkID] = candidate{chunkID: s.ChunkID, score: s.Score, breadcrumb: s.Breadcrumb}
	}
	for _, e := range expanded {
		if _, ok := byID[e.ChunkID]; ok {
			continue
		}
		byID[e.ChunkID] = candidate{chunkID: e.ChunkID, score: e.Score, breadcrumb: e.Breadcrumb}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	chunks, err := p.cfg.Metadata.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	type fileGroup struct {
		filePath string
		maxScore float64
		spans    []span
	}
	groups := make(map[string]*fileGroup)
	for _, c := range chunks {
		cand := byID[c.ID]
		g, ok := groups[c.FilePath]
		if !ok {
			g = &fileGroup{filePath: c.FilePath}
			groups[c.FilePath] = g
		}
		if cand.score > g.maxScore {
			g.maxScore = cand.score
		}
		g.spans = append(g.spans, span{start: c.StartByte, end: c.EndByte, score: cand.score, breadcrumb: cand.breadcrumb})
	}

	var files []*fileGroup
	for _, g := range groups {
		files = append(files, g)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].maxScore > files[j].maxScore })

	pack := &ContextPack{Query: query, Seeds: seeds, Expanded: expanded}

	total := 0
	for _, g := range files {
		content, err := os.ReadFile(filepath.Join(p.cfg.RootPath, g.filePath))
		if err != nil {
			continue // file gone since indexing; skip rather than abort packing
		}

		segments := mergeSpans(content, g.spans)
		segments = topNByScore(segments, p.cfg.MaxSegmentsPerFile)
		sort.Slice(segments, func(i, j int) bool { return segments[i].StartLine < segments[j].StartLine })

		var kept []Segment
		for _, seg := range segments {
			kept = append(kept, seg)
			total += len(seg.Text)
			if total > p.cfg.MaxTotalChars {
				break
			}
		}
		if len(kept) > 0 {
			pack.Files = append(pack.Files, PackedFile{FilePath: g.filePath, Segments: kept})
		}
		if total > p.cfg.MaxTotalChars {
			break
		}
	}

	return pack, nil
}

type span struct {
	start, end uint32
	score      float64
	breadcrumb string
}

// mergeSpans sorts a file's candidate byte spans ascending and linearly
// merges overlapping ones, taking the max score and the first-seen
// breadcrumb, then converts each merged span's byte offsets to 1-based
// line numbers by counting newlines (spec §4.9 steps 2-3).
func mergeSpans(content []byte, spans []span) []Segment {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	type merged struct {
		start, end uint32
		score      float64
		breadcrumb string
	}
	var out []merged
	cur := merged{start: spans[0].start, end: spans[0].end, score: spans[0].score, breadcrumb: spans[0].breadcrumb}
	for _, s := range spans[1:] {
		if s.start <= cur.end {
			if s.end > cur.end {
				cur.end = s.end
			}
			if s.score > cur.score {
				cur.score = s.score
			}
			continue
		}
		out = append(out, cur)
		cur = merged{start: s.start, end: s.end, score: s.score, breadcrumb: s.breadcrumb}
	}
	out = append(out, cur)

	segments := make([]Segment, 0, len(out))
	for _, m := range out {
		if int(m.end) > len(content) {
			m.end = uint32(len(content))
		}
		if m.start > m.end {
			continue
		}
		startLine := 1 + strings.Count(string(content[:m.start]), "\n")
		endLine := 1 + strings.Count(string(content[:m.end]), "\n")
		segments = append(segments, Segment{
			StartLine:  startLine,
			EndLine:    endLine,
			Text:       string(content[m.start:m.end]),
			Score:      m.score,
			Breadcrumb: m.breadcrumb,
		})
	}
	return segments
}

// topNByScore keeps the n highest-scoring segments, descending.
func topNByScore(segments []Segment, n int) []Segment {
	sort.Slice(segments, func(i, j int) bool { return segments[i].Score > segments[j].Score })
	if len(segments) > n {
		segments = segments[:n]
	}
	return segments
}
