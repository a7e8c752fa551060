package graph

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/contextweaver/contextweaver/internal/store"
)

// Config configures an Expander for one project.
type Config struct {
	ProjectID string
	RootPath  string
	Metadata  store.MetadataStore
}

// Expander implements GraphExpander: E1 same-file neighbors, E2
// breadcrumb siblings, and E3 two-hop barrel-aware import-graph
// expansion (spec §4.8). One Expander is cached per project (§4.9 /
// design notes) since its only mutable state is a path-set cache that's
// invalidated by reindexing, not by a query.
type Expander struct {
	cfg       Config
	pathCache *lru.Cache[string, map[string]bool]
}

// New creates an Expander with an 8-entry LRU cache of resolved path
// sets keyed by project ID; an Expander reads and writes only its own
// cfg.ProjectID entry.
func New(cfg Config) (*Expander, error) {
	cache, err := lru.New[string, map[string]bool](8)
	if err != nil {
		return nil, err
	}
	return &Expander{cfg: cfg, pathCache: cache}, nil
}

// Invalidate drops the cached path set for the expander's project,
// called after a reindex changes which files exist.
func (e *Expander) Invalidate() {
	e.pathCache.Remove(e.cfg.ProjectID)
}

// Expand runs E1, E2, and E3 against seeds, deduplicating every result
// against the seed set and against each other by chunk ID.
func (e *Expander) Expand(ctx context.Context, seeds []Seed, queryTokens []string) ([]Expanded, error) {
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seen[s.ChunkID] = true
	}

	var out []Expanded
	out = append(out, e.expandNeighbors(ctx, seeds, seen)...)
	out = append(out, e.expandBreadcrumbs(ctx, seeds, seen)...)

	imported, err := e.expandImports(ctx, seeds, seen, queryTokens)
	if err != nil {
		return out, err // partial expansion is fine; resolver failure never aborts (spec §7)
	}
	out = append(out, imported...)

	return out, nil
}

// --- E1: same-file neighbors -------------------------------------------------

func (e *Expander) expandNeighbors(ctx context.Context, seeds []Seed, seen map[string]bool) []Expanded {
	byFile := groupByFile(seeds)

	var out []Expanded
	for filePath, fileSeeds := range byFile {
		chunks, err := e.chunksForFile(ctx, filePath)
		if err != nil || len(chunks) == 0 {
			continue
		}

		maxScore := maxSeedScore(fileSeeds)
		seedIdx := indexByChunkID(chunks, fileSeeds)

		for _, idx := range seedIdx {
			for d := 1; d <= NeighborHops; d++ {
				for _, ni := range []int{idx - d, idx + d} {
					if ni < 0 || ni >= len(chunks) {
						continue
					}
					c := chunks[ni]
					if seen[c.ID] {
						continue
					}
					seen[c.ID] = true
					out = append(out, Expanded{
						ChunkID:    c.ID,
						FilePath:   c.FilePath,
						Breadcrumb: c.Breadcrumb,
						Score:      maxScore * pow(DecayNeighbor, d),
						Reason:     ReasonNeighbor,
					})
				}
			}
		}
	}
	return out
}

// --- E2: breadcrumb siblings -------------------------------------------------

func (e *Expander) expandBreadcrumbs(ctx context.Context, seeds []Seed, seen map[string]bool) []Expanded {
	type group struct {
		filePath string
		maxScore float64
	}
	groups := make(map[string]*group)
	for _, s := range seeds {
		prefix := parentPrefix(s.Breadcrumb)
		if prefix == "" {
			continue
		}
		g, ok := groups[prefix]
		if !ok {
			groups[prefix] = &group{filePath: s.FilePath, maxScore: s.Score}
			continue
		}
		if s.Score > g.maxScore {
			g.maxScore = s.Score
		}
	}

	var out []Expanded
	for prefix, g := range groups {
		chunks, err := e.chunksForFile(ctx, g.filePath)
		if err != nil {
			continue
		}
		taken := 0
		for _, c := range chunks {
			if taken >= BreadcrumbExpandLimit {
				break
			}
			if seen[c.ID] || parentPrefix(c.Breadcrumb) != prefix {
				continue
			}
			seen[c.ID] = true
			taken++
			out = append(out, Expanded{
				ChunkID:    c.ID,
				FilePath:   c.FilePath,
				Breadcrumb: c.Breadcrumb,
				Score:      g.maxScore * DecayBreadcrumb,
				Reason:     ReasonBreadcrumb,
			})
		}
	}
	return out
}

// --- E3: import graph ---------------------------------------------------

type importQueueItem struct {
	file      string
	depth     int
	seedScore float64
}

func (e *Expander) expandImports(ctx context.Context, seeds []Seed, seen map[string]bool, queryTokens []string) ([]Expanded, error) {
	pathSet, err := e.projectPathSet(ctx)
	if err != nil {
		return nil, err
	}

	byFile := groupByFile(seeds)
	visited := make(map[string]bool, len(byFile))
	var queue []importQueueItem
	for filePath, fileSeeds := range byFile {
		visited[filePath] = true
		queue = append(queue, importQueueItem{file: filePath, depth: 0, seedScore: maxSeedScore(fileSeeds)})
	}
	// Deterministic traversal order.
	sort.Slice(queue, func(i, j int) bool { return queue[i].file < queue[j].file })

	var out []Expanded
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		limit := ImportFilesPerSeed
		if item.depth == 1 {
			if !IsBarrel(item.file) {
				continue
			}
			if limit > 2 {
				limit = 2
			}
		}

		resolver := resolverFor(item.file)
		if resolver == nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(e.cfg.RootPath, item.file))
		if err != nil {
			continue // resolver/IO failure: skip this file, expansion continues
		}

		resolved := 0
		for _, importStr := range resolver.ExtractImports(string(content)) {
			if resolved >= limit {
				break
			}
			target, ok := resolver.Resolve(importStr, item.file, pathSet)
			if !ok || visited[target] {
				continue
			}
			visited[target] = true
			resolved++

			score := item.seedScore * DecayImport
			if item.depth > 0 {
				score *= DecayDepth
			}
			out = append(out, e.chunksFromImportTarget(ctx, target, score, queryTokens, seen)...)

			if item.depth+1 <= 1 {
				queue = append(queue, importQueueItem{file: target, depth: item.depth + 1, seedScore: item.seedScore})
			}
		}
	}

	return out, nil
}

func (e *Expander) chunksFromImportTarget(ctx context.Context, target string, score float64, queryTokens []string, seen map[string]bool) []Expanded {
	chunks, err := e.chunksForFile(ctx, target)
	if err != nil || len(chunks) == 0 {
		return nil
	}

	picked := chunks
	if len(queryTokens) > 0 {
		picked = rankByOverlap(chunks, queryTokens)
	}

	var out []Expanded
	taken := 0
	for _, c := range picked {
		if taken >= ChunksPerImportFile {
			break
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		taken++
		out = append(out, Expanded{
			ChunkID:    c.ID,
			FilePath:   c.FilePath,
			Breadcrumb: c.Breadcrumb,
			Score:      score,
			Reason:     ReasonImport,
		})
	}
	return out
}

// --- shared helpers -------------------------------------------------------

func (e *Expander) chunksForFile(ctx context.Context, filePath string) ([]*store.Chunk, error) {
	file, err := e.cfg.Metadata.GetFileByPath(ctx, e.cfg.ProjectID, filePath)
	if err != nil || file == nil {
		return nil, err
	}
	return e.cfg.Metadata.GetChunksByFile(ctx, file.ID)
}

func (e *Expander) projectPathSet(ctx context.Context) (map[string]bool, error) {
	if cached, ok := e.pathCache.Get(e.cfg.ProjectID); ok {
		return cached, nil
	}
	paths, err := e.cfg.Metadata.GetFilePathsByProject(ctx, e.cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	e.pathCache.Add(e.cfg.ProjectID, set)
	return set, nil
}

func groupByFile(seeds []Seed) map[string][]Seed {
	m := make(map[string][]Seed)
	for _, s := range seeds {
		m[s.FilePath] = append(m[s.FilePath], s)
	}
	return m
}

func maxSeedScore(seeds []Seed) float64 {
	max := 0.0
	for _, s := range seeds {
		if s.Score > max {
			max = s.Score
		}
	}
	return max
}

func indexByChunkID(chunks []*store.Chunk, seeds []Seed) []int {
	wanted := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		wanted[s.ChunkID] = true
	}
	var idx []int
	for i, c := range chunks {
		if wanted[c.ID] {
			idx = append(idx, i)
		}
	}
	return idx
}

// parentPrefix drops the last " > "-joined breadcrumb segment; a
// breadcrumb with one or zero segments has no meaningful parent.
func parentPrefix(breadcrumb string) string {
	if breadcrumb == "" {
		return ""
	}
	segments := strings.Split(breadcrumb, " > ")
	if len(segments) <= 1 {
		return ""
	}
	return strings.Join(segments[:len(segments)-1], " > ")
}

func rankByOverlap(chunks []*store.Chunk, tokens []string) []*store.Chunk {
	ranked := make([]*store.Chunk, len(chunks))
	copy(ranked, chunks)
	scores := make(map[string]float64, len(chunks))
	for _, c := range ranked {
		scores[c.ID] = overlapScore(tokens, c.Breadcrumb+" "+c.Content)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].ID] > scores[ranked[j].ID]
	})
	// Drop zero-overlap chunks only if at least one chunk has overlap,
	// matching spec §4.7's "if a file's max overlap is 0 skip it" rule
	// applied at the chunk level for import-graph selection.
	if len(ranked) > 0 && scores[ranked[0].ID] > 0 {
		var filtered []*store.Chunk
		for _, c := range ranked {
			if scores[c.ID] > 0 {
				filtered = append(filtered, c)
			}
		}
		return filtered
	}
	return ranked
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
