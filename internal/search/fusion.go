package search

import "sort"

// fuse combines vector and lexical candidates with Reciprocal Rank Fusion
// (spec §4.7 step 2): for each result at 0-based rank r, score = weight /
// (k0 + r). Candidates are keyed by ChunkID — in this schema a chunk ID
// already uniquely identifies a (file_path, chunk_index) pair (see
// DESIGN.md), so fusing on it is equivalent to the spec's composite key.
//
// Grounded on the teacher's internal/search/fusion.go RRFFusion.Fuse, with
// the RRF constant and per-source weights taken from spec §4.7
// ((k0, wVec, wLex) = (20, 0.6, 0.4)) rather than the teacher's k=60 /
// equal-weight defaults.
func fuse(vec []Candidate, lex []Candidate) []Candidate {
	byID := make(map[string]*Candidate, len(vec)+len(lex))

	get := func(id string) *Candidate {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &Candidate{ChunkID: id}
		byID[id] = c
		return c
	}

	for rank, v := range vec {
		c := get(v.ChunkID)
		c.FilePath = v.FilePath
		c.Breadcrumb = v.Breadcrumb
		c.DisplayCode = v.DisplayCode
		c.VecScore = v.VecScore
		c.VecRank = rank + 1
		c.FusedScore += rrfWVec / float64(rrfK0+rank)
	}
	for rank, l := range lex {
		c := get(l.ChunkID)
		if c.FilePath == "" {
			c.FilePath = l.FilePath
			c.Breadcrumb = l.Breadcrumb
			c.DisplayCode = l.DisplayCode
		}
		c.LexScore = l.LexScore
		c.LexRank = rank + 1
		c.FusedScore += rrfWLex / float64(rrfK0+rank)
	}

	out := make([]Candidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	if len(out) > fusedTopM {
		out = out[:fusedTopM]
	}
	return out
}
