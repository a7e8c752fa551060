// Package search implements hybrid (dense + lexical) recall, RRF fusion,
// reranking, and the smart top-K cutoff that turns a free-text query into
// a set of graph-expansion seeds (spec §4.6/§4.7).
package search

// Recall and fusion constants from spec §4.7.
const (
	vectorTopK  = 80
	vectorTopM  = 60
	lexTotalChunks   = 40
	ftsTopKFiles     = 20
	lexChunksPerFile = 2
	fusedTopM        = 60

	rrfK0   = 20
	rrfWVec = 0.6
	rrfWLex = 0.4

	rerankTopN = 10

	smartMinScore         = 0.25
	smartTopScoreRatio    = 0.5
	smartTopScoreDeltaAbs = 0.25
	smartMinK             = 2
	smartMaxK             = 8
)

// Candidate is a chunk surfaced by recall, carrying enough of its row to
// fuse, rerank, and eventually seed expansion without another store round
// trip.
type Candidate struct {
	ChunkID    string
	FilePath   string
	Breadcrumb string
	DisplayCode string // RawContent, shown to the reranker and scored for overlap
	VecScore   float64
	VecRank    int // 1-indexed, 0 if absent from vector recall
	LexScore   float64
	LexRank    int // 1-indexed, 0 if absent from lexical recall
	FusedScore float64
	RerankScore float64
}

// Debug carries the per-stage counts SearchService.BuildContextPack
// reports alongside a ContextPack, useful for a `--debug` CLI flag without
// re-running the pipeline.
type Debug struct {
	QueryID           string // correlates this query's debug fields across log lines
	QueryTokens       []string
	VectorCandidates  int
	LexicalCandidates int
	FusedCandidates   int
	RerankedCandidates int
	SeedCount         int
	ExpandedCount     int
	RerankUsed        bool
}
