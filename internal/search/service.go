package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	weaverrors "github.com/contextweaver/contextweaver/internal/errors"
	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/graph"
	"github.com/contextweaver/contextweaver/internal/pack"
	"github.com/contextweaver/contextweaver/internal/store"
)

// Config wires a Service to one project's stores and the query-time
// dependencies (embedder, reranker, graph expander, packer).
type Config struct {
	Metadata store.MetadataStore
	Vectors  store.VectorStore
	Embedder embed.Embedder
	Reranker Reranker
	Expander *graph.Expander
	Packer   *pack.Packer
}

// Service implements SearchService.BuildContextPack (spec §4.7): hybrid
// recall, RRF fusion, rerank, smart top-K cutoff, graph expansion, and
// packing, end to end for one free-text query.
type Service struct {
	cfg Config
}

// New creates a Service. A nil cfg.Reranker defaults to NoOpReranker —
// reranking is opt-in per spec's RerankConfig.Enabled.
func New(cfg Config) *Service {
	if cfg.Reranker == nil {
		cfg.Reranker = NoOpReranker{}
	}
	return &Service{cfg: cfg}
}

// BuildContextPack runs the full pipeline for one query and returns the
// resulting ContextPack.
func (s *Service) BuildContextPack(ctx context.Context, query string) (*pack.ContextPack, error) {
	if strings.TrimSpace(query) == "" {
		return nil, weaverrors.New(weaverrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	queryID := uuid.NewString()
	tokens := Segment(query)
	debug := Debug{QueryID: queryID, QueryTokens: tokens}
	log := slog.With(slog.String("query_id", queryID))

	vec, lex := recall(ctx, s.cfg.Embedder, s.cfg.Metadata, s.cfg.Vectors, query, tokens)
	debug.VectorCandidates = len(vec)
	debug.LexicalCandidates = len(lex)
	log.Debug("recall complete", slog.Int("vector_candidates", len(vec)), slog.Int("lexical_candidates", len(lex)))

	fused := fuse(vec, lex)
	debug.FusedCandidates = len(fused)

	reranked, err := s.rerank(ctx, query, tokens, fused)
	if err != nil {
		return nil, err
	}
	debug.RerankedCandidates = len(reranked)
	debug.RerankUsed = s.cfg.Reranker != nil

	seedCandidates := smartCutoff(reranked)
	seeds := make([]graph.Seed, len(seedCandidates))
	for i, c := range seedCandidates {
		seeds[i] = graph.Seed{ChunkID: c.ChunkID, FilePath: c.FilePath, Breadcrumb: c.Breadcrumb, Score: c.RerankScore}
	}
	debug.SeedCount = len(seeds)

	var expanded []graph.Expanded
	if s.cfg.Expander != nil {
		expanded, err = s.cfg.Expander.Expand(ctx, seeds, tokens)
		if err != nil {
			// Partial expansion is fine (spec §7); a graph failure never
			// aborts the query, it just means fewer expanded chunks.
			log.Warn("graph expansion incomplete", slog.String("error", err.Error()))
		}
	}
	debug.ExpandedCount = len(expanded)

	result, err := s.cfg.Packer.Pack(ctx, query, seeds, expanded)
	if err != nil {
		return nil, weaverrors.New(weaverrors.ErrCodeSearchFailed, "failed to pack context", err)
	}
	result.Debug = debug
	log.Debug("context pack built", slog.Int("seed_count", len(seeds)), slog.Int("expanded_count", len(expanded)))
	return result, nil
}

// rerank sends the fused top-M to the reranker and returns candidates
// sorted by rerank score descending, per spec §4.7 step 4.
func (s *Service) rerank(ctx context.Context, query string, tokens []string, fused []Candidate) ([]Candidate, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	documents := make([]string, len(fused))
	for i, c := range fused {
		breadcrumb := truncateMiddle(c.Breadcrumb, 250)
		budget := 1000 - len(breadcrumb) - 1
		documents[i] = breadcrumb + "\n" + extractAroundHit(c.DisplayCode, tokens, budget)
	}

	results, err := s.cfg.Reranker.Rerank(ctx, query, documents, rerankTopN)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(fused) {
			continue
		}
		c := fused[r.Index]
		c.RerankScore = r.Score
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RerankScore > out[j].RerankScore })
	return out, nil
}
