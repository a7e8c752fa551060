package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/store"
)

// recall runs vector and lexical recall in parallel and returns each
// ranked candidate list independently — fusion happens after both return.
// A single source failing degrades gracefully to an empty list for that
// source rather than aborting the query, mirroring the teacher's
// parallelSearch in internal/search/engine.go (each goroutine swallows
// its own error into a local var instead of failing the errgroup).
func recall(ctx context.Context, embedder embed.Embedder, metadata store.MetadataStore, vectors store.VectorStore, query string, queryTokens []string) (vec []Candidate, lex []Candidate) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec = vectorRecall(gctx, embedder, metadata, vectors, query)
		return nil
	})
	g.Go(func() error {
		lex = lexicalRecall(gctx, metadata, query, queryTokens)
		return nil
	})

	_ = g.Wait() // both goroutines always return nil; errors are captured locally
	return vec, lex
}

// vectorRecall embeds the query, takes the vectorTopK nearest neighbors,
// and keeps the closest vectorTopM by ascending distance — converting
// distance to a similarity score of 1/(1+distance) (spec §4.7 step 1).
func vectorRecall(ctx context.Context, embedder embed.Embedder, metadata store.MetadataStore, vectors store.VectorStore, query string) []Candidate {
	if embedder == nil || vectors == nil {
		return nil
	}

	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil
	}

	results, err := vectors.Search(ctx, queryVec, vectorTopK)
	if err != nil {
		return nil
	}
	if len(results) > vectorTopM {
		results = results[:vectorTopM]
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{ChunkID: r.ID, VecScore: 1 / (1 + float64(r.Distance))})
	}
	hydrateFromStore(ctx, metadata, out)
	return out
}

// lexicalRecall runs the row store's two-pass BM25 query directly against
// chunks_fts. The spec's files_fts fallback (§4.7 step 1, for projects
// whose chunk-level index is thin) has no counterpart here: this schema
// never maintains a separate file-level FTS table — every tracked file
// has its chunks indexed in chunks_fts by construction (see
// internal/index.Indexer), so the fallback path is unreachable rather
// than merely unimplemented. See DESIGN.md.
func lexicalRecall(ctx context.Context, metadata store.MetadataStore, query string, queryTokens []string) []Candidate {
	results, err := metadata.SearchLexical(ctx, query, lexTotalChunks)
	if err != nil {
		return nil
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, Candidate{ChunkID: r.ChunkID, LexScore: r.Score})
	}
	hydrateFromStore(ctx, metadata, out)
	_ = queryTokens // reserved for the files_fts fallback's overlap ranking; unused on the direct path
	return out
}

// hydrateFromStore batch-fills each candidate's file path, breadcrumb, and
// display code from its chunk row. Recall only ever returns chunk IDs and
// a bare score; everything downstream (fusion keys, rerank payloads) needs
// the rest of the row.
func hydrateFromStore(ctx context.Context, metadata store.MetadataStore, candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChunkID
	}
	chunks, err := metadata.GetChunks(ctx, ids)
	if err != nil {
		return
	}
	byID := make(map[string]*store.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	for i := range candidates {
		chunk, ok := byID[candidates[i].ChunkID]
		if !ok {
			continue
		}
		candidates[i].FilePath = chunk.FilePath
		candidates[i].Breadcrumb = chunk.Breadcrumb
		candidates[i].DisplayCode = chunk.RawContent
	}
}
