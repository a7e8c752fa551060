package pack

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contextweaver/contextweaver/internal/graph"
	"github.com/contextweaver/contextweaver/internal/store"
)

func TestMergeSpansMergesOverlappingAndComputesLines(t *testing.T) {
	content := []byte("line one\nline two\nline three\n")
	spans := []span{
		{start: 0, end: 8, score: 0.5, breadcrumb: "a"},
		{start: 4, end: 17, score: 0.9, breadcrumb: "b"},
	}
	segs := mergeSpans(content, spans)
	require.Len(t, segs, 1)
	require.Equal(t, 1, segs[0].StartLine)
	require.Equal(t, 2, segs[0].EndLine)
	require.Equal(t, 0.9, segs[0].Score)
	require.Equal(t, "a", segs[0].Breadcrumb, "merged span keeps the first-seen breadcrumb")
}

func TestMergeSpansKeepsDisjointSpansSeparate(t *testing.T) {
	content := []byte("aaaaaaaaaa\nbbbbbbbbbb\ncccccccccc\n")
	spans := []span{
		{start: 0, end: 3},
		{start: 22, end: 25},
	}
	segs := mergeSpans(content, spans)
	require.Len(t, segs, 2)
}

func TestPackEndToEnd(t *testing.T) {
	root := t.TempDir()
	content := "func A() {}\nfunc B() {}\nfunc C() {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte(content), 0o644))

	meta := newTestMetadata(t)
	ctx := context.Background()
	require.NoError(t, meta.SaveProject(ctx, &store.Project{ID: "p1", Name: "demo", RootPath: root, IndexedAt: time.Now(), Version: "1"}))
	require.NoError(t, meta.SaveFiles(ctx, []*store.File{
		{ID: "f1", ProjectID: "p1", Path: "a.go", ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}))
	require.NoError(t, meta.SaveChunks(ctx, []*store.Chunk{
		{ID: "c1", FileID: "f1", FilePath: "a.go", Content: "func A", RawContent: "func A() {}", Breadcrumb: "a.go > A", StartByte: 0, EndByte: 11, StartLine: 1, EndLine: 1},
		{ID: "c2", FileID: "f1", FilePath: "a.go", Content: "func B", RawContent: "func B() {}", Breadcrumb: "a.go > B", StartByte: 12, EndByte: 23, StartLine: 2, EndLine: 2},
	}))

	packer := New(Config{Metadata: meta, RootPath: root})
	seeds := []graph.Seed{{ChunkID: "c1", FilePath: "a.go", Breadcrumb: "a.go > A", Score: 1.0}}
	expanded := []graph.Expanded{{ChunkID: "c2", FilePath: "a.go", Breadcrumb: "a.go > B", Score: 0.8, Reason: graph.ReasonNeighbor}}

	result, err := packer.Pack(ctx, "A", seeds, expanded)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Equal(t, "a.go", result.Files[0].FilePath)
	require.NotEmpty(t, result.Files[0].Segments)
}

func newTestMetadata(t *testing.T) *store.SQLiteMetadataStore {
	t.Helper()
	s, err := store.NewSQLiteMetadataStore("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
