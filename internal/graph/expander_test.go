package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contextweaver/contextweaver/internal/store"
)

func newTestMetadata(t *testing.T) *store.SQLiteMetadataStore {
	t.Helper()
	s, err := store.NewSQLiteMetadataStore("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedProject lays out a tiny two-file Go project on disk (so E3's
// resolver can read real source) and mirrors it into the row store.
func seedProject(t *testing.T) (root string, meta *store.SQLiteMetadataStore) {
	t.Helper()
	root = t.TempDir()

	mainSrc := "package main\n\nimport \"example.com/app/internal/util\"\n\nfunc main() {\n\tutil.Run()\n}\n"
	utilSrc := "package util\n\nfunc Run() {}\n\nfunc Helper() {}\n"

	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal", "util"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(mainSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "internal", "util", "util.go"), []byte(utilSrc), 0o644))

	meta = newTestMetadata(t)
	ctx := context.Background()
	require.NoError(t, meta.SaveProject(ctx, &store.Project{ID: "p1", Name: "demo", RootPath: root, IndexedAt: time.Now(), Version: "1"}))
	require.NoError(t, meta.SaveFiles(ctx, []*store.File{
		{ID: "f-main", ProjectID: "p1", Path: "main.go", ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
		{ID: "f-util", ProjectID: "p1", Path: "internal/util/util.go", ModTime: time.Now(), ContentHash: "h2", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}))
	require.NoError(t, meta.SaveChunks(ctx, []*store.Chunk{
		{ID: "c-main-1", FileID: "f-main", FilePath: "main.go", Content: "func main", RawContent: "func main() {\n\tutil.Run()\n}", Breadcrumb: "main.go > main", ContentType: store.ContentTypeCode, Language: "go", StartLine: 5, EndLine: 7},
		{ID: "c-util-1", FileID: "f-util", FilePath: "internal/util/util.go", Content: "func Run", RawContent: "func Run() {}", Breadcrumb: "internal/util/util.go > Run", ContentType: store.ContentTypeCode, Language: "go", StartLine: 3, EndLine: 3},
		{ID: "c-util-2", FileID: "f-util", FilePath: "internal/util/util.go", Content: "func Helper", RawContent: "func Helper() {}", Breadcrumb: "internal/util/util.go > Helper", ContentType: store.ContentTypeCode, Language: "go", StartLine: 5, EndLine: 5},
	}))

	return root, meta
}

func TestExpandNeighborsWithinSameFile(t *testing.T) {
	root, meta := seedProject(t)
	exp, err := New(Config{ProjectID: "p1", RootPath: root, Metadata: meta})
	require.NoError(t, err)

	seeds := []Seed{{ChunkID: "c-util-1", FilePath: "internal/util/util.go", Breadcrumb: "internal/util/util.go > Run", Score: 1.0}}

	out, err := exp.Expand(context.Background(), seeds, nil)
	require.NoError(t, err)

	var sawHelper bool
	for _, e := range out {
		if e.ChunkID == "c-util-2" {
			sawHelper = true
			require.Equal(t, ReasonNeighbor, e.Reason)
			require.InDelta(t, DecayNeighbor, e.Score, 1e-9)
		}
	}
	require.True(t, sawHelper, "expected sibling chunk in same file to be pulled in via E1")
}

func TestExpandImportsFollowsGoImportGraph(t *testing.T) {
	root, meta := seedProject(t)
	exp, err := New(Config{ProjectID: "p1", RootPath: root, Metadata: meta})
	require.NoError(t, err)

	seeds := []Seed{{ChunkID: "c-main-1", FilePath: "main.go", Breadcrumb: "main.go > main", Score: 1.0}}

	out, err := exp.Expand(context.Background(), seeds, []string{"Run"})
	require.NoError(t, err)

	var sawImported bool
	for _, e := range out {
		if e.FilePath == "internal/util/util.go" {
			sawImported = true
			require.Equal(t, ReasonImport, e.Reason)
		}
	}
	require.True(t, sawImported, "expected util.go chunks to be pulled in via E3 import resolution")
}

func TestExpandSkipsAlreadySeenChunks(t *testing.T) {
	root, meta := seedProject(t)
	exp, err := New(Config{ProjectID: "p1", RootPath: root, Metadata: meta})
	require.NoError(t, err)

	seeds := []Seed{
		{ChunkID: "c-util-1", FilePath: "internal/util/util.go", Breadcrumb: "internal/util/util.go > Run", Score: 1.0},
		{ChunkID: "c-util-2", FilePath: "internal/util/util.go", Breadcrumb: "internal/util/util.go > Helper", Score: 1.0},
	}

	out, err := exp.Expand(context.Background(), seeds, nil)
	require.NoError(t, err)
	for _, e := range out {
		require.NotEqual(t, "c-util-1", e.ChunkID)
		require.NotEqual(t, "c-util-2", e.ChunkID)
	}
}

func TestInvalidateClearsPathCache(t *testing.T) {
	root, meta := seedProject(t)
	exp, err := New(Config{ProjectID: "p1", RootPath: root, Metadata: meta})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = exp.projectPathSet(ctx)
	require.NoError(t, err)
	_, cached := exp.pathCache.Get("p1")
	require.True(t, cached)

	exp.Invalidate()
	_, cached = exp.pathCache.Get("p1")
	require.False(t, cached)
}
