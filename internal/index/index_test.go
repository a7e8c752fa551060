package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextweaver/contextweaver/internal/chunk"
	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/scanner"
	"github.com/contextweaver/contextweaver/internal/store"
)

func newTestIndexer(t *testing.T, root string) (*Indexer, store.MetadataStore, store.VectorStore) {
	t.Helper()

	metadata, err := store.NewSQLiteMetadataStore("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })

	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embed.StaticDimensions))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vector.Close() })

	sc, err := scanner.New()
	require.NoError(t, err)

	require.NoError(t, metadata.SaveProject(context.Background(), &store.Project{
		ID: "proj1", Name: "proj1", RootPath: root, Version: "1",
	}))

	ix := New(Config{
		ProjectID: "proj1",
		RootPath:  root,
		Metadata:  metadata,
		Vector:    vector,
		Chunker:   chunk.NewSemanticSplitter(chunk.DefaultSplitterConfig()),
		Embedder:  embed.NewStaticEmbedder(),
		Scanner:   sc,
	})
	return ix, metadata, vector
}

func writeTestFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	abs := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestIndexFileWritesChunksAndVectors(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "package main\n\nfunc validateUser() error {\n\treturn nil\n}\n")

	ix, metadata, vector := newTestIndexer(t, root)
	ctx := context.Background()

	n, err := ix.IndexFile(ctx, "main.go")
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	fileID := generateFileID("proj1", "main.go")
	chunks, err := metadata.GetChunksByFile(ctx, fileID)
	require.NoError(t, err)
	assert.Len(t, chunks, n)

	assert.Equal(t, n, vector.Count())
}

func TestIndexFileReindexReplacesStaleChunks(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "package main\n\nfunc validateUser() error {\n\treturn nil\n}\n")

	ix, metadata, vector := newTestIndexer(t, root)
	ctx := context.Background()

	_, err := ix.IndexFile(ctx, "main.go")
	require.NoError(t, err)

	writeTestFile(t, root, "main.go", "package main\n\nfunc parseConfig() error {\n\treturn nil\n}\n\nfunc extra() {}\n")
	n2, err := ix.IndexFile(ctx, "main.go")
	require.NoError(t, err)

	fileID := generateFileID("proj1", "main.go")
	chunks, err := metadata.GetChunksByFile(ctx, fileID)
	require.NoError(t, err)
	assert.Len(t, chunks, n2)
	assert.Equal(t, n2, vector.Count())

	for _, c := range chunks {
		assert.NotContains(t, c.RawContent, "validateUser")
	}
}

func TestRemoveFileDeletesChunksAndVectors(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "package main\n\nfunc validateUser() error {\n\treturn nil\n}\n")

	ix, metadata, vector := newTestIndexer(t, root)
	ctx := context.Background()

	_, err := ix.IndexFile(ctx, "main.go")
	require.NoError(t, err)
	require.Greater(t, vector.Count(), 0)

	require.NoError(t, ix.RemoveFile(ctx, "main.go"))

	fileID := generateFileID("proj1", "main.go")
	chunks, err := metadata.GetChunksByFile(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, vector.Count())
}

func TestIndexProjectReconcilesAddedModifiedAndDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package main\n\nfunc a() {}\n")
	writeTestFile(t, root, "b.go", "package main\n\nfunc b() {}\n")

	ix, metadata, _ := newTestIndexer(t, root)
	ctx := context.Background()

	stats, err := ix.IndexProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesAdded)

	// Reindexing unchanged files should add nothing new.
	stats2, err := ix.IndexProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats2.FilesAdded)
	assert.Equal(t, 0, stats2.FilesModified)

	// Modify one file, delete the other.
	writeTestFile(t, root, "a.go", "package main\n\nfunc a() { return }\n")
	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))

	stats3, err := ix.IndexProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats3.FilesModified)
	assert.Equal(t, 1, stats3.FilesDeleted)

	paths, err := metadata.GetFilePathsByProject(ctx, "proj1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, paths)
}

func TestConsistencyCheckerDetectsOrphanVector(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "package main\n\nfunc validateUser() error {\n\treturn nil\n}\n")

	ix, metadata, vector := newTestIndexer(t, root)
	ctx := context.Background()

	_, err := ix.IndexFile(ctx, "main.go")
	require.NoError(t, err)

	require.NoError(t, vector.Add(ctx, []string{"orphan-chunk"}, [][]float32{make([]float32, embed.StaticDimensions)}))

	checker := NewConsistencyChecker(metadata, vector)
	result, err := checker.Check(ctx, "proj1")
	require.NoError(t, err)
	require.Len(t, result.Inconsistencies, 1)
	assert.Equal(t, InconsistencyOrphanVector, result.Inconsistencies[0].Type)
	assert.Equal(t, "orphan-chunk", result.Inconsistencies[0].ChunkID)

	repaired, remaining, err := checker.Repair(ctx, result.Inconsistencies)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Empty(t, remaining)
	assert.False(t, vector.Contains("orphan-chunk"))
}

func TestConsistencyQuickCheck(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", "package main\n\nfunc validateUser() error {\n\treturn nil\n}\n")

	ix, metadata, vector := newTestIndexer(t, root)
	ctx := context.Background()

	_, err := ix.IndexFile(ctx, "main.go")
	require.NoError(t, err)

	checker := NewConsistencyChecker(metadata, vector)
	ok, err := checker.QuickCheck(ctx, "proj1")
	require.NoError(t, err)
	assert.True(t, ok)
}
