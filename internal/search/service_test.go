package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/graph"
	"github.com/contextweaver/contextweaver/internal/pack"
	"github.com/contextweaver/contextweaver/internal/store"
)

func newTestMetadata(t *testing.T) *store.SQLiteMetadataStore {
	t.Helper()
	s, err := store.NewSQLiteMetadataStore("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestServiceBuildContextPackEndToEnd(t *testing.T) {
	root := t.TempDir()
	content := "func ValidateUser(u User) error {\n\treturn nil\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.go"), []byte(content), 0o644))

	embedder := embed.NewStaticEmbedder()
	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	meta := newTestMetadata(t)
	ctx := context.Background()
	require.NoError(t, meta.SaveProject(ctx, &store.Project{ID: "p1", Name: "demo", RootPath: root, IndexedAt: time.Now(), Version: "1"}))
	require.NoError(t, meta.SaveFiles(ctx, []*store.File{
		{ID: "f1", ProjectID: "p1", Path: "auth.go", ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}))
	chunkText := "func ValidateUser"
	require.NoError(t, meta.SaveChunks(ctx, []*store.Chunk{
		{ID: "c1", FileID: "f1", FilePath: "auth.go", Content: chunkText, RawContent: content, Breadcrumb: "auth.go > ValidateUser", ContentType: store.ContentTypeCode, Language: "go", StartByte: 0, EndByte: uint32(len(content)), StartLine: 1, EndLine: 3},
	}))

	vec, err := embedder.Embed(ctx, chunkText)
	require.NoError(t, err)
	require.NoError(t, vectors.Add(ctx, []string{"c1"}, [][]float32{vec}))

	expander, err := graph.New(graph.Config{ProjectID: "p1", RootPath: root, Metadata: meta})
	require.NoError(t, err)
	packer := pack.New(pack.Config{Metadata: meta, RootPath: root})

	svc := New(Config{
		Metadata: meta,
		Vectors:  vectors,
		Embedder: embedder,
		Expander: expander,
		Packer:   packer,
	})

	result, err := svc.BuildContextPack(ctx, "validate user")
	require.NoError(t, err)
	require.NotEmpty(t, result.Files, "expected at least one packed file for a query matching the indexed chunk")
	require.Equal(t, "validate user", result.Query)
}

func TestServiceBuildContextPackRejectsEmptyQuery(t *testing.T) {
	meta := newTestMetadata(t)
	svc := New(Config{Metadata: meta, Packer: pack.New(pack.Config{Metadata: meta, RootPath: t.TempDir()})})
	_, err := svc.BuildContextPack(context.Background(), "   ")
	require.Error(t, err)
}
