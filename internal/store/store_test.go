package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteMetadataStore {
	t.Helper()
	s, err := NewSQLiteMetadataStore("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Project{ID: "p1", Name: "demo", RootPath: "/repo", IndexedAt: time.Now(), Version: "1"}
	require.NoError(t, s.SaveProject(ctx, p))

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)
}

func TestSaveFilesAndReconcile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, &Project{ID: "p1", Name: "demo", RootPath: "/repo", IndexedAt: time.Now(), Version: "1"}))

	files := []*File{
		{ID: "f1", ProjectID: "p1", Path: "a.go", Size: 10, ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
		{ID: "f2", ProjectID: "p1", Path: "b.go", Size: 20, ModTime: time.Now(), ContentHash: "h2", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}
	require.NoError(t, s.SaveFiles(ctx, files))

	tracked, err := s.GetFilesForReconciliation(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, tracked, 2)
	assert.Equal(t, "h1", tracked["a.go"].ContentHash)
}

func TestSaveChunksAndLexicalSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, &Project{ID: "p1", Name: "demo", RootPath: "/repo", IndexedAt: time.Now(), Version: "1"}))
	require.NoError(t, s.SaveFiles(ctx, []*File{
		{ID: "f1", ProjectID: "p1", Path: "a.go", ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}))

	chunks := []*Chunk{
		{ID: "c1", FileID: "f1", FilePath: "a.go", Content: "func validateUser", RawContent: "func validateUser(u User) error { return nil }", Breadcrumb: "validateUser", ContentType: ContentTypeCode, Language: "go", StartLine: 1, EndLine: 3},
		{ID: "c2", FileID: "f1", FilePath: "a.go", Content: "func parseConfig", RawContent: "func parseConfig(path string) (*Config, error) { return nil, nil }", Breadcrumb: "parseConfig", ContentType: ContentTypeCode, Language: "go", StartLine: 5, EndLine: 7},
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	results, err := s.SearchLexical(ctx, "validate user", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ChunkID)
}

func TestDeleteChunksByFileRemovesFTSEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, &Project{ID: "p1", Name: "demo", RootPath: "/repo", IndexedAt: time.Now(), Version: "1"}))
	require.NoError(t, s.SaveFiles(ctx, []*File{
		{ID: "f1", ProjectID: "p1", Path: "a.go", ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: "c1", FileID: "f1", FilePath: "a.go", RawContent: "func validateUser() {}", ContentType: ContentTypeCode, Language: "go"},
	}))

	require.NoError(t, s.DeleteChunksByFile(ctx, "f1"))

	results, err := s.SearchLexical(ctx, "validate", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetFilePathsByProjectAndChunkIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, &Project{ID: "p1", Name: "demo", RootPath: "/repo", IndexedAt: time.Now(), Version: "1"}))
	require.NoError(t, s.SaveFiles(ctx, []*File{
		{ID: "f1", ProjectID: "p1", Path: "a.go", ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: "c1", FileID: "f1", FilePath: "a.go", RawContent: "func a() {}"},
		{ID: "c2", FileID: "f1", FilePath: "a.go", RawContent: "func b() {}"},
	}))

	paths, err := s.GetFilePathsByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, paths)

	ids, err := s.GetAllChunkIDs(ctx, "p1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)
}

func TestDeleteChunksRemovesOnlySpecifiedIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, &Project{ID: "p1", Name: "demo", RootPath: "/repo", IndexedAt: time.Now(), Version: "1"}))
	require.NoError(t, s.SaveFiles(ctx, []*File{
		{ID: "f1", ProjectID: "p1", Path: "a.go", ModTime: time.Now(), ContentHash: "h1", Language: "go", ContentType: "code", IndexedAt: time.Now()},
	}))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ID: "c1", FileID: "f1", FilePath: "a.go", RawContent: "func a() {}"},
		{ID: "c2", FileID: "f1", FilePath: "a.go", RawContent: "func b() {}"},
	}))

	require.NoError(t, s.DeleteChunks(ctx, []string{"c1"}))

	remaining, err := s.GetChunks(ctx, []string{"c1", "c2"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "c2", remaining[0].ID)
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveIndexCheckpoint(ctx, "embedding", 100, 42, "static-256"))

	cp, err := s.LoadIndexCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "embedding", cp.Stage)
	assert.Equal(t, 100, cp.Total)
	assert.Equal(t, 42, cp.EmbeddedCount)
	assert.Equal(t, "static-256", cp.EmbedderModel)

	require.NoError(t, s.ClearIndexCheckpoint(ctx))
	cleared, err := s.LoadIndexCheckpoint(ctx)
	require.NoError(t, err)
	assert.Empty(t, cleared.Stage)
}

func TestHNSWStoreAddSearchDelete(t *testing.T) {
	vs, err := NewHNSWStore(DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	ctx := context.Background()
	ids := []string{"a", "b", "c"}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	}
	require.NoError(t, vs.Add(ctx, ids, vectors))
	assert.Equal(t, 3, vs.Count())

	results, err := vs.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)

	require.NoError(t, vs.Delete(ctx, []string{"a"}))
	assert.False(t, vs.Contains("a"))
	assert.Equal(t, 2, vs.Count())
}

func TestHNSWStoreDimensionMismatch(t *testing.T) {
	vs, err := NewHNSWStore(DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })

	err = vs.Add(context.Background(), []string{"a"}, [][]float32{{1, 2}})
	require.Error(t, err)
	var mismatch ErrDimensionMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestTokenizeCodeSplitsCamelAndSnakeCase(t *testing.T) {
	tokens := TokenizeCode("parseHTTPRequest user_id")
	assert.Contains(t, tokens, "parse")
	assert.Contains(t, tokens, "http")
	assert.Contains(t, tokens, "request")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "id")
}
