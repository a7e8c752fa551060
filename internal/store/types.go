// Package store provides persistence for ContextWeaver's index: a
// SQLite-backed row store for file/chunk metadata and full-text search,
// and an HNSW-backed vector store for semantic search.
package store

import (
	"context"
	"fmt"
	"time"
)

// ContentType mirrors chunk.ContentType for the persisted representation.
type ContentType string

const (
	ContentTypeCode ContentType = "code"
	ContentTypeText ContentType = "text"
)

// State keys for the key-value metadata table.
const (
	StateKeyIndexDimension = "index_embedding_dimension"
	StateKeyIndexModel     = "index_embedding_model"

	StateKeyCheckpointStage         = "checkpoint_stage"
	StateKeyCheckpointTotal         = "checkpoint_total"
	StateKeyCheckpointEmbedded      = "checkpoint_embedded"
	StateKeyCheckpointTimestamp     = "checkpoint_timestamp"
	StateKeyCheckpointEmbedderModel = "checkpoint_embedder_model"
)

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// Chunk is the persisted form of a chunk.Chunk.
type Chunk struct {
	ID          string
	FileID      string
	FilePath    string
	Content     string // vectorSpan
	RawContent  string // rawSpan
	Breadcrumb  string
	ContentType ContentType
	Language    string
	StartLine   int
	EndLine     int
	StartByte   uint32
	EndByte     uint32
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// File is a tracked file in the index.
type File struct {
	ID          string
	ProjectID   string
	Path        string
	Size        int64
	ModTime     time.Time
	ContentHash string
	Language    string
	ContentType string
	IndexedAt   time.Time
}

// Project is an indexed codebase root.
type Project struct {
	ID         string
	Name       string
	RootPath   string
	ChunkCount int
	FileCount  int
	IndexedAt  time.Time
	Version    string
}

// IndexCheckpoint is the saved state of an in-progress indexing run, used
// to resume after an interrupted `contextweaver scan` invocation.
type IndexCheckpoint struct {
	Stage         string
	Total         int
	EmbeddedCount int
	Timestamp     time.Time
	EmbedderModel string
}

// IndexInfo reports statistics for the `contextweaver index info` command.
type IndexInfo struct {
	Location    string
	ProjectRoot string

	IndexModel      string
	IndexBackend    string
	IndexDimensions int

	ChunkCount      int
	DocumentCount   int
	IndexSizeBytes  int64
	BM25SizeBytes   int64
	VectorSizeBytes int64

	CreatedAt time.Time
	UpdatedAt time.Time

	CurrentModel      string
	CurrentBackend    string
	CurrentDimensions int
	Compatible        bool
}

// MetadataStore persists file and chunk metadata, plus lexical full-text
// search over chunk content, in SQLite.
type MetadataStore interface {
	SaveProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	UpdateProjectStats(ctx context.Context, id string, fileCount, chunkCount int) error

	SaveFiles(ctx context.Context, files []*File) error
	GetFileByPath(ctx context.Context, projectID, path string) (*File, error)
	GetFilesForReconciliation(ctx context.Context, projectID string) (map[string]*File, error)
	GetFilePathsByProject(ctx context.Context, projectID string) ([]string, error)
	ListFilePathsUnder(ctx context.Context, projectID, dirPrefix string) ([]string, error)
	DeleteFile(ctx context.Context, fileID string) error
	DeleteFilesByProject(ctx context.Context, projectID string) error

	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error)
	GetChunksByFile(ctx context.Context, fileID string) ([]*Chunk, error)
	GetAllChunkIDs(ctx context.Context, projectID string) ([]string, error)
	DeleteChunksByFile(ctx context.Context, fileID string) error
	DeleteChunks(ctx context.Context, ids []string) error

	// SearchLexical runs the two-pass BM25 query: an AND-of-terms match
	// first, falling back to an OR match over tokens if the strict pass
	// returns nothing, mirroring how code search queries are rarely full
	// sentences.
	SearchLexical(ctx context.Context, query string, limit int) ([]*LexicalResult, error)

	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	SaveIndexCheckpoint(ctx context.Context, stage string, total, embeddedCount int, embedderModel string) error
	LoadIndexCheckpoint(ctx context.Context) (*IndexCheckpoint, error)
	ClearIndexCheckpoint(ctx context.Context) error

	Close() error
}

// LexicalResult is a single BM25 hit over the chunks FTS table.
type LexicalResult struct {
	ChunkID string
	Score   float64
}

// BM25Config configures lexical tokenization and stop-word filtering.
type BM25Config struct {
	StopWords      []string
	MinTokenLength int
}

// DefaultBM25Config returns the default tokenizer configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		StopWords:      DefaultCodeStopWords,
		MinTokenLength: 2,
	}
}

// DefaultCodeStopWords are programming keywords filtered out of the
// lexical index so a query for "parse error" doesn't drown in matches on
// every function with an err variable.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// VectorResult is a single nearest-neighbor hit.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorStoreConfig configures the HNSW vector store.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string // "cos" or "l2"
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns sensible HNSW defaults for dimensions.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides semantic nearest-neighbor search via HNSW.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs() []string
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates the embedding dimension of a query or
// inserted vector doesn't match the vector store's configured dimension —
// usually because the embedding model backing the index changed.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'contextweaver scan --force')", e.Expected, e.Got)
}
