// Package index orchestrates incremental indexing: chunking files via
// internal/chunk, embedding chunk text via internal/embed, and
// monotonically upserting rows and vectors into internal/store so a
// crash mid-reindex never leaves a file's search results empty.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/contextweaver/contextweaver/internal/chunk"
	"github.com/contextweaver/contextweaver/internal/embed"
	"github.com/contextweaver/contextweaver/internal/errors"
	"github.com/contextweaver/contextweaver/internal/scanner"
	"github.com/contextweaver/contextweaver/internal/store"
)

// DefaultMaxFileSize bounds a single file read during indexing.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// Config configures an Indexer.
type Config struct {
	ProjectID string
	RootPath  string
	DataDir   string

	Metadata store.MetadataStore
	Vector   store.VectorStore
	Chunker  chunk.Chunker
	Embedder embed.Embedder
	Scanner  *scanner.Scanner

	ExcludePatterns []string
	MaxFileSize     int64
}

// Indexer performs full-project and single-file incremental indexing.
type Indexer struct {
	cfg Config
}

// New creates an Indexer.
func New(cfg Config) *Indexer {
	return &Indexer{cfg: cfg}
}

func (ix *Indexer) maxFileSize() int64 {
	if ix.cfg.MaxFileSize > 0 {
		return ix.cfg.MaxFileSize
	}
	return DefaultMaxFileSize
}

// Stats summarizes a full-project indexing run.
type Stats struct {
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	FilesSkipped  int
	ChunksIndexed int
}

// IndexProject scans the project root, reconciles it against what's
// already indexed (by content hash, not mtime, so a checkout with
// different timestamps reindexes nothing unnecessarily), and applies
// the diff.
func (ix *Indexer) IndexProject(ctx context.Context) (*Stats, error) {
	runID := uuid.NewString()
	log := slog.With(slog.String("scan_run_id", runID))

	indexed, err := ix.cfg.Metadata.GetFilesForReconciliation(ctx, ix.cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load indexed files: %w", err)
	}

	results, err := ix.cfg.Scanner.Scan(ctx, &scanner.ScanOptions{
		RootDir:          ix.cfg.RootPath,
		RespectGitignore: true,
		ExcludePatterns:  ix.cfg.ExcludePatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}

	log.Info("scan run started", slog.String("project_id", ix.cfg.ProjectID), slog.Int("already_indexed", len(indexed)))

	stats := &Stats{}
	seen := make(map[string]bool, len(indexed))

	for result := range results {
		if result.Error != nil {
			log.Warn("scan error", slog.String("error", result.Error.Error()))
			continue
		}
		if result.File == nil {
			continue
		}
		if result.File.ContentType != scanner.ContentTypeCode && result.File.ContentType != scanner.ContentTypeMarkdown {
			continue
		}

		path := result.File.Path
		seen[path] = true

		hash, hashErr := scanner.HashFile(result.File.AbsPath)
		if hashErr != nil {
			log.Warn("failed to hash file", slog.String("path", path), slog.String("error", hashErr.Error()))
			continue
		}

		prior, existed := indexed[path]
		if existed && prior.ContentHash == hash {
			continue // unchanged
		}

		n, err := ix.IndexFile(ctx, path)
		if err != nil {
			log.Warn("failed to index file", slog.String("path", path), slog.String("error", err.Error()))
			stats.FilesSkipped++
			continue
		}
		stats.ChunksIndexed += n
		if existed {
			stats.FilesModified++
		} else {
			stats.FilesAdded++
		}
	}

	for path := range indexed {
		if !seen[path] {
			if err := ix.RemoveFile(ctx, path); err != nil {
				log.Warn("failed to remove deleted file", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			stats.FilesDeleted++
		}
	}

	if err := ix.cfg.Metadata.UpdateProjectStats(ctx, ix.cfg.ProjectID, len(seen), 0); err != nil {
		log.Warn("failed to update project stats", slog.String("error", err.Error()))
	}

	log.Info("scan run finished",
		slog.Int("files_added", stats.FilesAdded),
		slog.Int("files_modified", stats.FilesModified),
		slog.Int("files_deleted", stats.FilesDeleted),
		slog.Int("files_skipped", stats.FilesSkipped),
		slog.Int("chunks_indexed", stats.ChunksIndexed),
	)

	return stats, nil
}

// IndexFile (re)indexes a single project-relative file, returning the
// number of chunks written. Content types outside code/markdown, oversized
// files, symlinks, and binary content are skipped (return 0, nil).
func (ix *Indexer) IndexFile(ctx context.Context, relPath string) (int, error) {
	absPath := filepath.Join(ix.cfg.RootPath, relPath)

	info, err := os.Lstat(absPath)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeFileNotFound, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return 0, nil
	}
	if info.Size() > ix.maxFileSize() {
		slog.Warn("skipping oversized file", slog.String("path", relPath), slog.Int64("size", info.Size()))
		return 0, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeFilePermission, err)
	}
	if isBinaryContent(content) {
		return 0, nil
	}

	language := scanner.DetectLanguage(relPath)
	contentType := scanner.DetectContentType(language)
	if contentType != scanner.ContentTypeCode && contentType != scanner.ContentTypeMarkdown {
		return 0, nil
	}

	chunks, err := ix.cfg.Chunker.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: content, Language: language})
	if err != nil {
		return 0, errors.New(errors.ErrCodeChunkingFailed, "chunking failed", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	fileID := generateFileID(ix.cfg.ProjectID, relPath)

	priorChunks, err := ix.cfg.Metadata.GetChunksByFile(ctx, fileID)
	if err != nil {
		priorChunks = nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := ix.cfg.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, errors.New(errors.ErrCodeEmbeddingFailed, "embedding failed", err)
	}

	newIDs := make([]string, len(chunks))
	storeChunks := make([]*store.Chunk, len(chunks))
	for i, c := range chunks {
		newIDs[i] = c.ID
		storeChunks[i] = &store.Chunk{
			ID:          c.ID,
			FileID:      fileID,
			FilePath:    relPath,
			Content:     c.Content,
			RawContent:  c.RawContent,
			Breadcrumb:  c.Breadcrumb,
			ContentType: store.ContentType(c.ContentType),
			Language:    c.Language,
			StartLine:   c.StartLine,
			EndLine:     c.EndLine,
			StartByte:   c.StartByte,
			EndByte:     c.EndByte,
			Metadata:    c.Metadata,
		}
	}

	// Monotonic upsert: insert the new chunk generation (vectors, then
	// rows) before deleting the prior generation, so a crash between steps
	// leaves old+new coexisting rather than an empty window.
	if err := ix.cfg.Vector.Add(ctx, newIDs, vectors); err != nil {
		return 0, errors.New(errors.ErrCodeIndexFailed, "vector upsert failed", err)
	}

	file := &store.File{
		ID:          fileID,
		ProjectID:   ix.cfg.ProjectID,
		Path:        relPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentHash: hashContent(content),
		Language:    language,
		ContentType: string(contentType),
	}
	if err := ix.cfg.Metadata.SaveFiles(ctx, []*store.File{file}); err != nil {
		return 0, errors.New(errors.ErrCodeIndexFailed, "save file record failed", err)
	}
	if err := ix.cfg.Metadata.SaveChunks(ctx, storeChunks); err != nil {
		return 0, errors.New(errors.ErrCodeIndexFailed, "save chunks failed", err)
	}

	staleIDs := staleChunkIDs(priorChunks, newIDs)
	if len(staleIDs) > 0 {
		if err := ix.cfg.Vector.Delete(ctx, staleIDs); err != nil {
			slog.Warn("failed to delete stale vectors", slog.String("path", relPath), slog.String("error", err.Error()))
		}
		if err := ix.cfg.Metadata.DeleteChunks(ctx, staleIDs); err != nil {
			slog.Warn("failed to delete stale chunk rows", slog.String("path", relPath), slog.String("error", err.Error()))
		}
	}

	return len(storeChunks), nil
}

// RemoveFile purges a file's chunks from both stores and its file record
// from metadata.
func (ix *Indexer) RemoveFile(ctx context.Context, relPath string) error {
	fileID := generateFileID(ix.cfg.ProjectID, relPath)

	chunks, err := ix.cfg.Metadata.GetChunksByFile(ctx, fileID)
	if err != nil || len(chunks) == 0 {
		return ix.cfg.Metadata.DeleteFile(ctx, fileID)
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	if err := ix.cfg.Vector.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return ix.cfg.Metadata.DeleteFile(ctx, fileID)
}

func staleChunkIDs(prior []*store.Chunk, newIDs []string) []string {
	if len(prior) == 0 {
		return nil
	}
	fresh := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		fresh[id] = true
	}
	var stale []string
	for _, c := range prior {
		if !fresh[c.ID] {
			stale = append(stale, c.ID)
		}
	}
	sort.Strings(stale)
	return stale
}

func generateFileID(projectID, path string) string {
	input := fmt.Sprintf("%s:%s", projectID, path)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

func hashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func isBinaryContent(content []byte) bool {
	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}
	for i := 0; i < checkLen; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
