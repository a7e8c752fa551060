package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EmbedderInfoInput describes the embedder currently configured, for
// comparison against what the index was built with.
type EmbedderInfoInput struct {
	Model      string
	Backend    string
	Dimensions int
}

// GetIndexInfo assembles the stats the `contextweaver index info` command
// reports: the persisted embedding model/dimensions, file/chunk counts, and
// on-disk sizes of the metadata, BM25, and vector stores under dataDir.
// current describes the embedder the CLI would use right now; it's
// compared against the persisted dimensions to flag an incompatible index.
func GetIndexInfo(ctx context.Context, metadata MetadataStore, projectID, dataDir string, current *EmbedderInfoInput) (*IndexInfo, error) {
	project, err := metadata.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	info := &IndexInfo{
		Location:      dataDir,
		ProjectRoot:   project.RootPath,
		ChunkCount:    project.ChunkCount,
		DocumentCount: project.FileCount,
		CreatedAt:     project.IndexedAt,
		UpdatedAt:     project.IndexedAt,
	}

	if dim, err := metadata.GetState(ctx, StateKeyIndexDimension); err == nil && dim != "" {
		fmt.Sscanf(dim, "%d", &info.IndexDimensions)
	}
	if model, err := metadata.GetState(ctx, StateKeyIndexModel); err == nil {
		info.IndexModel = model
	}
	info.IndexBackend = backendFromModel(info.IndexModel)

	info.IndexSizeBytes = fileSize(filepath.Join(dataDir, "metadata.db"))
	info.BM25SizeBytes = fileSize(filepath.Join(dataDir, "metadata.db")) // chunks_fts shares the metadata DB file
	info.VectorSizeBytes = fileSize(filepath.Join(dataDir, "vectors.hnsw"))

	if current != nil {
		info.CurrentModel = current.Model
		info.CurrentBackend = current.Backend
		info.CurrentDimensions = current.Dimensions
		info.Compatible = info.IndexDimensions == 0 || info.IndexDimensions == current.Dimensions
	} else {
		info.Compatible = true
	}

	return info, nil
}

func backendFromModel(model string) string {
	if model == "" {
		return ""
	}
	if containsAny(model, []string{"static"}) {
		return "static"
	}
	return "http"
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// FormatBytes formats a byte count in human-readable units.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatTime formats a timestamp for display, or "unknown" for the zero
// value (a never-indexed project).
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}
