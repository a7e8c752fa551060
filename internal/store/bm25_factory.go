package store

import (
	"os"
	"path/filepath"
)

// GetMetadataDBPath returns the path to the metadata/FTS database within
// a project's index data directory.
func GetMetadataDBPath(dataDir string) string {
	return filepath.Join(dataDir, "metadata.db")
}

// GetVectorStorePath returns the path to the HNSW vector store within a
// project's index data directory.
func GetVectorStorePath(dataDir string) string {
	return filepath.Join(dataDir, "vectors.hnsw")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
