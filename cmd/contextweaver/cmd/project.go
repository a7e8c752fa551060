package cmd

import (
	"crypto/sha256"
	"encoding/hex"
)

// projectIDFor derives a stable project ID from its root path, the same
// content-addressable-ID style internal/index uses for file and chunk IDs.
func projectIDFor(rootPath string) string {
	hash := sha256.Sum256([]byte(rootPath))
	return hex.EncodeToString(hash[:])[:16]
}
