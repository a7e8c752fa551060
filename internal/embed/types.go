// Package embed generates vector embeddings for chunk text, either via a
// configured HTTP embedding service or, for offline/test use, a
// deterministic hash-based fallback.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1
	// MaxBatchSize bounds a single embedding request to avoid memory
	// exhaustion when indexing very large batches of chunks.
	MaxBatchSize = 256
	// DefaultBatchSize is used when config doesn't specify one.
	DefaultBatchSize = 32
	// DefaultTimeout bounds a single embedding HTTP call.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries caps retry attempts on a failed embedding call.
	DefaultMaxRetries = 3

	// StaticDimensions is the embedding dimension produced by StaticEmbedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
