package embed

import (
	"github.com/contextweaver/contextweaver/internal/config"
)

// New constructs an Embedder from configuration: "http" talks to the
// configured embedding endpoint, "static" (or an empty provider with no
// endpoint) falls back to the offline hash-based embedder.
func New(cfg config.EmbeddingsConfig) Embedder {
	if cfg.Provider == "static" {
		return NewStaticEmbedder()
	}

	if cfg.Endpoint == "" {
		return NewStaticEmbedder()
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = StaticDimensions
	}

	return NewHTTPEmbedder(HTTPConfig{
		Endpoint:   cfg.Endpoint,
		Model:      cfg.Model,
		Dimensions: dims,
		BatchSize:  cfg.BatchSize,
		Timeout:    cfg.Timeout,
	})
}
