package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPConfig configures an HTTPEmbedder against a generic embedding
// service (Ollama-compatible and most self-hosted embedding servers
// accept this `{model, input}` → `{embeddings}` shape).
type HTTPConfig struct {
	Endpoint   string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

type httpEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type httpEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEmbedder calls an external embedding HTTP service.
type HTTPEmbedder struct {
	client *http.Client
	cfg    HTTPConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates an embedder backed by an HTTP service.
func NewHTTPEmbedder(cfg HTTPConfig) *HTTPEmbedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &HTTPEmbedder{
		client: &http.Client{Transport: &http.Transport{
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     10 * time.Second,
		}},
		cfg: cfg,
	}
}

// Embed generates an embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return results[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting into
// sub-batches of cfg.BatchSize and retrying each sub-batch with backoff.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var out [][]float32
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.doBatchWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}

	return out, nil
}

func (e *HTTPEmbedder) doBatchWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vectors, err := e.doBatch(ctx, batch)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		slog.Warn("embedding request failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}
	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", e.cfg.MaxRetries, lastErr)
}

func (e *HTTPEmbedder) doBatch(ctx context.Context, batch []string) ([][]float32, error) {
	reqBody, err := json.Marshal(httpEmbedRequest{Model: e.cfg.Model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out httpEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embeddings) != len(batch) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(out.Embeddings), len(batch))
	}

	return out.Embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *HTTPEmbedder) Dimensions() int { return e.cfg.Dimensions }

// ModelName returns the configured model identifier.
func (e *HTTPEmbedder) ModelName() string { return e.cfg.Model }

// Available probes the service with a one-word embedding request.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.doBatch(probeCtx, []string{"ping"})
	return err == nil
}

// Close releases the underlying HTTP transport's idle connections.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
