package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	weaverrors "github.com/contextweaver/contextweaver/internal/errors"
)

// RerankResult is a single reranked candidate, scored 0.0-1.0.
//
// Grounded on the teacher's internal/search/reranker.go RerankResult/
// Reranker shape.
type RerankResult struct {
	Index int
	Score float64
}

// Reranker scores query-document pairs with a cross-encoder, more
// accurate than bi-encoder similarity but far more expensive — called
// only on the fused top-M, never the full recall set.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
	Available(ctx context.Context) bool
	Close() error
}

// NoOpReranker returns documents in their original order with decreasing
// scores, used when reranking is disabled in config.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, documents []string, topN int) ([]RerankResult, error) {
	out := make([]RerankResult, len(documents))
	for i := range documents {
		out[i] = RerankResult{Index: i, Score: 1.0 - float64(i)*0.01}
	}
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out, nil
}

func (NoOpReranker) Available(context.Context) bool { return true }
func (NoOpReranker) Close() error                   { return nil }

var _ Reranker = NoOpReranker{}

// HTTPRerankConfig configures an HTTPReranker against a generic
// cross-encoder HTTP service.
type HTTPRerankConfig struct {
	Endpoint   string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type rerankRequest struct {
	Model            string   `json:"model"`
	Query            string   `json:"query"`
	Documents        []string `json:"documents"`
	TopN             int      `json:"top_n"`
	ReturnDocuments  bool     `json:"return_documents"`
}

type rerankResponseItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResponseItem `json:"results"`
}

// HTTPReranker calls an external cross-encoder reranking service.
//
// Grounded on internal/embed/http.go's HTTPEmbedder — same client
// construction, same batch-retry-with-backoff shape — generalized from a
// `{model,input}` -> `{embeddings}` contract to a
// `{model,query,documents}` -> `{results}` one (Cohere/Jina-style rerank
// APIs both speak this shape).
type HTTPReranker struct {
	client  *http.Client
	cfg     HTTPRerankConfig
	breaker *weaverrors.CircuitBreaker
}

var _ Reranker = (*HTTPReranker)(nil)

func NewHTTPReranker(cfg HTTPRerankConfig) *HTTPReranker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &HTTPReranker{
		client: &http.Client{Transport: &http.Transport{
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     10 * time.Second,
		}},
		cfg:     cfg,
		breaker: weaverrors.NewCircuitBreaker("reranker:" + cfg.Endpoint),
	}
}

// Rerank sends the fused candidates to the reranker service, retrying up
// to 3 times with backoff that's steeper for rate-limit (429) responses,
// per spec §4.7 step 4.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error) {
	var resp *rerankResponse
	err := r.breaker.Execute(func() error {
		retryCfg := weaverrors.DefaultRetryConfig()
		retryCfg.MaxRetries = r.cfg.MaxRetries
		retryCfg.Jitter = false

		attempt := 0
		result, retryErr := weaverrors.RetryWithResult(ctx, retryCfg, func() (*rerankResponse, error) {
			attempt++
			resp, rateLimited, err := r.doRequest(ctx, query, documents, topN)
			if err != nil && attempt <= r.cfg.MaxRetries {
				backoff := 500 * time.Duration(attempt) * time.Millisecond
				if rateLimited {
					backoff = 1000 * time.Duration(attempt) * time.Millisecond
				}
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return resp, err
		})
		resp = result
		return retryErr
	})
	if err == weaverrors.ErrCircuitOpen {
		return nil, weaverrors.New(weaverrors.ErrCodeRerankFailed, "reranker circuit open, too many recent failures", err)
	}
	if err != nil {
		return nil, weaverrors.New(weaverrors.ErrCodeRerankFailed, "reranker request failed", err)
	}

	out := make([]RerankResult, len(resp.Results))
	for i, item := range resp.Results {
		out[i] = RerankResult{Index: item.Index, Score: item.RelevanceScore}
	}
	return out, nil
}

func (r *HTTPReranker) doRequest(ctx context.Context, query string, documents []string, topN int) (*rerankResponse, bool, error) {
	body, err := json.Marshal(rerankRequest{
		Model:           r.cfg.Model,
		Query:           query,
		Documents:       documents,
		TopN:            topN,
		ReturnDocuments: false,
	})
	if err != nil {
		return nil, false, fmt.Errorf("encode rerank request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("rerank request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("rerank service rate-limited")
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, false, fmt.Errorf("rerank service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode rerank response: %w", err)
	}
	return &out, false, nil
}

func (r *HTTPReranker) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, _, err := r.doRequest(probeCtx, "ping", []string{"ping"}, 1)
	return err == nil
}

func (r *HTTPReranker) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// truncateMiddle keeps the first and last portions of s and elides the
// middle with an ellipsis, used to keep a rerank payload's breadcrumb
// line within budget without losing the (usually more informative) tail.
func truncateMiddle(s string, max int) string {
	if len(s) <= max || max <= 3 {
		if max <= 3 {
			return s[:min(len(s), max)]
		}
		return s
	}
	keep := max - 3
	head := keep/2 + keep%2
	tail := keep / 2
	return s[:head] + "..." + s[len(s)-tail:]
}

// extractAroundHit returns up to maxLen characters of code centered on the
// first query-token match, falling back to the head of the text if no
// token matches (spec §4.7 step 4's rerank payload construction).
func extractAroundHit(code string, tokens []string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(code) <= maxLen {
		return code
	}

	lower := strings.ToLower(code)
	hitIdx := -1
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if tok == "" {
			continue
		}
		if idx := strings.Index(lower, tok); idx >= 0 && (hitIdx == -1 || idx < hitIdx) {
			hitIdx = idx
		}
	}
	if hitIdx == -1 {
		return code[:maxLen]
	}

	half := maxLen / 2
	start := hitIdx - half
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(code) {
		end = len(code)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}
	return code[start:end]
}
