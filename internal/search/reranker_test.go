package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weaverrors "github.com/contextweaver/contextweaver/internal/errors"
)

func TestNoOpRerankerPreservesOrderWithDecreasingScores(t *testing.T) {
	r := NoOpReranker{}
	results, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 0, results[0].Index)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestNoOpRerankerRespectsTopN(t *testing.T) {
	r := NoOpReranker{}
	results, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestTruncateMiddleShortStringUnchanged(t *testing.T) {
	assert.Equal(t, "short", truncateMiddle("short", 250))
}

func TestTruncateMiddleLongStringKeepsHeadAndTail(t *testing.T) {
	s := strings.Repeat("x", 500)
	out := truncateMiddle(s, 250)
	assert.Len(t, out, 250)
	assert.Contains(t, out, "...")
}

func TestExtractAroundHitCentersOnMatch(t *testing.T) {
	code := strings.Repeat("a", 500) + "needle" + strings.Repeat("b", 500)
	out := extractAroundHit(code, []string{"needle"}, 100)
	assert.Contains(t, out, "needle")
	assert.LessOrEqual(t, len(out), 100)
}

func TestExtractAroundHitNoMatchReturnsHead(t *testing.T) {
	code := strings.Repeat("a", 500)
	out := extractAroundHit(code, []string{"needle"}, 100)
	assert.Equal(t, strings.Repeat("a", 100), out)
}

func TestHTTPRerankerRerankParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "q", req.Query)
		assert.Equal(t, []string{"a", "b"}, req.Documents)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rerankResponse{
			Results: []rerankResponseItem{
				{Index: 1, RelevanceScore: 0.9},
				{Index: 0, RelevanceScore: 0.3},
			},
		})
	}))
	defer server.Close()

	r := NewHTTPReranker(HTTPRerankConfig{Endpoint: server.URL, MaxRetries: 0})
	defer func() { _ = r.Close() }()

	results, err := r.Rerank(context.Background(), "q", []string{"a", "b"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, 0.9, results[0].Score)
}

// TestHTTPRerankerRerankOpensCircuitAfterRepeatedFailures confirms the
// breaker wired into Rerank trips after NewCircuitBreaker's default
// maxFailures (5) and fails fast without hitting the dead endpoint again.
func TestHTTPRerankerRerankOpensCircuitAfterRepeatedFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewHTTPReranker(HTTPRerankConfig{Endpoint: server.URL, MaxRetries: 0, Timeout: 2 * time.Second})
	defer func() { _ = r.Close() }()

	// MaxRetries 0 falls back to the default of 3, so each call makes 4 requests.
	for i := 0; i < 5; i++ {
		_, err := r.Rerank(context.Background(), "q", []string{"a"}, 0)
		require.Error(t, err)
	}
	require.Equal(t, int32(20), atomic.LoadInt32(&hits))

	_, err := r.Rerank(context.Background(), "q", []string{"a"}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, weaverrors.ErrCircuitOpen)
	assert.Equal(t, int32(20), atomic.LoadInt32(&hits), "circuit should fail fast without calling the endpoint again")
}
