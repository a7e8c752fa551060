package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextweaver/contextweaver/internal/config"
)

func TestStaticEmbedderIsDeterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "func validateUser(u User) error")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "func validateUser(u User) error")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, StaticDimensions)
}

func TestStaticEmbedderDiffersForDifferentText(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "parse configuration file")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "serialize response payload")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestStaticEmbedderEmptyTextReturnsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, f := range v {
		assert.Zero(t, f)
	}
}

func TestStaticEmbedderClosedRejectsRequests(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())
	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestHTTPEmbedderEmbedsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req httpEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := httpEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{1, 2, 3})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	e := NewHTTPEmbedder(HTTPConfig{
		Endpoint:   server.URL,
		Model:      "test-model",
		Dimensions: 3,
		Timeout:    5 * time.Second,
	})
	defer e.Close()

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 2, 3}, vectors[0])
}

func TestHTTPEmbedderRetriesOnFailureThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req httpEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := httpEmbedResponse{Embeddings: [][]float32{{0.1, 0.2}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	e := NewHTTPEmbedder(HTTPConfig{Endpoint: server.URL, Model: "m", Dimensions: 2, MaxRetries: 3})
	defer e.Close()

	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, v)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestNewFallsBackToStaticWithoutEndpoint(t *testing.T) {
	e := New(config.EmbeddingsConfig{})
	_, isStatic := e.(*StaticEmbedder)
	assert.True(t, isStatic)
}
