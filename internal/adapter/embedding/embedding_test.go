package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hsaeed3/yosemite/internal/domain"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	require.Equal(t, 64, e.Dimension())

	a, err := e.Embed(context.Background(), []string{"the quick brown fox"})
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), []string{"the quick brown fox"})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a[0], 64)

	// Unit norm.
	var norm float64
	for _, c := range a[0] {
		norm += float64(c) * float64(c)
	}
	require.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedderSimilarTextsAreClose(t *testing.T) {
	e := NewHashEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{
		"the quick brown fox",
		"the quick brown foxes",
		"completely unrelated subject matter entirely",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	cos := func(a, b []float32) float64 {
		var d, na, nb float64
		for i := range a {
			d += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		return d / (math.Sqrt(na) * math.Sqrt(nb))
	}
	require.Greater(t, cos(vecs[0], vecs[1]), cos(vecs[0], vecs[2]))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(8)
	vecs, err := e.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vecs[0], 8)
	for _, c := range vecs[0] {
		require.Zero(t, c)
	}
}

func TestOpenAIEmbedderRequestResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"alpha", "beta"}, req.Input)

		// Return out of order to exercise index-based assembly.
		json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingData{
			{Index: 1, Embedding: []float32{0, 1}},
			{Index: 0, Embedding: []float32{1, 0}},
		}})
	}))
	defer srv.Close()

	e := newCompatible("test-key", "test-model", srv.URL, 2)
	vecs, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	e := newCompatible("test-key", "test-model", srv.URL, 2)
	_, err := e.Embed(context.Background(), []string{"alpha"})
	require.ErrorIs(t, err, domain.ErrAdapterFailure)
}

func TestOpenAIEmbedderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingData{
			{Index: 0, Embedding: []float32{1}},
		}})
	}))
	defer srv.Close()

	e := newCompatible("test-key", "test-model", srv.URL, 1)
	_, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.ErrorIs(t, err, domain.ErrAdapterFailure)
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e := newCompatible("test-key", "test-model", "http://unreachable.invalid", 2)
	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vecs)
}

func TestOpenAIEmbedderContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	e := newCompatible("test-key", "test-model", srv.URL, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, []string{"alpha"})
	require.ErrorIs(t, err, domain.ErrAdapterFailure)
}
