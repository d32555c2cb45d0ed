package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hsaeed3/yosemite/internal/domain"
)

// lengthScorer rates longer passages higher, a stand-in with a total order.
type lengthScorer struct{}

func (lengthScorer) Score(_ context.Context, _, passage string) (float64, error) {
	return float64(len(passage)), nil
}

func TestRerankOrdering(t *testing.T) {
	r := NewReranker(lengthScorer{})
	candidates := []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: 1, Text: "short"}, Fused: 0.9},
		{Chunk: domain.Chunk{ID: 2, Text: "a much longer passage"}, Fused: 0.1},
		{Chunk: domain.Chunk{ID: 3, Text: "medium size"}, Fused: 0.5},
	}

	got, err := r.Rerank(context.Background(), "q", candidates, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint64(2), got[0].Chunk.ID)
	require.Equal(t, uint64(3), got[1].Chunk.ID)

	// The fused score rides along unchanged for callers that inspect it.
	require.Equal(t, 0.1, got[0].Fused)
}

func TestRerankTieBreaks(t *testing.T) {
	r := NewReranker(&keywordScorer{keyword: "zzz"})
	candidates := []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: 9, Text: "alpha"}, Fused: 0.2},
		{Chunk: domain.Chunk{ID: 4, Text: "beta"}, Fused: 0.8},
		{Chunk: domain.Chunk{ID: 5, Text: "gamma"}, Fused: 0.8},
	}

	// Every candidate scores zero; fused descending then id ascending.
	got, err := r.Rerank(context.Background(), "q", candidates, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(4), got[0].Chunk.ID)
	require.Equal(t, uint64(5), got[1].Chunk.ID)
	require.Equal(t, uint64(9), got[2].Chunk.ID)
}

func TestRerankInvalidTopK(t *testing.T) {
	r := NewReranker(lengthScorer{})
	_, err := r.Rerank(context.Background(), "q", nil, 0)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRerankNilScorer(t *testing.T) {
	r := NewReranker(nil)
	_, err := r.Rerank(context.Background(), "q", []domain.ScoredChunk{{}}, 1)
	require.ErrorIs(t, err, domain.ErrScorerUnavailable)
}
