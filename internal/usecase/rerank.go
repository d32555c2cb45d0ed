package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
)

// Reranker orders merged candidates by pairwise relevance to the query. A
// failing scorer fails the whole query: silently falling back to the fused
// order would be an undetectable behavior change for the caller. Callers
// wanting graceful degradation wire a fallback scorer in explicitly.
type Reranker struct {
	scorer port.RelevanceScorer
}

func NewReranker(scorer port.RelevanceScorer) *Reranker {
	return &Reranker{scorer: scorer}
}

// Rerank scores each candidate against the query and returns the topK best,
// ordered by relevance descending, ties by fused score descending, then by
// chunk insertion order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topK int) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	if r.scorer == nil {
		return nil, fmt.Errorf("%w: no relevance scorer configured", domain.ErrScorerUnavailable)
	}

	reranked := make([]domain.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		score, err := r.scorer.Score(ctx, query, c.Chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrScorerUnavailable, err)
		}
		reranked = append(reranked, domain.ScoredChunk{
			Chunk: c.Chunk,
			Score: score,
			Fused: c.Fused,
		})
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		if reranked[i].Fused != reranked[j].Fused {
			return reranked[i].Fused > reranked[j].Fused
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})
	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}
