package port

import "context"

// RelevanceScorer is a cross-encoder style pairwise scorer: higher scores
// mean the passage answers the query better. A failing scorer fails the
// whole query; callers wanting graceful degradation configure a fallback
// scorer explicitly.
type RelevanceScorer interface {
	Score(ctx context.Context, query, passage string) (float64, error)
}
