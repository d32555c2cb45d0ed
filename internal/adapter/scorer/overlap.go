package scorer

import (
	"context"

	"github.com/hsaeed3/yosemite/internal/port"
)

// Overlap scores a pair by the fraction of query tokens present in the
// passage. It never fails, so wiring it in gives a query path that survives
// a cross-encoder outage; the degradation is the caller's explicit choice,
// not a silent fallback.
type Overlap struct {
	analyzer port.Analyzer
}

func NewOverlap(analyzer port.Analyzer) *Overlap {
	return &Overlap{analyzer: analyzer}
}

func (s *Overlap) Score(ctx context.Context, query, passage string) (float64, error) {
	queryTokens, err := s.analyzer.Tokenize(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(queryTokens) == 0 {
		return 0, nil
	}
	passageTokens, err := s.analyzer.Tokenize(ctx, passage)
	if err != nil {
		return 0, err
	}
	passageSet := make(map[string]struct{})
	for _, tok := range passageTokens {
		passageSet[tok] = struct{}{}
	}
	matched := 0
	for _, tok := range queryTokens {
		if _, ok := passageSet[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens)), nil
}
