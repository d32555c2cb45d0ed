package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
)

// Path names used in QueryResult.Degraded.
const (
	PathLexical = "lexical"
	PathVector  = "vector"
)

// QueryOptions controls one hybrid query.
type QueryOptions struct {
	// TopK is the number of results returned. Must be positive.
	TopK int
	// LexicalWeight and VectorWeight blend the two normalized path scores.
	// Both must be non-negative and at least one positive.
	LexicalWeight float64
	VectorWeight  float64
	// FanOut multiplies TopK for per-path candidate requests, giving the
	// reranker recall headroom. Must be positive.
	FanOut int
	// PathTimeout bounds each retrieval path. A path exceeding it is
	// skipped and reported in QueryResult.Degraded instead of blocking the
	// query.
	PathTimeout time.Duration
	// WithoutRerank returns the fused ordering directly, skipping the
	// relevance scorer.
	WithoutRerank bool
}

// DefaultQueryOptions returns the documented defaults: equal weights,
// fan-out 3, two-second path timeout, top 5 results.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		TopK:          5,
		LexicalWeight: 0.5,
		VectorWeight:  0.5,
		FanOut:        3,
		PathTimeout:   2 * time.Second,
	}
}

func (o QueryOptions) validate() error {
	if o.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidArgument, o.TopK)
	}
	if o.LexicalWeight < 0 || o.VectorWeight < 0 {
		return fmt.Errorf("%w: weights must be non-negative, got lexical=%g vector=%g",
			domain.ErrInvalidArgument, o.LexicalWeight, o.VectorWeight)
	}
	if o.LexicalWeight == 0 && o.VectorWeight == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", domain.ErrInvalidArgument)
	}
	if o.FanOut <= 0 {
		return fmt.Errorf("%w: fan-out must be positive, got %d", domain.ErrInvalidArgument, o.FanOut)
	}
	return nil
}

// QueryEngine answers queries against both indices in parallel, fuses the
// candidate sets, and hands the merged list to the reranker.
type QueryEngine struct {
	store    port.DocumentStore
	lexical  port.LexicalIndex
	vector   port.VectorIndex
	analyzer port.Analyzer
	embedder port.Embedder
	reranker *Reranker
	logger   *slog.Logger
}

func NewQueryEngine(
	store port.DocumentStore,
	lexical port.LexicalIndex,
	vector port.VectorIndex,
	analyzer port.Analyzer,
	embedder port.Embedder,
	reranker *Reranker,
	logger *slog.Logger,
) *QueryEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryEngine{
		store:    store,
		lexical:  lexical,
		vector:   vector,
		analyzer: analyzer,
		embedder: embedder,
		reranker: reranker,
		logger:   logger,
	}
}

// Query runs both retrieval paths, fuses and reranks. An empty store yields
// an empty result.
func (e *QueryEngine) Query(ctx context.Context, text string, opts QueryOptions) (domain.QueryResult, error) {
	if err := opts.validate(); err != nil {
		return domain.QueryResult{}, err
	}

	limit := opts.TopK * opts.FanOut

	var (
		lexCands []domain.Candidate
		vecCands []domain.Candidate
		degraded []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cands, err := e.lexicalPath(gctx, text, limit, opts.PathTimeout)
		if err != nil {
			return err
		}
		lexCands = cands
		return nil
	})
	g.Go(func() error {
		cands, err := e.vectorPath(gctx, text, limit, opts.PathTimeout)
		if err != nil {
			return err
		}
		vecCands = cands
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.QueryResult{}, err
	}
	// Distinguish "timed out" from "no matches": the path funcs return a
	// non-nil empty slice on success, and runPath surfaces the caller's
	// context ending as an error, so nil here means the path's own
	// deadline expired.
	if lexCands == nil {
		degraded = append(degraded, PathLexical)
	}
	if vecCands == nil {
		degraded = append(degraded, PathVector)
	}

	fused := fuse(lexCands, vecCands, opts.LexicalWeight, opts.VectorWeight)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	if len(fused) == 0 {
		return domain.QueryResult{Degraded: degraded}, nil
	}

	candidates := e.materialize(fused)

	var results []domain.ScoredChunk
	if opts.WithoutRerank {
		if len(candidates) > opts.TopK {
			candidates = candidates[:opts.TopK]
		}
		results = candidates
	} else {
		var err error
		results, err = e.reranker.Rerank(ctx, text, candidates, opts.TopK)
		if err != nil {
			return domain.QueryResult{}, err
		}
	}

	if len(degraded) > 0 {
		e.logger.Warn("query served in degraded-recall mode",
			slog.Any("paths", degraded))
	}
	return domain.QueryResult{Results: results, Degraded: degraded}, nil
}

// lexicalPath tokenizes the query and searches the lexical index under the
// path timeout. A timeout returns (nil, nil): degraded, not fatal.
func (e *QueryEngine) lexicalPath(ctx context.Context, text string, limit int, timeout time.Duration) ([]domain.Candidate, error) {
	return runPath(ctx, timeout, func(ctx context.Context) ([]domain.Candidate, error) {
		tokens, err := e.analyzer.Tokenize(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: analyzer: %w", domain.ErrAdapterFailure, err)
		}
		cands, err := e.lexical.Search(tokens, limit)
		if err != nil {
			return nil, err
		}
		if cands == nil {
			// Non-nil on success: a nil path result means timeout, not
			// "no matches".
			cands = []domain.Candidate{}
		}
		return cands, nil
	})
}

// vectorPath embeds the query and searches the vector index under the path
// timeout.
func (e *QueryEngine) vectorPath(ctx context.Context, text string, limit int, timeout time.Duration) ([]domain.Candidate, error) {
	return runPath(ctx, timeout, func(ctx context.Context) ([]domain.Candidate, error) {
		vectors, err := e.embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, fmt.Errorf("%w: embedder: %w", domain.ErrAdapterFailure, err)
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for one text", domain.ErrAdapterFailure, len(vectors))
		}
		cands, err := e.vector.Search(vectors[0], limit)
		if err != nil {
			return nil, err
		}
		if cands == nil {
			cands = []domain.Candidate{}
		}
		return cands, nil
	})
}

// runPath executes one retrieval path with its own deadline. Only the
// path's own deadline degrades, yielding (nil, nil) so the query proceeds
// on the other path alone. The caller's context ending is fatal for the
// whole query, never a silent degradation, and any other failure is fatal
// too.
func runPath(ctx context.Context, timeout time.Duration, f func(context.Context) ([]domain.Candidate, error)) ([]domain.Candidate, error) {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		cands []domain.Candidate
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		cands, err := f(ctx)
		done <- outcome{cands, err}
	}()

	select {
	case out := <-done:
		if errors.Is(out.err, context.DeadlineExceeded) && parent.Err() == nil {
			return nil, nil
		}
		return out.cands, out.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return nil, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, ctx.Err()
	}
}

// fuse unions the two candidate sets by chunk id. Each path's scores are
// min-max normalized to [0, 1] over its returned candidates before
// weighting, so neither path dominates on score magnitude alone; a chunk
// absent from one path contributes zero for that path.
func fuse(lexical, vector []domain.Candidate, lw, vw float64) []domain.ScoredChunk {
	lexNorm := normalize(lexical)
	vecNorm := normalize(vector)

	// Ties break by the best rank either path assigned the chunk, so a
	// single-path weighting reproduces that path's own order even where
	// index insertion order and chunk id order diverge. Id order is the
	// final tie-break across equally ranked chunks.
	rank := make(map[uint64]int, len(lexNorm)+len(vecNorm))
	noteRank := func(cands []domain.Candidate) {
		for i, c := range cands {
			if cur, ok := rank[c.ChunkID]; !ok || i < cur {
				rank[c.ChunkID] = i
			}
		}
	}
	noteRank(lexical)
	noteRank(vector)

	fusedScores := make(map[uint64]float64, len(lexNorm)+len(vecNorm))
	for id, s := range lexNorm {
		fusedScores[id] += lw * s
	}
	for id, s := range vecNorm {
		fusedScores[id] += vw * s
	}

	fused := make([]domain.ScoredChunk, 0, len(fusedScores))
	for id, score := range fusedScores {
		fused = append(fused, domain.ScoredChunk{
			Chunk: domain.Chunk{ID: id},
			Score: score,
			Fused: score,
		})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		ri, rj := rank[fused[i].Chunk.ID], rank[fused[j].Chunk.ID]
		if ri != rj {
			return ri < rj
		}
		return fused[i].Chunk.ID < fused[j].Chunk.ID
	})
	return fused
}

// normalize min-max scales candidate scores to [0, 1]. A single candidate,
// or candidates sharing one score, map to 1.
func normalize(cands []domain.Candidate) map[uint64]float64 {
	if len(cands) == 0 {
		return nil
	}
	lo, hi := cands[0].Score, cands[0].Score
	for _, c := range cands[1:] {
		if c.Score < lo {
			lo = c.Score
		}
		if c.Score > hi {
			hi = c.Score
		}
	}
	out := make(map[uint64]float64, len(cands))
	for _, c := range cands {
		if hi == lo {
			out[c.ChunkID] = 1
		} else {
			out[c.ChunkID] = (c.Score - lo) / (hi - lo)
		}
	}
	return out
}

// materialize resolves fused candidates to full chunks. A candidate whose
// chunk no longer exists means an index held a posting for a deleted chunk;
// that breaks the cascade-delete contract and fails loudly.
func (e *QueryEngine) materialize(fused []domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, len(fused))
	for _, f := range fused {
		chunk, err := e.store.GetChunk(f.Chunk.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				panic(fmt.Sprintf("index invariant violated: posting references deleted chunk %d", f.Chunk.ID))
			}
			// Transient store errors still fail the query, just not loudly.
			e.logger.Error("failed to materialize chunk",
				slog.Uint64("chunk_id", f.Chunk.ID),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: chunk, Score: f.Score, Fused: f.Fused})
	}
	return out
}
