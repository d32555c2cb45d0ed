package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
)

// Source is one document handed to the pipeline: raw text plus metadata.
// An external document extractor has already converted files to this form.
type Source struct {
	URI      string
	Text     string
	Metadata map[string]domain.MetaValue
}

// IngestPipeline turns one Source into a stored document, its chunks, their
// postings and their vector entries, as one logical unit: on any failure the
// writes performed so far are compensated and the caller sees no partial
// document.
type IngestPipeline struct {
	store    port.DocumentStore
	lexical  port.LexicalIndex
	vector   port.VectorIndex
	analyzer port.Analyzer
	embedder port.Embedder
	chunker  port.Chunker
	pool     *ants.Pool
	retries  int
	logger   *slog.Logger

	// docLocks serializes ingestion per source URI so a document is never
	// ingested twice concurrently. Independent documents run in parallel.
	// Entries are reference counted and evicted once the last holder
	// releases, so the map does not grow with the number of URIs ever seen.
	locksMu  sync.Mutex
	docLocks map[string]*uriLock
}

type uriLock struct {
	mu   sync.Mutex
	refs int
}

// PipelineOption configures an IngestPipeline.
type PipelineOption func(*IngestPipeline)

// WithRetries sets how many times a failed adapter call is retried per
// chunk before the whole ingestion aborts. Default is 1.
func WithRetries(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *IngestPipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewIngestPipeline creates a pipeline with a worker pool of the given
// size; size <= 0 means runtime.NumCPU().
func NewIngestPipeline(
	store port.DocumentStore,
	lexical port.LexicalIndex,
	vector port.VectorIndex,
	analyzer port.Analyzer,
	embedder port.Embedder,
	chunker port.Chunker,
	poolSize int,
	opts ...PipelineOption,
) (*IngestPipeline, error) {
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	p := &IngestPipeline{
		store:    store,
		lexical:  lexical,
		vector:   vector,
		analyzer: analyzer,
		embedder: embedder,
		chunker:  chunker,
		pool:     pool,
		retries:  1,
		logger:   slog.Default(),
		docLocks: make(map[string]*uriLock),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Release frees the worker pool.
func (p *IngestPipeline) Release() {
	p.pool.Release()
}

// Ingest stores the source and indexes its chunks. Empty text produces a
// document with zero chunks and is not an error.
func (p *IngestPipeline) Ingest(ctx context.Context, src Source) (uint64, error) {
	if err := domain.ValidateMetadata(src.Metadata); err != nil {
		return 0, err
	}

	unlock := p.lockURI(src.URI)
	defer unlock()

	docID, err := p.store.PutDocument(domain.Document{
		URI:      src.URI,
		Text:     src.Text,
		Metadata: src.Metadata,
	})
	if err != nil {
		return 0, err
	}

	chunks, err := p.chunker.Chunk(src.Text)
	if err != nil {
		return 0, p.abort(docID, err)
	}
	if len(chunks) == 0 {
		return docID, nil
	}

	if err := p.populateChunks(ctx, chunks); err != nil {
		return 0, p.abort(docID, err)
	}

	// Write-through: store first, then both indices. The store's cascade
	// delete retracts index entries on rollback, so a partial write here is
	// always recoverable.
	for i := range chunks {
		chunks[i].DocID = docID
		id, err := p.store.PutChunk(chunks[i])
		if err != nil {
			return 0, p.abort(docID, err)
		}
		chunks[i].ID = id
	}
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return 0, p.abort(docID, err)
		}
		if err := p.lexical.Index(chunks[i].ID, chunks[i].Tokens); err != nil {
			return 0, p.abort(docID, err)
		}
		if err := p.vector.Index(chunks[i].ID, chunks[i].Vector); err != nil {
			return 0, p.abort(docID, err)
		}
	}

	p.logger.Debug("document ingested",
		slog.Uint64("doc_id", docID),
		slog.String("uri", src.URI),
		slog.Int("chunks", len(chunks)))
	return docID, nil
}

// populateChunks fills each chunk's token sequence and embedding vector
// concurrently, retrying failed adapter calls per chunk up to the bound.
func (p *IngestPipeline) populateChunks(ctx context.Context, chunks []domain.Chunk) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i := range chunks {
		i := i
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				setErr(ctx.Err())
				return
			}
			if err := p.populateOne(ctx, &chunks[i]); err != nil {
				setErr(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			setErr(submitErr)
			break
		}
	}
	wg.Wait()
	return firstErr
}

func (p *IngestPipeline) populateOne(ctx context.Context, chunk *domain.Chunk) error {
	tokens, err := withRetry(ctx, p.retries, p.logger, func() ([]string, error) {
		return p.analyzer.Tokenize(ctx, chunk.Text)
	})
	if err != nil {
		return fmt.Errorf("%w: analyzer: %w", domain.ErrAdapterFailure, err)
	}
	chunk.Tokens = tokens

	vectors, err := withRetry(ctx, p.retries, p.logger, func() ([][]float32, error) {
		return p.embedder.Embed(ctx, []string{chunk.Text})
	})
	if err != nil {
		return fmt.Errorf("%w: embedder: %w", domain.ErrAdapterFailure, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("%w: embedder returned %d vectors for one text", domain.ErrAdapterFailure, len(vectors))
	}
	chunk.Vector = vectors[0]
	return nil
}

// withRetry runs f up to 1 + retries times, stopping early on cancellation.
func withRetry[T any](ctx context.Context, retries int, logger *slog.Logger, f func() (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		var v T
		v, err = f()
		if err == nil {
			return v, nil
		}
		logger.Warn("adapter call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}
	return zero, err
}

// abort rolls back everything written for the document and wraps the cause.
// Deleting the document cascades to its chunks and notifies the indices, so
// one compensating action covers every stage.
func (p *IngestPipeline) abort(docID uint64, cause error) error {
	if err := p.store.DeleteDocument(docID); err != nil {
		p.logger.Error("rollback failed",
			slog.Uint64("doc_id", docID),
			slog.String("error", err.Error()))
	}
	return fmt.Errorf("%w: %w", domain.ErrIngestionAborted, cause)
}

func (p *IngestPipeline) lockURI(uri string) func() {
	p.locksMu.Lock()
	l := p.docLocks[uri]
	if l == nil {
		l = &uriLock{}
		p.docLocks[uri] = l
	}
	l.refs++
	p.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.docLocks, uri)
		}
		p.locksMu.Unlock()
	}
}
