// Package yosemite is an embedded hybrid retrieval database: documents are
// chunked, indexed both lexically (inverted index, TF-IDF) and by embedding
// vector (randomized tree forest, cosine), queried over both paths in
// parallel, fused, and reranked with a cross-encoder style relevance
// scorer.
//
// A Database is an explicit value the caller owns and passes around; there
// is no process-wide instance.
package yosemite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hsaeed3/yosemite/internal/adapter/analyzer"
	"github.com/hsaeed3/yosemite/internal/adapter/chunker"
	"github.com/hsaeed3/yosemite/internal/adapter/embedding"
	"github.com/hsaeed3/yosemite/internal/adapter/index"
	"github.com/hsaeed3/yosemite/internal/adapter/scorer"
	"github.com/hsaeed3/yosemite/internal/adapter/store"
	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
	"github.com/hsaeed3/yosemite/internal/usecase"
)

// Re-exported domain types forming the public surface.
type (
	Document     = domain.Document
	Chunk        = domain.Chunk
	MetaValue    = domain.MetaValue
	ScoredChunk  = domain.ScoredChunk
	QueryResult  = domain.QueryResult
	Stats        = domain.Stats
	Source       = usecase.Source
	QueryOptions = usecase.QueryOptions

	Analyzer        = port.Analyzer
	Embedder        = port.Embedder
	RelevanceScorer = port.RelevanceScorer
	Chunker         = port.Chunker

	VectorConfig = index.VectorConfig
)

// Re-exported error taxonomy; test with errors.Is.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrDimensionMismatch = domain.ErrDimensionMismatch
	ErrInvalidArgument   = domain.ErrInvalidArgument
	ErrAdapterFailure    = domain.ErrAdapterFailure
	ErrScorerUnavailable = domain.ErrScorerUnavailable
	ErrIngestionAborted  = domain.ErrIngestionAborted
)

// Metadata value constructors.
var (
	String = domain.String
	Number = domain.Number
	Time   = domain.Time
	Map    = domain.Map
)

// DefaultQueryOptions returns the documented query defaults.
func DefaultQueryOptions() QueryOptions { return usecase.DefaultQueryOptions() }

const (
	storeFile   = "store.db"
	lexicalFile = "lexical.json"
	vectorFile  = "vectors.json"
)

// Database is the hybrid retrieval database. Safe for concurrent use.
type Database struct {
	dir      string
	store    *store.BoltStore
	lexical  *index.Lexical
	vector   *index.Vector
	pipeline *usecase.IngestPipeline
	engine   *usecase.QueryEngine
	logger   *slog.Logger
}

type options struct {
	analyzer  port.Analyzer
	embedder  port.Embedder
	scorer    port.RelevanceScorer
	chunker   port.Chunker
	vectorCfg index.VectorConfig
	workers   int
	retries   int
	logger    *slog.Logger
}

// Option configures a Database at Open time.
type Option func(*options)

// WithAnalyzer replaces the default tokenizer/cleaner.
func WithAnalyzer(a port.Analyzer) Option { return func(o *options) { o.analyzer = a } }

// WithEmbedder replaces the default embedding function. The vector index
// dimension follows the embedder.
func WithEmbedder(e port.Embedder) Option { return func(o *options) { o.embedder = e } }

// WithScorer replaces the default relevance scorer. Configuring the overlap
// scorer here is the explicit way to keep queries answerable when a remote
// cross-encoder is down.
func WithScorer(s port.RelevanceScorer) Option { return func(o *options) { o.scorer = s } }

// WithChunker replaces the default chunking strategy.
func WithChunker(c port.Chunker) Option { return func(o *options) { o.chunker = c } }

// WithVectorConfig tunes the approximate vector index.
func WithVectorConfig(cfg index.VectorConfig) Option {
	return func(o *options) { o.vectorCfg = cfg }
}

// WithWorkers sets the ingestion worker pool size.
func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

// WithRetries sets the per-chunk adapter retry bound.
func WithRetries(n int) Option { return func(o *options) { o.retries = n } }

// WithLogger sets a structured logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Open creates or opens a database rooted at dir. Defaults give a fully
// offline database: standard analyzer with stemming, hash embedder, window
// of sentences chunking, and the lexical-overlap relevance scorer.
func Open(dir string, opts ...Option) (*Database, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	o := options{
		vectorCfg: index.DefaultVectorConfig(),
		retries:   1,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.analyzer == nil {
		o.analyzer = analyzer.New(analyzer.WithStemming())
	}
	if o.embedder == nil {
		o.embedder = embedding.NewHashEmbedder(256)
	}
	if o.scorer == nil {
		o.scorer = scorer.NewOverlap(o.analyzer)
	}
	if o.chunker == nil {
		o.chunker = chunker.NewSentence(512)
	}

	st, err := store.NewBoltStore(filepath.Join(dir, storeFile))
	if err != nil {
		return nil, err
	}

	lex := index.NewLexical()
	if err := lex.Load(filepath.Join(dir, lexicalFile)); err != nil {
		st.Close()
		return nil, err
	}
	vec, err := index.NewVector(o.embedder.Dimension(), o.vectorCfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := vec.Load(filepath.Join(dir, vectorFile)); err != nil {
		st.Close()
		return nil, err
	}

	// Cascade deletes flow from the store to both indices as chunk-removed
	// events.
	st.Subscribe(lex)
	st.Subscribe(vec)

	pipeline, err := usecase.NewIngestPipeline(st, lex, vec, o.analyzer, o.embedder, o.chunker, o.workers,
		usecase.WithRetries(o.retries), usecase.WithLogger(o.logger))
	if err != nil {
		st.Close()
		return nil, err
	}
	engine := usecase.NewQueryEngine(st, lex, vec, o.analyzer, o.embedder,
		usecase.NewReranker(o.scorer), o.logger)

	return &Database{
		dir:      dir,
		store:    st,
		lexical:  lex,
		vector:   vec,
		pipeline: pipeline,
		engine:   engine,
		logger:   o.logger,
	}, nil
}

// Ingest stores and indexes one document, returning its assigned id.
// Ingestion is all-or-nothing: on failure nothing of the document remains.
func (db *Database) Ingest(ctx context.Context, src Source) (uint64, error) {
	return db.pipeline.Ingest(ctx, src)
}

// Query answers a hybrid query. Zero-valued fields of opts fall back to the
// documented defaults; negative values are rejected.
func (db *Database) Query(ctx context.Context, text string, opts QueryOptions) (QueryResult, error) {
	def := usecase.DefaultQueryOptions()
	if opts.TopK == 0 {
		opts.TopK = def.TopK
	}
	if opts.FanOut == 0 {
		opts.FanOut = def.FanOut
	}
	if opts.PathTimeout == 0 {
		opts.PathTimeout = def.PathTimeout
	}
	if opts.LexicalWeight == 0 && opts.VectorWeight == 0 {
		opts.LexicalWeight = def.LexicalWeight
		opts.VectorWeight = def.VectorWeight
	}
	return db.engine.Query(ctx, text, opts)
}

// Get returns a stored document.
func (db *Database) Get(id uint64) (Document, error) {
	return db.store.GetDocument(id)
}

// GetChunk returns a stored chunk.
func (db *Database) GetChunk(id uint64) (Chunk, error) {
	return db.store.GetChunk(id)
}

// ListChunks returns a document's chunks in sequence order.
func (db *Database) ListChunks(docID uint64) ([]Chunk, error) {
	return db.store.ListChunks(docID)
}

// ListDocuments returns all stored documents.
func (db *Database) ListDocuments() ([]Document, error) {
	return db.store.ListDocuments()
}

// UpdateMetadata replaces a document's metadata, the only mutation allowed
// after ingestion.
func (db *Database) UpdateMetadata(id uint64, meta map[string]MetaValue) error {
	return db.store.UpdateMetadata(id, meta)
}

// Delete removes a document, cascading to its chunks, postings and vector
// entries.
func (db *Database) Delete(id uint64) error {
	return db.store.DeleteDocument(id)
}

// Stats summarizes store contents.
func (db *Database) Stats() (Stats, error) {
	return db.store.Stats()
}

// Save writes both index snapshots. The bbolt store is durable on every
// write; snapshots make the indices reload to an identical state.
func (db *Database) Save() error {
	if err := db.lexical.Save(filepath.Join(db.dir, lexicalFile)); err != nil {
		return fmt.Errorf("failed to save lexical index: %w", err)
	}
	if err := db.vector.Save(filepath.Join(db.dir, vectorFile)); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}

// Close saves the index snapshots and closes the store.
func (db *Database) Close() error {
	db.pipeline.Release()
	if err := db.Save(); err != nil {
		db.store.Close()
		return err
	}
	return db.store.Close()
}
