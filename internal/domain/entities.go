package domain

import (
	"fmt"
	"time"
)

// MetaKind tags the concrete type held by a MetaValue.
type MetaKind int

const (
	MetaString MetaKind = iota
	MetaNumber
	MetaTime
	MetaMap
)

// MetaValue is a tagged metadata value: string, number, timestamp or a
// nested mapping. Untyped blobs from callers are validated into this form
// at ingestion.
type MetaValue struct {
	Kind   MetaKind
	Str    string
	Num    float64
	Time   time.Time
	Nested map[string]MetaValue
}

func String(s string) MetaValue  { return MetaValue{Kind: MetaString, Str: s} }
func Number(n float64) MetaValue { return MetaValue{Kind: MetaNumber, Num: n} }
func Time(t time.Time) MetaValue { return MetaValue{Kind: MetaTime, Time: t} }
func Map(m map[string]MetaValue) MetaValue {
	return MetaValue{Kind: MetaMap, Nested: m}
}

// Validate checks that the value and any nested values carry a supported kind.
func (v MetaValue) Validate() error {
	switch v.Kind {
	case MetaString, MetaNumber, MetaTime:
		return nil
	case MetaMap:
		for key, nested := range v.Nested {
			if err := nested.Validate(); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown metadata kind %d", ErrInvalidArgument, v.Kind)
	}
}

// ValidateMetadata validates a whole metadata mapping.
func ValidateMetadata(meta map[string]MetaValue) error {
	for key, v := range meta {
		if key == "" {
			return fmt.Errorf("%w: empty metadata key", ErrInvalidArgument)
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("metadata key %q: %w", key, err)
		}
	}
	return nil
}

// Document is one ingested unit of content. The store assigns its ID at
// write time; after ingestion only metadata may change.
type Document struct {
	ID        uint64
	URI       string
	Text      string
	Metadata  map[string]MetaValue
	CreatedAt time.Time
}

// Chunk is the atomic unit of retrieval: a contiguous span of a document's
// text with its cached analyzer tokens and embedding vector.
type Chunk struct {
	ID     uint64
	DocID  uint64
	Seq    int
	Text   string
	Tokens []string
	Vector []float32
	// Start and End are byte offsets into the parent document text,
	// half-open [Start, End). The ranges of one document partition its text.
	Start int
	End   int
}

// Posting records one chunk's term frequency for a token.
type Posting struct {
	ChunkID uint64
	TF      int
}

// Candidate is a transient per-path query result before fusion.
type Candidate struct {
	ChunkID uint64
	Score   float64
}

// ScoredChunk is a materialized chunk with its score. After fusion Score
// holds the weighted combination of the two paths; after reranking it holds
// the relevance scorer's output and Fused keeps the pre-rerank value.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
	Fused float64
}

// QueryResult is the ordered answer to one hybrid query. Degraded lists
// retrieval paths that timed out and contributed nothing ("lexical",
// "vector"); it is informational, not an error.
type QueryResult struct {
	Results  []ScoredChunk
	Degraded []string
}

// Stats summarizes store contents.
type Stats struct {
	TotalDocs   int
	TotalChunks int
	AvgChunkLen float64
}
