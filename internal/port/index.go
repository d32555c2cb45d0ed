package port

import "github.com/hsaeed3/yosemite/internal/domain"

// LexicalIndex is an inverted index over chunk tokens with TF-IDF ranked
// retrieval.
type LexicalIndex interface {
	Index(chunkID uint64, tokens []string) error

	Remove(chunkID uint64)

	// Search returns up to topK candidates ordered by score descending,
	// ties broken by chunk insertion order. An empty index yields an empty
	// result, never an error.
	Search(queryTokens []string, topK int) ([]domain.Candidate, error)

	Save(path string) error

	Load(path string) error
}

// VectorIndex is an approximate-nearest-neighbor structure over chunk
// embeddings ranked by cosine similarity.
type VectorIndex interface {
	// Index inserts a vector. Vectors whose length differs from the index
	// dimension are rejected, never truncated or padded.
	Index(chunkID uint64, vector []float32) error

	Remove(chunkID uint64)

	Search(query []float32, topK int) ([]domain.Candidate, error)

	Dimension() int

	Save(path string) error

	Load(path string) error
}
