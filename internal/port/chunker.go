package port

import "github.com/hsaeed3/yosemite/internal/domain"

// Chunker splits document text into retrieval units. Returned chunks carry
// Text, Seq and the [Start, End) offsets only; the ingestion pipeline fills
// tokens and vectors. Offset ranges must partition the input text: ordered
// by Seq, non-overlapping, every byte covered.
type Chunker interface {
	Chunk(text string) ([]domain.Chunk, error)
}
