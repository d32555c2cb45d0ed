package port

import "github.com/hsaeed3/yosemite/internal/domain"

// ChunkListener receives chunk-removed events from the document store so
// that indices can retract entries without the store knowing index
// internals.
type ChunkListener interface {
	ChunksRemoved(chunkIDs []uint64)
}

// DocumentStore is the durable source of truth for documents and chunks.
// Identifiers are allocated by the store at write time, monotonically, and
// never reused after deletion.
type DocumentStore interface {
	PutDocument(doc domain.Document) (uint64, error)

	GetDocument(id uint64) (domain.Document, error)

	// UpdateMetadata replaces a stored document's metadata. Documents are
	// otherwise immutable after ingestion.
	UpdateMetadata(id uint64, meta map[string]domain.MetaValue) error

	PutChunk(chunk domain.Chunk) (uint64, error)

	GetChunk(id uint64) (domain.Chunk, error)

	// ListChunks returns a document's chunks ordered by sequence index.
	ListChunks(docID uint64) ([]domain.Chunk, error)

	ListDocuments() ([]domain.Document, error)

	// DeleteDocument removes the document and all of its chunks, then
	// notifies registered listeners of the removed chunk ids.
	DeleteDocument(id uint64) error

	// Subscribe registers a listener for chunk-removed events.
	Subscribe(l ChunkListener)

	Stats() (domain.Stats, error)

	Close() error
}
