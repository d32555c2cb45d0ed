package port

import "context"

// Analyzer normalizes text into an ordered sequence of tokens for lexical
// indexing. Implementations own cleaning, casing, stopword and stemming
// policy. Remote analyzers may fail; the ingestion pipeline retries per its
// configured bound.
type Analyzer interface {
	Tokenize(ctx context.Context, text string) ([]string, error)
}
