package domain

import "errors"

var (
	// ErrNotFound indicates an unknown document or chunk identifier.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidArgument indicates malformed caller parameters, such as
	// negative weights or a non-positive top-k.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAdapterFailure indicates the analyzer or embedding adapter failed
	// after its retries were exhausted.
	ErrAdapterFailure = errors.New("adapter failure")

	// ErrScorerUnavailable indicates the relevance scorer failed; the query
	// fails as a whole rather than silently returning fused-score order.
	ErrScorerUnavailable = errors.New("relevance scorer unavailable")

	// ErrIngestionAborted indicates ingestion was rolled back; the caller
	// sees no partial document.
	ErrIngestionAborted = errors.New("ingestion aborted")
)
