package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrFileNotFound indicates the referenced upload does not exist.
	ErrFileNotFound = errors.New("uploaded file not found")

	// ErrParseError indicates the document bytes could not be turned into text.
	ErrParseError = errors.New("document parse failed")

	// ErrEmptyDocument indicates a document with no extractable text.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrInvalidChunkConfig indicates an unusable chunking configuration,
	// e.g. an overlap that is not smaller than the window.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrEmbeddingError indicates the embedding provider failed.
	ErrEmbeddingError = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// dimension a collection was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCollectionNotFound indicates a requested collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrStoreUnavailable indicates the vector store cannot be reached.
	// Unlike per-collection failures this is fatal to the whole operation.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrJobNotFound indicates a requested job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal indicates an update to a job that already finished.
	// Completed and failed jobs are never resurrected.
	ErrJobTerminal = errors.New("job already finished")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)
