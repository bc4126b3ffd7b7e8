package driven

import (
	"context"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// VectorRecord is one vector plus its chunk payload as stored.
type VectorRecord struct {
	// ID is the stable chunk id.
	ID string

	// Embedding is the chunk vector.
	Embedding []float32

	// Text is the chunk source text.
	Text string

	// Metadata is the closed chunk metadata struct.
	Metadata domain.ChunkMetadata
}

// VectorMatch is one similarity search result.
type VectorMatch struct {
	// ID is the matched chunk id.
	ID string

	// Score is the similarity score, higher is better.
	Score float64

	// Text is the chunk source text.
	Text string

	// Metadata is the stored chunk metadata.
	Metadata domain.ChunkMetadata
}

// CollectionInfo is a cheap existence/shape probe result.
type CollectionInfo struct {
	Name      string
	Dimension int
	Count     int
}

// VectorStore is the named-collection vector index. Implementations must be
// safe for concurrent use across jobs and queries.
type VectorStore interface {
	// CreateCollection creates a collection with a fixed dimension.
	// Creating an existing collection with the same dimension is a no-op.
	CreateCollection(ctx context.Context, name string, dimension int) error

	// DeleteCollection removes a collection and all its vectors.
	DeleteCollection(ctx context.Context, name string) error

	// ListCollections returns the names of all collections in the store.
	ListCollections(ctx context.Context) ([]string, error)

	// Describe probes a collection's dimension and vector count.
	// Returns domain.ErrCollectionNotFound on miss.
	Describe(ctx context.Context, name string) (*CollectionInfo, error)

	// Upsert writes records into a collection. Vectors whose length differs
	// from the collection dimension fail with domain.ErrDimensionMismatch
	// and leave the collection unchanged.
	Upsert(ctx context.Context, name string, records []VectorRecord) error

	// Query returns up to topK nearest records by similarity.
	Query(ctx context.Context, name string, vector []float32, topK int) ([]VectorMatch, error)

	// Export returns every record of a collection, used when copying
	// collections into a combined index.
	Export(ctx context.Context, name string) ([]VectorRecord, error)
}
