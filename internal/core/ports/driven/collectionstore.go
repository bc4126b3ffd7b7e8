package driven

import (
	"context"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// CollectionStore persists collection metadata records. Metadata is durable
// across the life of the collection even though job state is not.
type CollectionStore interface {
	// Save stores or updates a metadata record.
	Save(ctx context.Context, meta domain.CollectionMeta) error

	// Get retrieves a record by collection name.
	// Returns domain.ErrCollectionNotFound on miss.
	Get(ctx context.Context, name string) (*domain.CollectionMeta, error)

	// Delete removes a record.
	Delete(ctx context.Context, name string) error

	// List returns all records ordered by creation time.
	List(ctx context.Context) ([]domain.CollectionMeta, error)
}
